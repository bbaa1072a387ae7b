package app

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// DiseaseService выгружает справочник болезней
type DiseaseService struct {
	repo   port.DiseaseRepository
	logger *zap.Logger
}

// NewDiseaseService создаёт сервис справочника
func NewDiseaseService(repo port.DiseaseRepository, logger *zap.Logger) *DiseaseService {
	return &DiseaseService{repo: repo, logger: logger.Named("diseases")}
}

// Upload дополняет таблицу записью о переливе и заменяет справочник целиком.
// Возвращает число записанных записей.
func (s *DiseaseService) Upload(ctx context.Context, diseases map[string]entity.DiseaseInfo) (int, error) {
	table := make(map[string]entity.DiseaseInfo, len(diseases)+1)
	for key, info := range diseases {
		table[key] = info
		s.logger.Debug("disease processed", zap.String("key", key))
	}
	table[entity.DiseaseOverwatering] = entity.OverwateringInfo

	if err := s.repo.ReplaceAll(ctx, table); err != nil {
		return 0, errors.Wrap(err, "upload diseases")
	}
	s.logger.Info("disease table uploaded", zap.Int("records", len(table)))
	return len(table), nil
}

// Describe возвращает справку по метке; ошибки чтения только логируются
func (s *DiseaseService) Describe(ctx context.Context, label string) (entity.DiseaseInfo, bool) {
	info, ok, err := s.repo.Lookup(ctx, label)
	if err != nil {
		s.logger.Warn("disease lookup failed", zap.String("label", label), zap.Error(err))
		return entity.DiseaseInfo{}, false
	}
	return info, ok
}
