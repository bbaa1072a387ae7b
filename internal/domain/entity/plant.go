package entity

import (
	"errors"
	"fmt"
	"time"
)

// Статусы растения
const (
	StatusHealthy = "healthy"
	StatusUnknown = "Unknown"
)

// Plant растение, зарегистрированное в базе
type Plant struct {
	ID          string
	SensorNode  string
	Status      string
	LastUpdated time.Time // нулевое значение, если поле отсутствует или не разобрано
}

// ErrMissingSensorNode у записи растения нет узла датчика
var ErrMissingSensorNode = errors.New("plant has no sensorNode")

// ParsePlant разбирает произвольную запись из базы.
// Обязательно только поле sensorNode, остальные поля допускаются любыми.
func ParsePlant(id string, raw map[string]any) (Plant, error) {
	p := Plant{ID: id}
	if raw == nil {
		return p, ErrMissingSensorNode
	}

	node, ok := raw["sensorNode"].(string)
	if !ok || node == "" {
		return p, ErrMissingSensorNode
	}
	p.SensorNode = node

	if status, ok := raw["status"].(string); ok {
		p.Status = status
	}
	if ts, ok := raw["lastUpdated"].(string); ok {
		p.LastUpdated = parseTimestamp(ts)
	}
	return p, nil
}

// parseTimestamp понимает RFC 3339 и isoformat() без часового пояса
func parseTimestamp(s string) time.Time {
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// String для логов
func (p Plant) String() string {
	return fmt.Sprintf("%s@%s", p.ID, p.SensorNode)
}
