package port

import (
	"context"

	"plant-monitor/internal/domain/entity"
)

// ScanNotifier получает результаты сканирований (MQTT, Telegram)
type ScanNotifier interface {
	Notify(ctx context.Context, result entity.ScanResult) error
}
