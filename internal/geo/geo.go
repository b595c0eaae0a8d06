// Package geo содержит провайдеры определения геолокации по IP-адресу.
// Поиск строго best-effort: отсутствие данных — это (nil, nil), а любая
// ошибка транспорта или провайдера никогда не должна влиять на редирект.
package geo

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Таймаут на один запрос к провайдеру
const lookupTimeout = 4 * time.Second

// Location представляет результат геопоиска по IP
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// Provider определяет интерфейс провайдера геопоиска.
// Возвращает (nil, nil), если данных по адресу нет.
type Provider interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// NewProvider выбирает реализацию провайдера по имени из конфигурации.
// Неизвестное имя или пустая строка дают NoopProvider.
func NewProvider(name, apiKey string, logger *zap.Logger) Provider {
	client := &http.Client{Timeout: lookupTimeout}
	switch name {
	case "ipapi":
		return &IPAPIProvider{client: client, logger: logger}
	case "ipstack":
		return &IPStackProvider{client: client, apiKey: apiKey, logger: logger}
	case "ipinfo":
		return &IPInfoProvider{client: client, apiKey: apiKey, logger: logger}
	case "none":
		return NoopProvider{}
	default:
		if name != "" {
			logger.Warn("Unknown geo provider, lookups disabled", zap.String("provider", name))
		}
		return NoopProvider{}
	}
}

// NoopProvider никогда не возвращает данных
type NoopProvider struct{}

// Lookup всегда возвращает отсутствие данных
func (NoopProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	return nil, nil
}
