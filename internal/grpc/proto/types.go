// Package proto содержит определения типов для gRPC сервиса сокращения URL
package proto

// ShortenRequest представляет запрос на создание короткой ссылки
type ShortenRequest struct {
	OriginalURL string `json:"original_url"`
	CustomAlias string `json:"custom_alias"`
}

// ShortenResponse представляет ответ с созданной короткой ссылкой
type ShortenResponse struct {
	ShortURL   string `json:"short_url"`
	ShortCode  string `json:"short_code"`
	CreatedAt  string `json:"created_at"`
	ClickCount int64  `json:"click_count"`
}

// ResolveRequest представляет запрос на получение оригинального URL
type ResolveRequest struct {
	Code      string `json:"code"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Referrer  string `json:"referrer"`
}

// ResolveResponse представляет ответ с оригинальным URL
type ResolveResponse struct {
	OriginalURL string `json:"original_url"`
}

// GetStatsRequest представляет запрос аналитики по коду
type GetStatsRequest struct {
	Code       string `json:"code"`
	WindowDays int32  `json:"window_days"`
}

// TimePoint представляет одну точку дневного временного ряда
type TimePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// GeoCount представляет количество переходов из одной страны
type GeoCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// ReferrerCount представляет количество переходов с одного источника
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// GetStatsResponse представляет ответ аналитики по короткой ссылке
type GetStatsResponse struct {
	ShortCode    string           `json:"short_code"`
	ShortURL     string           `json:"short_url"`
	OriginalURL  string           `json:"original_url"`
	CreatedAt    string           `json:"created_at"`
	ClickCount   int64            `json:"click_count"`
	Timeseries   []*TimePoint     `json:"timeseries"`
	Geo          []*GeoCount      `json:"geo"`
	TopReferrers []*ReferrerCount `json:"top_referrers"`
}

// PingRequest представляет запрос проверки состояния
type PingRequest struct{}

// PingResponse представляет ответ проверки состояния
type PingResponse struct {
	DatabaseAvailable bool `json:"database_available"`
}
