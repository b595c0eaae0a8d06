package models

import "time"

// ShortLink представляет сокращённую ссылку
type ShortLink struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	OriginalURL   string    `json:"original_url"`
	IsCustomAlias bool      `json:"is_custom_alias"`
	CreatedAt     time.Time `json:"created_at"`
	ClickCount    int64     `json:"click_count"`
}

// ClickEvent представляет один переход по короткой ссылке.
// Пустые строки означают отсутствие данных; гео-поля заполняются
// только при успешном обогащении.
type ClickEvent struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"ua,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	Country   string    `json:"country,omitempty"`
	Region    string    `json:"region,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ShortenRequest struct {
	OriginalURL string `json:"originalUrl"`
	CustomAlias string `json:"customAlias,omitempty"`
}

type ShortenResponse struct {
	ShortURL     string    `json:"shortUrl"`
	ShortCode    string    `json:"shortCode"`
	AnalyticsURL string    `json:"analyticsUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	ClickCount   int64     `json:"clickCount"`
}

// TimePoint — одна точка дневного временного ряда
type TimePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// GeoCount — количество переходов из одной страны
type GeoCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// ReferrerCount — количество переходов с одного источника
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
}

// StatsSummary содержит сводку по ссылке. ClickCount — счётчик за всё время,
// в отличие от разбивок, которые считаются по ограниченному окну последних событий.
type StatsSummary struct {
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ClickCount  int64     `json:"clickCount"`
}

// Stats — ответ аналитики по короткой ссылке
type Stats struct {
	Summary      StatsSummary    `json:"summary"`
	Timeseries   []TimePoint     `json:"timeseries"`
	Geo          []GeoCount      `json:"geo"`
	TopReferrers []ReferrerCount `json:"topReferrers"`
	RecentClicks []ClickEvent    `json:"recentClicks"`
}
