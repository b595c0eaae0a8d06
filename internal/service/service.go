package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tempizhere/tinyhawk/internal/cache"
	"github.com/tempizhere/tinyhawk/internal/models"
	"github.com/tempizhere/tinyhawk/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrInvalidAlias  = errors.New("invalid custom alias")
	ErrAliasTaken    = errors.New("custom alias already in use")
	ErrCodeExhausted = errors.New("failed to allocate unique code")
)

const (
	// Длина генерируемого кода
	codeLength = 6
	// Предел попыток генерации при коллизиях
	maxGenerateAttempts = 6
	// Рабочее множество аналитики: не более N последних событий
	recentClicksLimit = 500
	// Сколько последних событий отдаётся в ответе статистики
	recentDisplayLimit = 50
	// Сколько источников переходов попадает в топ
	topReferrersLimit = 10
	// Окно временного ряда по умолчанию, дней
	defaultWindowDays = 30
)

// Допустимый алфавит пользовательского алиаса
var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ClickRecorder принимает события переходов для фоновой записи
type ClickRecorder interface {
	Enqueue(click models.ClickEvent)
}

// Service реализует логику выдачи кодов, редиректа и аналитики
type Service struct {
	repo     repository.Repository
	recorder ClickRecorder
	cache    cache.Cache
	baseURL  string
	logger   *zap.Logger
}

// NewService создаёт новый экземпляр Service. cache может быть nil.
func NewService(repo repository.Repository, recorder ClickRecorder, linkCache cache.Cache, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		cache:    linkCache,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// GenerateCode генерирует случайный код из URL-безопасного алфавита
func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf)
	return encoded[:length], nil
}

// BaseURL возвращает базовый адрес коротких ссылок
func (s *Service) BaseURL() string {
	return strings.TrimRight(s.baseURL, "/")
}

// ShortURL собирает полный короткий адрес для кода
func (s *Service) ShortURL(code string) string {
	return s.BaseURL() + "/" + code
}

// Shorten выдаёт короткий код для URL. При пустом customAlias код
// генерируется с повторами при коллизиях; пользовательский алиас не
// повторяется — занятый код сразу отдаётся как ErrAliasTaken.
func (s *Service) Shorten(ctx context.Context, originalURL, customAlias string) (models.ShortLink, error) {
	target := strings.TrimSpace(originalURL)
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return models.ShortLink{}, ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return models.ShortLink{}, ErrInvalidURL
	}

	if customAlias != "" {
		return s.shortenWithAlias(ctx, target, customAlias)
	}
	return s.shortenGenerated(ctx, target)
}

// shortenWithAlias сохраняет ссылку с пользовательским алиасом
func (s *Service) shortenWithAlias(ctx context.Context, target, customAlias string) (models.ShortLink, error) {
	alias := strings.TrimSpace(customAlias)
	if alias == "" || !aliasPattern.MatchString(alias) {
		return models.ShortLink{}, ErrInvalidAlias
	}

	link := models.ShortLink{
		Code:          alias,
		OriginalURL:   target,
		IsCustomAlias: true,
	}
	// Вставляем оптимистично: занятость кода решает ограничение
	// уникальности в хранилище, без предварительной проверки
	if err := s.repo.SaveLink(ctx, &link); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			return models.ShortLink{}, ErrAliasTaken
		}
		return models.ShortLink{}, err
	}
	s.cacheLink(ctx, link)
	return link, nil
}

// shortenGenerated сохраняет ссылку со сгенерированным кодом,
// повторяя генерацию при коллизиях ограниченное число раз
func (s *Service) shortenGenerated(ctx context.Context, target string) (models.ShortLink, error) {
	var link models.ShortLink
	backoff := retry.WithMaxRetries(maxGenerateAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := GenerateCode(codeLength)
		if err != nil {
			return err
		}
		candidate := models.ShortLink{
			Code:        code,
			OriginalURL: target,
		}
		if err := s.repo.SaveLink(ctx, &candidate); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				return retry.RetryableError(err)
			}
			return err
		}
		link = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			s.logger.Error("Code generation exhausted", zap.Int("attempts", maxGenerateAttempts))
			return models.ShortLink{}, ErrCodeExhausted
		}
		return models.ShortLink{}, err
	}
	s.cacheLink(ctx, link)
	return link, nil
}

// Resolve возвращает оригинальный URL по коду, увеличивает счётчик
// переходов и ставит событие в очередь фоновой записи. Ответ не ждёт
// ни записи события, ни геопоиска.
func (s *Service) Resolve(ctx context.Context, code string, click models.ClickEvent) (string, error) {
	link, found := s.cachedLink(ctx, code)
	if !found {
		var err error
		link, err = s.repo.GetLinkByCode(ctx, code)
		if err != nil {
			return "", err
		}
		s.cacheLink(ctx, link)
	}

	if err := s.repo.IncrementClicks(ctx, link.ID); err != nil {
		return "", err
	}

	click.LinkID = link.ID
	s.recorder.Enqueue(click)

	return link.OriginalURL, nil
}

// Link возвращает ссылку по коду без учёта перехода
func (s *Service) Link(ctx context.Context, code string) (models.ShortLink, error) {
	return s.repo.GetLinkByCode(ctx, code)
}

// Stats считает аналитику по последним событиям ссылки. Разбивки
// строятся по ограниченному окну последних событий, тогда как счётчик
// в сводке — за всё время.
func (s *Service) Stats(ctx context.Context, code string, windowDays int) (models.Stats, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	link, err := s.repo.GetLinkByCode(ctx, code)
	if err != nil {
		return models.Stats{}, err
	}

	clicks, err := s.repo.RecentClicks(ctx, link.ID, recentClicksLimit)
	if err != nil {
		return models.Stats{}, err
	}

	recent := clicks
	if len(recent) > recentDisplayLimit {
		recent = recent[:recentDisplayLimit]
	}

	return models.Stats{
		Summary: models.StatsSummary{
			ShortCode:   link.Code,
			ShortURL:    s.ShortURL(link.Code),
			OriginalURL: link.OriginalURL,
			CreatedAt:   link.CreatedAt,
			ClickCount:  link.ClickCount,
		},
		Timeseries:   dailyTimeseries(clicks, windowDays, time.Now().UTC()),
		Geo:          geoBreakdown(clicks),
		TopReferrers: topReferrers(clicks),
		RecentClicks: recent,
	}, nil
}

// cachedLink читает ссылку из кэша, если он настроен
func (s *Service) cachedLink(ctx context.Context, code string) (models.ShortLink, bool) {
	if s.cache == nil {
		return models.ShortLink{}, false
	}
	return s.cache.Get(ctx, code)
}

// cacheLink кладёт ссылку в кэш, если он настроен
func (s *Service) cacheLink(ctx context.Context, link models.ShortLink) {
	if s.cache != nil {
		s.cache.Set(ctx, link)
	}
}

// dailyTimeseries строит плотный дневной ряд за окно [now-(days-1); now]
// по календарным суткам UTC. Дни без переходов присутствуют с нулём.
// События, чья дата не попадает в окно, игнорируются.
func dailyTimeseries(clicks []models.ClickEvent, days int, now time.Time) []models.TimePoint {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	counts := make(map[string]int, days)
	order := make([]string, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		counts[key] = 0
		order = append(order, key)
	}

	for _, c := range clicks {
		key := c.CreatedAt.UTC().Format("2006-01-02")
		if _, ok := counts[key]; ok {
			counts[key]++
		}
	}

	series := make([]models.TimePoint, len(order))
	for i, key := range order {
		series[i] = models.TimePoint{Date: key, Count: counts[key]}
	}
	return series
}

// geoBreakdown группирует события по странам, подставляя "Unknown"
// для событий без геоданных
func geoBreakdown(clicks []models.ClickEvent) []models.GeoCount {
	counts := make(map[string]int)
	for _, c := range clicks {
		country := c.Country
		if country == "" {
			country = "Unknown"
		}
		counts[country]++
	}

	result := make([]models.GeoCount, 0, len(counts))
	for country, count := range counts {
		result = append(result, models.GeoCount{Country: country, Count: count})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// topReferrers группирует события по источникам, подставляя "Direct"
// для прямых переходов, и обрезает список до топа
func topReferrers(clicks []models.ClickEvent) []models.ReferrerCount {
	counts := make(map[string]int)
	for _, c := range clicks {
		referrer := c.Referrer
		if referrer == "" {
			referrer = "Direct"
		}
		counts[referrer]++
	}

	result := make([]models.ReferrerCount, 0, len(counts))
	for referrer, count := range counts {
		result = append(result, models.ReferrerCount{Referrer: referrer, Count: count})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > topReferrersLimit {
		result = result[:topReferrersLimit]
	}
	return result
}
