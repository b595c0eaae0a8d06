package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tempizhere/tinyhawk/internal/models"
)

// MemoryRepository реализует интерфейс Repository с использованием map
type MemoryRepository struct {
	links       map[int64]models.ShortLink
	codes       map[string]int64 // code -> link ID
	clicks      map[int64][]models.ClickEvent
	nextLinkID  int64
	nextClickID int64
	mutex       sync.RWMutex
}

// NewMemoryRepository создаёт новый экземпляр MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		links:  make(map[int64]models.ShortLink),
		codes:  make(map[string]int64),
		clicks: make(map[int64][]models.ClickEvent),
	}
}

// SaveLink сохраняет ссылку, если её код ещё не занят
func (r *MemoryRepository) SaveLink(ctx context.Context, link *models.ShortLink) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.codes[link.Code]; exists {
		return ErrCodeExists
	}

	r.nextLinkID++
	link.ID = r.nextLinkID
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	r.links[link.ID] = *link
	r.codes[link.Code] = link.ID
	return nil
}

// GetLinkByCode возвращает ссылку по коду
func (r *MemoryRepository) GetLinkByCode(ctx context.Context, code string) (models.ShortLink, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.codes[code]
	if !exists {
		return models.ShortLink{}, ErrNotFound
	}
	return r.links[id], nil
}

// IncrementClicks увеличивает счётчик переходов под мьютексом
func (r *MemoryRepository) IncrementClicks(ctx context.Context, linkID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	link, exists := r.links[linkID]
	if !exists {
		return ErrNotFound
	}
	link.ClickCount++
	r.links[linkID] = link
	return nil
}

// SaveClick сохраняет событие перехода
func (r *MemoryRepository) SaveClick(ctx context.Context, click *models.ClickEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.links[click.LinkID]; !exists {
		return ErrNotFound
	}

	r.nextClickID++
	click.ID = r.nextClickID
	if click.CreatedAt.IsZero() {
		click.CreatedAt = time.Now().UTC()
	}
	r.clicks[click.LinkID] = append(r.clicks[click.LinkID], *click)
	return nil
}

// UpdateClickGeo дописывает гео-данные к событию
func (r *MemoryRepository) UpdateClickGeo(ctx context.Context, clickID int64, country, region, city string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for linkID, events := range r.clicks {
		for i, ev := range events {
			if ev.ID == clickID {
				events[i].Country = country
				events[i].Region = region
				events[i].City = city
				r.clicks[linkID] = events
				return nil
			}
		}
	}
	return ErrNotFound
}

// RecentClicks возвращает последние события, новые первыми
func (r *MemoryRepository) RecentClicks(ctx context.Context, linkID int64, limit int) ([]models.ClickEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	events := r.clicks[linkID]
	result := make([]models.ClickEvent, 0, limit)
	for i := len(events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, events[i])
	}
	return result, nil
}

// Clear очищает хранилище
func (r *MemoryRepository) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.links = make(map[int64]models.ShortLink)
	r.codes = make(map[string]int64)
	r.clicks = make(map[int64][]models.ClickEvent)
	r.nextLinkID = 0
	r.nextClickID = 0
}
