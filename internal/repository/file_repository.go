package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tempizhere/tinyhawk/internal/models"
	"go.uber.org/zap"
)

// LinkRecord представляет запись в JSON-файле
type LinkRecord struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	OriginalURL   string    `json:"original_url"`
	IsCustomAlias bool      `json:"is_custom_alias"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileRepository реализует интерфейс Repository с использованием файла.
// В файл пишутся только ссылки; события переходов и счётчики живут в памяти
// и не переживают перезапуск процесса.
type FileRepository struct {
	links       map[int64]models.ShortLink
	codes       map[string]int64
	clicks      map[int64][]models.ClickEvent
	nextLinkID  int64
	nextClickID int64
	filePath    string
	logger      *zap.Logger
	mutex       sync.RWMutex
}

// NewFileRepository создаёт новый экземпляр FileRepository
func NewFileRepository(filePath string, logger *zap.Logger) (*FileRepository, error) {
	repo := &FileRepository{
		links:    make(map[int64]models.ShortLink),
		codes:    make(map[string]int64),
		clicks:   make(map[int64][]models.ClickEvent),
		filePath: filePath,
		logger:   logger,
	}

	// Создаём директорию, если не существует
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Читаем существующий файл, если он есть
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return repo, nil
		}
		return nil, err
	}
	defer file.Close()

	// Читаем файл построчно
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record LinkRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			// Пропускаем некорректные строки и логируем это
			repo.logger.Warn("Skipping invalid JSON line", zap.String("line", string(scanner.Bytes())), zap.Error(err))
			continue
		}
		repo.links[record.ID] = models.ShortLink{
			ID:            record.ID,
			Code:          record.Code,
			OriginalURL:   record.OriginalURL,
			IsCustomAlias: record.IsCustomAlias,
			CreatedAt:     record.CreatedAt,
		}
		repo.codes[record.Code] = record.ID
		if record.ID > repo.nextLinkID {
			repo.nextLinkID = record.ID
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return repo, nil
}

// SaveLink сохраняет ссылку в хранилище и дописывает её в файл
func (r *FileRepository) SaveLink(ctx context.Context, link *models.ShortLink) error {
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

	record := LinkRecord{
		ID:            link.ID,
		Code:          link.Code,
		OriginalURL:   link.OriginalURL,
		IsCustomAlias: link.IsCustomAlias,
		CreatedAt:     link.CreatedAt,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	// Дописываем в файл
	file, err := os.OpenFile(r.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err = file.Write(data); err != nil {
		return err
	}

	r.links[link.ID] = *link
	r.codes[link.Code] = link.ID
	return nil
}

// GetLinkByCode возвращает ссылку по коду
func (r *FileRepository) GetLinkByCode(ctx context.Context, code string) (models.ShortLink, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.codes[code]
	if !exists {
		return models.ShortLink{}, ErrNotFound
	}
	return r.links[id], nil
}

// IncrementClicks увеличивает счётчик переходов под мьютексом
func (r *FileRepository) IncrementClicks(ctx context.Context, linkID int64) error {
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

// SaveClick сохраняет событие перехода в памяти
func (r *FileRepository) SaveClick(ctx context.Context, click *models.ClickEvent) error {
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
func (r *FileRepository) UpdateClickGeo(ctx context.Context, clickID int64, country, region, city string) error {
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
func (r *FileRepository) RecentClicks(ctx context.Context, linkID int64, limit int) ([]models.ClickEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	events := r.clicks[linkID]
	result := make([]models.ClickEvent, 0, limit)
	for i := len(events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, events[i])
	}
	return result, nil
}

// Clear очищает хранилище и файл
func (r *FileRepository) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.links = make(map[int64]models.ShortLink)
	r.codes = make(map[string]int64)
	r.clicks = make(map[int64][]models.ClickEvent)
	r.nextLinkID = 0
	r.nextClickID = 0
	// Пересоздаём пустой файл
	os.Remove(r.filePath)
	newFile, err := os.Create(r.filePath)
	if err == nil {
		newFile.Close()
	}
}
