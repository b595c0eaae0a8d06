package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tempizhere/tinyhawk/internal/models"
)

// ErrCodeExists возвращается при попытке сохранить ссылку с занятым кодом
var ErrCodeExists = errors.New("short code already exists")

// ErrNotFound возвращается, если код не найден в хранилище
var ErrNotFound = errors.New("short link not found")

// LinkRepository определяет интерфейс для работы с короткими ссылками
type LinkRepository interface {
	// SaveLink вставляет новую ссылку; занятый код отдаётся как ErrCodeExists.
	// При успехе заполняет ID и CreatedAt.
	SaveLink(ctx context.Context, link *models.ShortLink) error
	// GetLinkByCode возвращает ссылку по коду или ErrNotFound
	GetLinkByCode(ctx context.Context, code string) (models.ShortLink, error)
	// IncrementClicks атомарно увеличивает счётчик переходов на единицу
	IncrementClicks(ctx context.Context, linkID int64) error
}

// ClickRepository определяет интерфейс для записей о переходах
type ClickRepository interface {
	// SaveClick сохраняет событие перехода; при успехе заполняет ID и CreatedAt
	SaveClick(ctx context.Context, click *models.ClickEvent) error
	// UpdateClickGeo однократно дописывает гео-данные к событию
	UpdateClickGeo(ctx context.Context, clickID int64, country, region, city string) error
	// RecentClicks возвращает не более limit последних событий, новые первыми
	RecentClicks(ctx context.Context, linkID int64, limit int) ([]models.ClickEvent, error)
}

// Repository объединяет хранилище ссылок и переходов
type Repository interface {
	LinkRepository
	ClickRepository
	// Clear очищает все данные в хранилище
	Clear()
}

// Database определяет интерфейс для работы с базой данных
type Database interface {
	// Ping проверяет соединение с базой данных
	Ping() error
	// Close закрывает соединение с базой данных
	Close() error
	// ExecContext выполняет SQL-команду без возврата результатов
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	// QueryContext выполняет SQL-запрос и возвращает результаты
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	// QueryRowContext выполняет SQL-запрос и возвращает одну строку результата
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
