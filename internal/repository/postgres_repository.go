package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tempizhere/tinyhawk/internal/models"
	"go.uber.org/zap"
)

// Код ошибки PostgreSQL для нарушения уникальности
const pgUniqueViolation = "23505"

// PostgresRepository реализует интерфейс Repository с использованием PostgreSQL
type PostgresRepository struct {
	db     Database
	logger *zap.Logger
}

// NewPostgresRepository создаёт новый экземпляр PostgresRepository
func NewPostgresRepository(db Database, logger *zap.Logger) (*PostgresRepository, error) {
	if db == nil {
		return nil, nil
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}, nil
}

// isUniqueViolation определяет, вызвана ли ошибка уникальным индексом.
// Ограничение уникальности в базе — единственный арбитр гонки при выдаче кодов.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// SaveLink вставляет ссылку оптимистично, без предварительной проверки кода
func (r *PostgresRepository) SaveLink(ctx context.Context, link *models.ShortLink) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO short_links (code, original_url, is_custom_alias) VALUES ($1, $2, $3) RETURNING id, created_at",
		link.Code, link.OriginalURL, link.IsCustomAlias,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		r.logger.Error("Failed to save link to database", zap.String("code", link.Code), zap.Error(err))
		return err
	}
	return nil
}

// GetLinkByCode возвращает ссылку по коду, если она существует
func (r *PostgresRepository) GetLinkByCode(ctx context.Context, code string) (models.ShortLink, error) {
	var link models.ShortLink
	err := r.db.QueryRowContext(ctx,
		"SELECT id, code, original_url, is_custom_alias, created_at, click_count FROM short_links WHERE code = $1",
		code,
	).Scan(&link.ID, &link.Code, &link.OriginalURL, &link.IsCustomAlias, &link.CreatedAt, &link.ClickCount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ShortLink{}, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get link from database", zap.String("code", code), zap.Error(err))
		return models.ShortLink{}, err
	}
	return link, nil
}

// IncrementClicks атомарно увеличивает счётчик на стороне базы,
// без read-modify-write в приложении
func (r *PostgresRepository) IncrementClicks(ctx context.Context, linkID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE short_links SET click_count = click_count + 1 WHERE id = $1",
		linkID,
	)
	if err != nil {
		r.logger.Error("Failed to increment click count", zap.Int64("link_id", linkID), zap.Error(err))
		return err
	}
	return nil
}

// SaveClick сохраняет событие перехода с пустыми гео-полями
func (r *PostgresRepository) SaveClick(ctx context.Context, click *models.ClickEvent) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO clicks (link_id, ip, user_agent, referrer) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		click.LinkID, click.IP, click.UserAgent, click.Referrer,
	).Scan(&click.ID, &click.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to save click to database", zap.Int64("link_id", click.LinkID), zap.Error(err))
		return err
	}
	return nil
}

// UpdateClickGeo однократно дописывает гео-данные к событию
func (r *PostgresRepository) UpdateClickGeo(ctx context.Context, clickID int64, country, region, city string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE clicks SET country = $1, region = $2, city = $3 WHERE id = $4",
		country, region, city, clickID,
	)
	if err != nil {
		r.logger.Error("Failed to update click geo data", zap.Int64("click_id", clickID), zap.Error(err))
		return err
	}
	return nil
}

// RecentClicks возвращает не более limit последних событий, новые первыми
func (r *PostgresRepository) RecentClicks(ctx context.Context, linkID int64, limit int) ([]models.ClickEvent, error) {
	query, args, err := sq.Select("id", "link_id", "ip", "user_agent", "referrer", "country", "region", "city", "created_at").
		From("clicks").
		Where(sq.Eq{"link_id": linkID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query recent clicks", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var clicks []models.ClickEvent
	for rows.Next() {
		var c models.ClickEvent
		if err := rows.Scan(&c.ID, &c.LinkID, &c.IP, &c.UserAgent, &c.Referrer, &c.Country, &c.Region, &c.City, &c.CreatedAt); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clicks, nil
}

// Clear очищает все записи в таблицах
func (r *PostgresRepository) Clear() {
	_, err := r.db.ExecContext(context.Background(), "TRUNCATE TABLE clicks, short_links RESTART IDENTITY")
	if err != nil {
		r.logger.Error("Failed to clear database", zap.Error(err))
	}
}
