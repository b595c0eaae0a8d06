package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tempizhere/tinyhawk/internal/models"
	"go.uber.org/zap"
)

func TestFileRepository_PersistsLinks(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "links.json")
	ctx := context.Background()

	repo, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)

	link := models.ShortLink{Code: "abc123", OriginalURL: "https://example.com"}
	assert.NoError(t, repo.SaveLink(ctx, &link))

	alias := models.ShortLink{Code: "my-alias", OriginalURL: "https://other.example.com", IsCustomAlias: true}
	assert.NoError(t, repo.SaveLink(ctx, &alias))

	// Новый экземпляр читает ссылки из файла
	reopened, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)

	got, err := reopened.GetLinkByCode(ctx, "abc123")
	assert.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, "https://example.com", got.OriginalURL)

	got, err = reopened.GetLinkByCode(ctx, "my-alias")
	assert.NoError(t, err)
	assert.True(t, got.IsCustomAlias)

	// Нумерация продолжается после перезапуска
	next := models.ShortLink{Code: "next", OriginalURL: "https://example.com/next"}
	assert.NoError(t, reopened.SaveLink(ctx, &next))
	assert.Equal(t, alias.ID+1, next.ID)
}

func TestFileRepository_SkipsInvalidLines(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "links.json")

	// Файл с корректной записью, мусорной строкой и ещё одной корректной
	content := `{"id":1,"code":"first","original_url":"https://example.com","is_custom_alias":false,"created_at":"2025-06-01T12:00:00Z"}
not a json line
{"id":2,"code":"second","original_url":"https://other.example.com","is_custom_alias":false,"created_at":"2025-06-01T13:00:00Z"}
`
	assert.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

	repo, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)

	ctx := context.Background()
	_, err = repo.GetLinkByCode(ctx, "first")
	assert.NoError(t, err)
	_, err = repo.GetLinkByCode(ctx, "second")
	assert.NoError(t, err)
}

func TestFileRepository_DuplicateCode(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "links.json")
	ctx := context.Background()

	repo, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)

	link := models.ShortLink{Code: "taken", OriginalURL: "https://example.com"}
	assert.NoError(t, repo.SaveLink(ctx, &link))

	dup := models.ShortLink{Code: "taken", OriginalURL: "https://other.example.com"}
	assert.ErrorIs(t, repo.SaveLink(ctx, &dup), ErrCodeExists)
}

func TestFileRepository_ClicksInMemoryOnly(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "links.json")
	ctx := context.Background()

	repo, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)

	link := models.ShortLink{Code: "abc123", OriginalURL: "https://example.com"}
	assert.NoError(t, repo.SaveLink(ctx, &link))

	click := models.ClickEvent{LinkID: link.ID, IP: "203.0.113.1"}
	assert.NoError(t, repo.SaveClick(ctx, &click))
	assert.NoError(t, repo.UpdateClickGeo(ctx, click.ID, "France", "", "Paris"))

	clicks, err := repo.RecentClicks(ctx, link.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, clicks, 1)
	assert.Equal(t, "France", clicks[0].Country)

	// События не сохраняются в файл и не переживают перезапуск
	reopened, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)
	clicks, err = reopened.RecentClicks(ctx, link.ID, 10)
	assert.NoError(t, err)
	assert.Empty(t, clicks)
}

func TestFileRepository_Clear(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "links.json")
	ctx := context.Background()

	repo, err := NewFileRepository(filePath, zap.NewNop())
	assert.NoError(t, err)

	link := models.ShortLink{Code: "abc123", OriginalURL: "https://example.com"}
	assert.NoError(t, repo.SaveLink(ctx, &link))

	repo.Clear()

	_, err = repo.GetLinkByCode(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	// Файл пересоздан пустым
	data, err := os.ReadFile(filePath)
	assert.NoError(t, err)
	assert.Empty(t, data)
}
