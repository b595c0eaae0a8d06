package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tempizhere/tinyhawk/internal/geo"
	"github.com/tempizhere/tinyhawk/internal/models"
	"github.com/tempizhere/tinyhawk/internal/repository"
	"go.uber.org/zap"
)

// stubProvider считает обращения и отдаёт заранее заданный результат
type stubProvider struct {
	mu       sync.Mutex
	lookups  int
	location *geo.Location
	err      error
}

func (p *stubProvider) Lookup(ctx context.Context, ip string) (*geo.Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups++
	return p.location, p.err
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookups
}

// failingClickRepo отклоняет сохранение событий
type failingClickRepo struct {
	*repository.MemoryRepository
}

func (r *failingClickRepo) SaveClick(ctx context.Context, click *models.ClickEvent) error {
	return errors.New("storage unavailable")
}

func newTestLink(t *testing.T, repo *repository.MemoryRepository) models.ShortLink {
	t.Helper()
	link := models.ShortLink{Code: "abc123", OriginalURL: "https://example.com"}
	err := repo.SaveLink(context.Background(), &link)
	assert.NoError(t, err)
	return link
}

func TestRecorder_SavesAndEnriches(t *testing.T) {
	repo := repository.NewMemoryRepository()
	link := newTestLink(t, repo)
	provider := &stubProvider{location: &geo.Location{Country: "France", Region: "Île-de-France", City: "Paris"}}

	recorder := NewRecorder(repo, provider, zap.NewNop(), 2, 16)
	defer recorder.Stop()

	recorder.Enqueue(models.ClickEvent{LinkID: link.ID, IP: "203.0.113.1", UserAgent: "test-agent"})
	recorder.Flush()

	assert.Equal(t, 1, provider.calls())
	clicks, err := repo.RecentClicks(context.Background(), link.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, clicks, 1)
	assert.Equal(t, "France", clicks[0].Country)
	assert.Equal(t, "Paris", clicks[0].City)
	assert.Equal(t, "test-agent", clicks[0].UserAgent)
}

func TestRecorder_SkipsPrivateAddresses(t *testing.T) {
	repo := repository.NewMemoryRepository()
	link := newTestLink(t, repo)
	provider := &stubProvider{location: &geo.Location{Country: "France"}}

	recorder := NewRecorder(repo, provider, zap.NewNop(), 1, 16)
	defer recorder.Stop()

	// Приватные и локальные адреса не уходят в геопоиск,
	// но сами события записываются
	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.1", "::1", "", "not-an-ip", "::ffff:10.0.0.5"} {
		recorder.Enqueue(models.ClickEvent{LinkID: link.ID, IP: ip})
	}
	recorder.Flush()

	assert.Zero(t, provider.calls(), "Private addresses should not trigger geo lookups")
	clicks, err := repo.RecentClicks(context.Background(), link.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, clicks, 7)
	for _, c := range clicks {
		assert.Empty(t, c.Country)
	}
}

func TestRecorder_GeoErrorLeavesClick(t *testing.T) {
	repo := repository.NewMemoryRepository()
	link := newTestLink(t, repo)
	provider := &stubProvider{err: errors.New("provider down")}

	recorder := NewRecorder(repo, provider, zap.NewNop(), 1, 16)
	defer recorder.Stop()

	recorder.Enqueue(models.ClickEvent{LinkID: link.ID, IP: "203.0.113.1"})
	recorder.Flush()

	// Ошибка геопоиска гасится, событие остаётся без геоданных
	clicks, err := repo.RecentClicks(context.Background(), link.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, clicks, 1)
	assert.Empty(t, clicks[0].Country)
}

func TestRecorder_NoDataFromProvider(t *testing.T) {
	repo := repository.NewMemoryRepository()
	link := newTestLink(t, repo)
	// nil без ошибки означает отсутствие данных
	provider := &stubProvider{}

	recorder := NewRecorder(repo, provider, zap.NewNop(), 1, 16)
	defer recorder.Stop()

	recorder.Enqueue(models.ClickEvent{LinkID: link.ID, IP: "203.0.113.1"})
	recorder.Flush()

	assert.Equal(t, 1, provider.calls())
	clicks, err := repo.RecentClicks(context.Background(), link.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, clicks, 1)
	assert.Empty(t, clicks[0].Country)
}

func TestRecorder_StorageErrorSwallowed(t *testing.T) {
	repo := repository.NewMemoryRepository()
	link := newTestLink(t, repo)
	provider := &stubProvider{location: &geo.Location{Country: "France"}}
	failing := &failingClickRepo{MemoryRepository: repo}

	recorder := NewRecorder(failing, provider, zap.NewNop(), 1, 16)
	defer recorder.Stop()

	// Отказ хранилища не роняет воркера и не доходит до геопоиска
	recorder.Enqueue(models.ClickEvent{LinkID: link.ID, IP: "203.0.113.1"})
	recorder.Flush()

	assert.Zero(t, provider.calls())
	clicks, err := repo.RecentClicks(context.Background(), link.ID, 10)
	assert.NoError(t, err)
	assert.Empty(t, clicks)
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	repo := repository.NewMemoryRepository()
	link := newTestLink(t, repo)

	// Recorder без воркеров: очередь никогда не разгружается
	recorder := &Recorder{
		clicks: repo,
		geo:    geo.NoopProvider{},
		logger: zap.NewNop(),
		jobs:   make(chan models.ClickEvent, 2),
	}

	for i := 0; i < 5; i++ {
		recorder.Enqueue(models.ClickEvent{LinkID: link.ID})
	}

	// Лишние события потеряны, в очереди ровно её ёмкость
	assert.Len(t, recorder.jobs, 2)
	// Flush не должен зависнуть на потерянных событиях
	go func() {
		for click := range recorder.jobs {
			_ = repo.SaveClick(context.Background(), &click)
			recorder.pending.Done()
		}
	}()
	close(recorder.jobs)
	recorder.Flush()

	clicks, err := repo.RecentClicks(context.Background(), link.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, clicks, 2)
}

func TestLookupable(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"203.0.113.1", true},
		{"2001:db8::1", true},
		{"::ffff:203.0.113.1", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.0.1", false},
		{"169.254.1.1", false},
		{"::1", false},
		{"::ffff:192.168.0.1", false},
		{"0.0.0.0", false},
		{"fe80::1", false},
		{"", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.expected, lookupable(tt.ip))
		})
	}
}
