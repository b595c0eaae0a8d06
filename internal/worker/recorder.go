// Package worker содержит фоновый конвейер записи и обогащения переходов.
// Конвейер полностью изолирован от пути редиректа: его ошибки логируются
// и гасятся, а переполнение очереди приводит к потере события, но не к
// задержке ответа.
package worker

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/tempizhere/tinyhawk/internal/geo"
	"github.com/tempizhere/tinyhawk/internal/models"
	"github.com/tempizhere/tinyhawk/internal/repository"
	"go.uber.org/zap"
)

// Таймауты фоновых операций
const (
	storeTimeout  = 5 * time.Second
	lookupTimeout = 4 * time.Second
)

// Recorder записывает события переходов и обогащает их геоданными
type Recorder struct {
	clicks  repository.ClickRepository
	geo     geo.Provider
	logger  *zap.Logger
	jobs    chan models.ClickEvent
	wg      sync.WaitGroup
	pending sync.WaitGroup
}

// NewRecorder создаёт Recorder и запускает воркеры
func NewRecorder(clicks repository.ClickRepository, provider geo.Provider, logger *zap.Logger, workers, queueSize int) *Recorder {
	r := &Recorder{
		clicks: clicks,
		geo:    provider,
		logger: logger,
		jobs:   make(chan models.ClickEvent, queueSize),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

// Enqueue ставит событие в очередь, не блокируя вызывающего.
// При полной очереди событие теряется.
func (r *Recorder) Enqueue(click models.ClickEvent) {
	r.pending.Add(1)
	select {
	case r.jobs <- click:
	default:
		r.pending.Done()
		r.logger.Warn("Click queue is full, dropping click", zap.Int64("link_id", click.LinkID))
	}
}

// Flush дожидается обработки всех поставленных в очередь событий.
// Используется в тестах для детерминированной проверки итогового состояния.
func (r *Recorder) Flush() {
	r.pending.Wait()
}

// Stop закрывает очередь и дожидается воркеров
func (r *Recorder) Stop() {
	close(r.jobs)
	r.wg.Wait()
}

// run — цикл одного воркера
func (r *Recorder) run() {
	defer r.wg.Done()
	for click := range r.jobs {
		r.process(click)
		r.pending.Done()
	}
}

// process сохраняет событие и пытается обогатить его геоданными.
// Любая ошибка здесь — граница: логируем и продолжаем.
func (r *Recorder) process(click models.ClickEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic in click recorder", zap.Any("panic", p))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := r.clicks.SaveClick(ctx, &click); err != nil {
		r.logger.Warn("Failed to record click", zap.Int64("link_id", click.LinkID), zap.Error(err))
		return
	}

	if !lookupable(click.IP) {
		return
	}

	lookupCtx, lookupCancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer lookupCancel()

	loc, err := r.geo.Lookup(lookupCtx, click.IP)
	if err != nil {
		r.logger.Warn("Geo lookup failed", zap.String("ip", click.IP), zap.Error(err))
		return
	}
	if loc == nil {
		return
	}

	if err := r.clicks.UpdateClickGeo(ctx, click.ID, loc.Country, loc.Region, loc.City); err != nil {
		r.logger.Warn("Failed to enrich click", zap.Int64("click_id", click.ID), zap.Error(err))
	}
}

// lookupable сообщает, имеет ли смысл геопоиск для адреса.
// Приватные и локальные адреса пропускаются, событие остаётся без геоданных.
func lookupable(ip string) bool {
	if ip == "" {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return false
	}
	return true
}
