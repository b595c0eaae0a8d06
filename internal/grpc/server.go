// Package grpc содержит реализацию gRPC сервера для сервиса сокращения URL
package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/tempizhere/tinyhawk/internal/grpc/proto"
	"github.com/tempizhere/tinyhawk/internal/models"
	"github.com/tempizhere/tinyhawk/internal/repository"
	"github.com/tempizhere/tinyhawk/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server реализует gRPC сервер для сервиса сокращения URL
type Server struct {
	proto.UnimplementedShortenerServiceServer
	svc    *service.Service
	db     repository.Database
	logger *zap.Logger
}

// NewServer создаёт новый gRPC сервер
func NewServer(svc *service.Service, db repository.Database, logger *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		db:     db,
		logger: logger,
	}
}

// Shorten обрабатывает создание короткой ссылки
func (s *Server) Shorten(ctx context.Context, req *proto.ShortenRequest) (*proto.ShortenResponse, error) {
	if req.OriginalURL == "" {
		return nil, status.Error(codes.InvalidArgument, "original URL is required")
	}

	link, err := s.svc.Shorten(ctx, req.OriginalURL, req.CustomAlias)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &proto.ShortenResponse{
		ShortURL:   s.svc.ShortURL(link.Code),
		ShortCode:  link.Code,
		CreatedAt:  link.CreatedAt.Format(time.RFC3339),
		ClickCount: link.ClickCount,
	}, nil
}

// Resolve обрабатывает переход по коду: возвращает оригинальный URL
// и учитывает переход так же, как HTTP-редирект
func (s *Server) Resolve(ctx context.Context, req *proto.ResolveRequest) (*proto.ResolveResponse, error) {
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	click := models.ClickEvent{
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
	}
	originalURL, err := s.svc.Resolve(ctx, req.Code, click)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &proto.ResolveResponse{OriginalURL: originalURL}, nil
}

// GetStats обрабатывает запрос аналитики по коду
func (s *Server) GetStats(ctx context.Context, req *proto.GetStatsRequest) (*proto.GetStatsResponse, error) {
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	stats, err := s.svc.Stats(ctx, req.Code, int(req.WindowDays))
	if err != nil {
		return nil, s.mapError(err)
	}

	resp := &proto.GetStatsResponse{
		ShortCode:   stats.Summary.ShortCode,
		ShortURL:    stats.Summary.ShortURL,
		OriginalURL: stats.Summary.OriginalURL,
		CreatedAt:   stats.Summary.CreatedAt.Format(time.RFC3339),
		ClickCount:  stats.Summary.ClickCount,
	}
	for _, p := range stats.Timeseries {
		resp.Timeseries = append(resp.Timeseries, &proto.TimePoint{Date: p.Date, Count: int64(p.Count)})
	}
	for _, g := range stats.Geo {
		resp.Geo = append(resp.Geo, &proto.GeoCount{Country: g.Country, Count: int64(g.Count)})
	}
	for _, ref := range stats.TopReferrers {
		resp.TopReferrers = append(resp.TopReferrers, &proto.ReferrerCount{Referrer: ref.Referrer, Count: int64(ref.Count)})
	}
	return resp, nil
}

// Ping обрабатывает проверку состояния сервиса
func (s *Server) Ping(ctx context.Context, req *proto.PingRequest) (*proto.PingResponse, error) {
	if s.db == nil {
		return &proto.PingResponse{DatabaseAvailable: false}, nil
	}
	if err := s.db.Ping(); err != nil {
		return &proto.PingResponse{DatabaseAvailable: false}, nil
	}
	return &proto.PingResponse{DatabaseAvailable: true}, nil
}

// mapError переводит ошибки сервиса в коды gRPC
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidURL), errors.Is(err, service.ErrInvalidAlias):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrAliasTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrCodeExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		s.logger.Error("Internal gRPC error", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
