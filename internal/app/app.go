package app

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/tempizhere/tinyhawk/internal/models"
	"github.com/tempizhere/tinyhawk/internal/repository"
	"github.com/tempizhere/tinyhawk/internal/service"
	"go.uber.org/zap"
)

// Размер стороны QR-кода в пикселях
const qrSize = 256

// HealthResponse описывает ответ проверки состояния сервиса
type HealthResponse struct {
	OK   bool      `json:"ok"`
	Time time.Time `json:"time"`
}

// ErrorResponse описывает тело ошибки для JSON API
type ErrorResponse struct {
	Message string `json:"message"`
}

// App содержит хендлеры и зависимости
type App struct {
	svc    *service.Service
	db     repository.Database
	logger *zap.Logger
}

// NewApp создаёт новое приложение
func NewApp(svc *service.Service, db repository.Database, logger *zap.Logger) *App {
	return &App{svc: svc, db: db, logger: logger}
}

// HandleShorten обрабатывает POST-запросы на "/api/shorten"
func (a *App) HandleShorten(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	var reqBody models.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		a.writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if reqBody.OriginalURL == "" {
		a.writeJSONError(w, http.StatusBadRequest, "originalUrl is required")
		return
	}

	link, err := a.svc.Shorten(r.Context(), reqBody.OriginalURL, reqBody.CustomAlias)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			a.writeJSONError(w, http.StatusBadRequest, "only http(s) URLs allowed")
		case errors.Is(err, service.ErrInvalidAlias):
			a.writeJSONError(w, http.StatusBadRequest, "customAlias contains invalid characters")
		case errors.Is(err, service.ErrAliasTaken):
			a.writeJSONError(w, http.StatusConflict, "custom alias already in use")
		default:
			a.logger.Error("Failed to shorten URL", zap.Error(err))
			a.writeJSONError(w, http.StatusInternalServerError, "server error")
		}
		return
	}

	respBody := models.ShortenResponse{
		ShortURL:     a.svc.ShortURL(link.Code),
		ShortCode:    link.Code,
		AnalyticsURL: a.svc.BaseURL() + "/api/stats/" + link.Code,
		CreatedAt:    link.CreatedAt,
		ClickCount:   link.ClickCount,
	}
	a.writeJSONResponse(w, http.StatusCreated, respBody)
}

// HandleRedirect обрабатывает GET-запросы на "/{code}".
// Ответ с редиректом не ждёт записи перехода и геопоиска.
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	click := models.ClickEvent{
		IP:        clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		Referrer:  r.Header.Get("Referer"),
	}

	originalURL, err := a.svc.Resolve(r.Context(), code, click)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		a.logger.Error("Failed to resolve code", zap.String("code", code), zap.Error(err))
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// HandleStats обрабатывает GET-запросы на "/api/stats/{code}"
func (a *App) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := chi.URLParam(r, "code")

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			a.writeJSONError(w, http.StatusBadRequest, "days must be a number")
			return
		}
		days = parsed
	}

	stats, err := a.svc.Stats(r.Context(), code, days)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.writeJSONError(w, http.StatusNotFound, "Not found")
			return
		}
		a.logger.Error("Failed to build stats", zap.String("code", code), zap.Error(err))
		a.writeJSONError(w, http.StatusInternalServerError, "server error")
		return
	}

	a.writeJSONResponse(w, http.StatusOK, stats)
}

// HandleQRCode обрабатывает GET-запросы на "/api/qr/{code}" и возвращает
// PNG с QR-кодом короткой ссылки
func (a *App) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := chi.URLParam(r, "code")

	link, err := a.svc.Link(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		a.logger.Error("Failed to get link for QR code", zap.String("code", code), zap.Error(err))
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	png, err := qrcode.Encode(a.svc.ShortURL(link.Code), qrcode.Medium, qrSize)
	if err != nil {
		a.logger.Error("Failed to encode QR code", zap.String("code", code), zap.Error(err))
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		a.logger.Error("Failed to write QR code response", zap.Error(err))
	}
}

// HandleHealth обрабатывает GET-запросы на "/api/health"
func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, HealthResponse{OK: true, Time: time.Now().UTC()})
}

// HandlePing обрабатывает GET-запросы на "/ping"
func (a *App) HandlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.db == nil {
		http.Error(w, "Database not configured", http.StatusInternalServerError)
		return
	}
	if err := a.db.Ping(); err != nil {
		http.Error(w, "Database connection failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeJSONResponse пишет JSON-ответ с проверкой ошибок
func (a *App) writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		a.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeJSONError пишет тело ошибки в формате JSON API
func (a *App) writeJSONError(w http.ResponseWriter, status int, message string) {
	a.writeJSONResponse(w, status, ErrorResponse{Message: message})
}

// clientIP извлекает IP клиента: первый элемент X-Forwarded-For,
// иначе адрес соединения. Префикс IPv6-mapped-IPv4 отбрасывается.
func clientIP(r *http.Request) string {
	ip := ""
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		ip = strings.TrimSpace(parts[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}
	return strings.TrimPrefix(ip, "::ffff:")
}
