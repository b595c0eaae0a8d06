package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config содержит настройки приложения
type Config struct {
	RunAddr         string
	GRPCAddr        string
	BaseURL         string
	FileStoragePath string
	DatabaseDSN     string
	RedisURL        string
	GeoProvider     string
	GeoAPIKey       string
}

// NewConfig создает и возвращает новый объект Config с настройками по умолчанию
// и парсит флаги командной строки. Файл .env, если он есть, подхватывается
// до чтения переменных окружения.
func NewConfig() (*Config, error) {
	// .env необязателен, его отсутствие не является ошибкой
	_ = godotenv.Load()

	cfg := &Config{
		RunAddr:     ":8080",
		BaseURL:     "http://localhost:8080",
		GeoProvider: "ipapi",
	}

	// Регистрируем флаги
	flagRunAddr := flag.String("a", ":8080", "address and port to run HTTP server")
	flagGRPCAddr := flag.String("grpc", "", "address and port to run gRPC server (disabled if empty)")
	flagBaseURL := flag.String("b", "http://localhost:8080", "base URL for shortened links")
	flagFilePath := flag.String("f", "", "path to file for storing links")
	flagDatabaseDSN := flag.String("d", "", "database DSN for PostgreSQL")
	flagRedisURL := flag.String("r", "", "Redis URL for the resolve cache")
	flagGeoProvider := flag.String("g", "ipapi", "geo lookup provider: ipapi, ipstack, ipinfo or none")
	flagGeoAPIKey := flag.String("k", "", "API key for the geo lookup provider")
	flag.Parse()

	// Проверяем переменные окружения
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.RunAddr = addr
	} else if *flagRunAddr != "" {
		cfg.RunAddr = *flagRunAddr
	}

	if addr := os.Getenv("GRPC_ADDRESS"); addr != "" {
		cfg.GRPCAddr = addr
	} else if *flagGRPCAddr != "" {
		cfg.GRPCAddr = *flagGRPCAddr
	}

	if url := os.Getenv("BASE_URL"); url != "" {
		cfg.BaseURL = url
	} else if *flagBaseURL != "" {
		cfg.BaseURL = *flagBaseURL
	}

	if path := os.Getenv("FILE_STORAGE_PATH"); path != "" {
		cfg.FileStoragePath = path
	} else if *flagFilePath != "" {
		cfg.FileStoragePath = *flagFilePath
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.DatabaseDSN = dsn
	} else if *flagDatabaseDSN != "" {
		cfg.DatabaseDSN = *flagDatabaseDSN
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.RedisURL = url
	} else if *flagRedisURL != "" {
		cfg.RedisURL = *flagRedisURL
	}

	if provider := os.Getenv("GEO_PROVIDER"); provider != "" {
		cfg.GeoProvider = provider
	} else if *flagGeoProvider != "" {
		cfg.GeoProvider = *flagGeoProvider
	}

	if key := os.Getenv("GEO_API_KEY"); key != "" {
		cfg.GeoAPIKey = key
	} else if *flagGeoAPIKey != "" {
		cfg.GeoAPIKey = *flagGeoAPIKey
	}

	// Валидация значений
	cfg.RunAddr = validateAddress(cfg.RunAddr)
	cfg.BaseURL = validateBaseURL(cfg.BaseURL)
	if cfg.FileStoragePath != "" {
		// Создаём директорию для файла, если она не существует
		dir := filepath.Dir(cfg.FileStoragePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// validateAddress дополняет адрес двоеточием, если указан только порт
func validateAddress(addr string) string {
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

// validateBaseURL дополняет базовый URL схемой, если она не указана
func validateBaseURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}
