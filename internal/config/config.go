package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Telegram
	BotToken     string
	BotUsername  string
	PaymentToken string
	AdminID      int64
	StickerID    string

	// Database
	DBPath string

	// Conversion
	DownloadDir string
	FFmpegPath  string
	FFprobePath string

	// Flood protection
	FloodWindow    time.Duration
	FloodThreshold int

	// Payments
	Currency string

	// Metrics
	MetricsAddr string
}

func Load() *Config {
	return &Config{
		// Telegram
		BotToken:     getEnv("BOT_TOKEN", ""),
		BotUsername:  getEnv("BOT_USERNAME", "AtomicAudioConvertorBot"),
		PaymentToken: getEnv("PAYMENT_TOKEN", ""),
		AdminID:      getEnvInt64("ADMIN_ID", 0),
		StickerID:    getEnv("STICKER_ID", ""),

		// Database
		DBPath: getEnv("DB_PATH", "./convertor.db"),

		// Conversion
		DownloadDir: getEnv("DOWNLOAD_DIR", "./converts"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		// Flood protection
		FloodWindow:    time.Duration(getEnvInt("FLOOD_WINDOW_SECONDS", 2)) * time.Second,
		FloodThreshold: getEnvInt("FLOOD_THRESHOLD", 7),

		// Payments
		Currency: getEnv("CURRENCY", "UZS"),

		// Metrics
		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
