package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/audio"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/config"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/guardian"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/quota"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/telegram"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/workflow"
)

func main() {
	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	// Load config
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize quota engine
	engine := quota.New(store, log)

	// Initialize ffmpeg
	ff := audio.NewFFmpeg()
	ff.FFmpegPath = cfg.FFmpegPath
	ff.FFprobePath = cfg.FFprobePath
	if !ff.Available() {
		log.Warn("ffmpeg or ffprobe not found in PATH, conversions will fail",
			"ffmpeg", cfg.FFmpegPath, "ffprobe", cfg.FFprobePath)
	}

	// Reset the scratch dir from previous runs
	if err := sweepDownloadDir(cfg.DownloadDir); err != nil {
		log.Error("prepare download dir", "dir", cfg.DownloadDir, "error", err)
		os.Exit(1)
	}

	// The guardian notifies through the bot, which is created after it.
	var tgBot *telegram.Bot
	guard := guardian.New(cfg.FloodWindow, cfg.FloodThreshold, func(userID int64) {
		if tgBot != nil {
			tgBot.NotifyBan(userID)
		}
	}, log)

	// Initialize telegram bot
	tgBot, err = telegram.New(cfg, guard, engine, log)
	if err != nil {
		log.Error("init telegram bot", "error", err)
		os.Exit(1)
	}
	log.Info("telegram bot initialized")

	// The bot downloads uploads and delivers results itself
	wf := workflow.New(engine, ff, ff, tgBot, tgBot, cfg.DownloadDir, log)
	tgBot.AttachWorkflow(wf)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start guardian janitor
	go guard.Run(ctx)

	// Start metrics server
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", "error", err)
			}
		}()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	// Start bot polling
	log.Info("starting bot polling...")
	tgBot.Start(ctx)
}

// sweepDownloadDir removes leftover scratch files and recreates the dir.
func sweepDownloadDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
