package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/cardsync/internal/api"
	"github.com/example/cardsync/internal/connectivity"
	"github.com/example/cardsync/internal/excel"
	"github.com/example/cardsync/internal/service"
	"github.com/example/cardsync/internal/storage"
	syncengine "github.com/example/cardsync/internal/sync"
)

func main() {
	// .env не обязателен, переменные могут прийти из окружения
	_ = godotenv.Load()

	// Создаем канал для сигналов
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Создаем контекст с отменой
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Подключаемся к базе данных
	store, err := storage.Open()
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	remote, err := api.NewHTTPClient()
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	// Монитор связи опрашивает /health сервера
	monitor := connectivity.NewMonitor(remote, durationFromEnv("PROBE_INTERVAL_SECONDS", connectivity.DefaultProbeInterval))
	monitor.Start(ctx)
	defer monitor.Stop()

	svc, err := service.New(store, remote, monitor)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	trigger := syncengine.NewTrigger(svc.Processor(), svc.Queue(), monitor,
		durationFromEnv("SYNC_INTERVAL_SECONDS", syncengine.DefaultSyncInterval))
	trigger.Start()
	defer trigger.Stop()

	// Разовый импорт колоды из файла, если задан
	if path := os.Getenv("IMPORT_FILE"); path != "" {
		runImport(svc, path)
	}

	log.Printf("Card sync service started (%d mutations pending). Press Ctrl+C to stop.", svc.PendingCount())

	// Ждем сигнала завершения
	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	cancel()

	// Даем время на graceful shutdown: последний шанс досинхронизировать
	if svc.HasPendingChanges() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if _, err := svc.ForceSync(shutdownCtx); err != nil {
			log.Printf("Final sync failed: %v", err)
		}
	}

	log.Println("Card sync service stopped")
}

// runImport imports cards from IMPORT_FILE into IMPORT_DECK_ID
func runImport(svc *service.Service, path string) {
	deckID := os.Getenv("IMPORT_DECK_ID")
	if deckID == "" {
		log.Println("IMPORT_DECK_ID is not set, skipping import")
		return
	}

	config := excel.DefaultImportConfig()
	config.FilePath = path
	config.DeckID = deckID

	result, err := excel.ImportCards(svc, config)
	if err != nil {
		log.Printf("Import failed: %v", err)
		return
	}

	log.Printf("Import finished: %d processed, %d created, %d skipped", result.TotalProcessed, result.Created, result.Skipped)
	for _, msg := range result.Errors {
		log.Printf("Import error: %s", msg)
	}
}

// durationFromEnv reads a duration in seconds from the environment
func durationFromEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		log.Printf("Invalid %s value %q, using default", name, raw)
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
