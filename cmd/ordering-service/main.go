// Command ordering-service поднимает хранилище заказов, read-пути и
// доставку доменных событий.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/app"
	"github.com/vladislavdragonenkov/ordering/internal/config"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(cfg config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(cfg.Level())
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"metrics_addr":  cfg.MetricsAddr,
		"storage":       cfg.Storage.Driver,
		"primary_path":  cfg.Queries.Primary,
		"shadow":        cfg.Queries.Shadow,
		"kafka_brokers": cfg.Kafka.Brokers,
	}).Info("запускаем ordering service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("ordering service остановлен")
}
