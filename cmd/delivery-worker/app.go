package main

import (
	"context"
	"fmt"
	"time"

	"github.com/EcoChain/delivery-core/config"
	"github.com/EcoChain/delivery-core/internal/broker/kafka"
	"github.com/EcoChain/delivery-core/internal/services/advancer"
	"github.com/EcoChain/delivery-core/internal/storage/pgdelivery"
)

type workerFactories struct {
	newStorage  func(cfg *config.Config) (repo advancer.Repository, closeFn func(), err error)
	newProducer func(cfg *config.Config) advancer.Producer

	// onAdvancerReady получает собранный адвансер до запуска цикла —
	// сюда вешается ops HTTP сервер (/stats, /trigger).
	onAdvancerReady func(a *advancer.Advancer)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (advancer.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgdelivery.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) advancer.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
	}
}

func thresholdsFromConfig(cfg *config.Config) advancer.Thresholds {
	th := advancer.DefaultThresholds()
	if v := cfg.EcoChain.ExpressInTransitAfterSeconds; v > 0 {
		th.ExpressInTransitAfter = time.Duration(v) * time.Second
	}
	if v := cfg.EcoChain.ExpressDeliveredAfterSeconds; v > 0 {
		th.ExpressDeliveredAfter = time.Duration(v) * time.Second
	}
	if v := cfg.EcoChain.CarrierInTransitAfterSeconds; v > 0 {
		th.CarrierInTransitAfter = time.Duration(v) * time.Second
	}
	if v := cfg.EcoChain.CarrierDeliveredAfterSeconds; v > 0 {
		th.CarrierDeliveredAfter = time.Duration(v) * time.Second
	}
	return th
}

func RunDeliveryWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	topic := cfg.Kafka.StatusUpdatedTopicName
	if topic == "" {
		topic = "delivery.status.updated"
	}

	pollInterval := time.Duration(cfg.EcoChain.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Minute
	}
	batchSize := cfg.EcoChain.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.EcoChain.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	lease := time.Duration(cfg.EcoChain.WorkerLeaseSeconds) * time.Second
	if lease <= 0 {
		lease = 120 * time.Second
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)

	a := advancer.New(repo, producer, topic).
		WithSettings(pollInterval, batchSize, concurrency, lease).
		WithThresholds(thresholdsFromConfig(cfg))

	if f.onAdvancerReady != nil {
		f.onAdvancerReady(a)
	}

	return a.Run(ctx)
}
