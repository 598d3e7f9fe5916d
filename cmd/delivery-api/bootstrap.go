package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EcoChain/delivery-core/config"
	"github.com/EcoChain/delivery-core/internal/api/deliveries_api"
	"github.com/EcoChain/delivery-core/internal/broker/kafka"
	"github.com/EcoChain/delivery-core/internal/cache/rediscache"
	"github.com/EcoChain/delivery-core/internal/integrations/routing"
	"github.com/EcoChain/delivery-core/internal/integrations/routing/fake"
	"github.com/EcoChain/delivery-core/internal/integrations/routing/nominatimhttp"
	"github.com/EcoChain/delivery-core/internal/integrations/routing/osrmhttp"
	"github.com/EcoChain/delivery-core/internal/services/distance"
	"github.com/EcoChain/delivery-core/internal/services/planner"
	"github.com/EcoChain/delivery-core/internal/services/transactions"
	"github.com/EcoChain/delivery-core/internal/storage/pgdelivery"
)

type deliveryAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     deliveryAPIOpts
	api      *deliveries_api.DeliveriesAPI
	svc      *transactions.Service
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapDeliveryAPI() *deliveryAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.EcoChain.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.EcoChain.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "delivery-api"
	}
	topic := cfg.Kafka.StatusUpdatedTopicName
	if topic == "" {
		topic = "delivery.status.updated"
	}

	currentTTL := time.Duration(cfg.EcoChain.CurrentStatusTTLSeconds) * time.Second
	if currentTTL <= 0 {
		currentTTL = 10 * time.Minute
	}
	planTTL := time.Duration(cfg.EcoChain.PlanTTLSeconds) * time.Second
	if planTTL <= 0 {
		planTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	routingTimeout := time.Duration(cfg.Routing.TimeoutSeconds) * time.Second
	var routingClient routing.Client
	if cfg.Routing.Mode == "fake" {
		routingClient = fake.New()
	} else {
		routingClient = osrmhttp.New(cfg.Routing.BaseURL, cfg.Routing.AlternateBaseURL, routingTimeout)
	}

	var geocoder routing.Geocoder
	if cfg.Routing.GeocodeBaseURL != "" {
		geocoder = nominatimhttp.New(cfg.Routing.GeocodeBaseURL, routingTimeout)
	}

	estimator := distance.New(routingClient).
		WithRateLimiter(rediscache.NewRateLimiter(redisAddr), int64(cfg.Routing.RateLimitPerMinute)).
		WithPathPoints(cfg.EcoChain.FallbackPathPoints)

	svc := transactions.New(st, rc, currentTTL)
	planSvc := planner.New(estimator, rc, planTTL)
	api := deliveries_api.New(svc, planSvc, estimator, geocoder)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &deliveryAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: deliveryAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		api:      api,
		svc:      svc,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgdelivery.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgdelivery.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *deliveryAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *deliveryAPIApp) Run() error {
	return runDeliveryAPI(a.ctx, a.opts, a.api, a.svc, a.consumer)
}
