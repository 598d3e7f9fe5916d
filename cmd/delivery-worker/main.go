package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EcoChain/delivery-core/config"
	"github.com/EcoChain/delivery-core/internal/services/advancer"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	f := defaultWorkerFactories()

	// Ops HTTP сервер поднимается только когда задан swaggerPath.
	if swaggerPath := os.Getenv("swaggerPath"); swaggerPath != "" {
		f.onAdvancerReady = func(a *advancer.Advancer) {
			go func() {
				_ = runWorkerHTTPServer(ctx, workerHTTPOpts{
					httpAddr:    cfg.EcoChain.WorkerHTTPAddr,
					swaggerPath: swaggerPath,
					advancer:    a,
					cfg:         cfg,
				})
			}()
		}
	}

	if err := RunDeliveryWorker(ctx, cfg, f); err != nil && err != context.Canceled {
		panic(err)
	}
}
