//go:build !wireinject
// +build !wireinject

// Package di assembles the application. InitializeApp below follows the
// provider set declared in wire.go call for call; running wire in this
// directory regenerates this file from it.
package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	redisCache, err := ProvideRedisCache(cfg)
	if err != nil {
		return nil, err
	}
	service := ProvideCache(redisCache)
	priceStore, err := ProvidePriceStore(cfg, client, service, logger)
	if err != nil {
		return nil, err
	}
	v := ProvideModelSpecs(cfg)
	remoteOptions := ProvideRemoteOptions(cfg)
	recorder := ProvideMetrics()
	orchestratorFactory := ProvideOrchestratorFactory(v, remoteOptions, recorder, logger)
	runStore := ProvideRunStore(cfg, client)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	kafkaResultPublisher := ProvideKafkaResultPublisher(producer, cfg)
	resultPublisher := ProvideResultPublisher(kafkaResultPublisher)
	forecastService := ProvideForecastService(priceStore, orchestratorFactory, runStore, resultPublisher, service, recorder, logger)
	jobStatusStore := ProvideJobStatusStore(cfg, service)
	queue := ProvideQueue(cfg, redisCache, logger)
	backtestJobHandler := ProvideBacktestJobHandler(forecastService, jobStatusStore, queue, logger)
	limiter := ProvideRateLimiter(cfg)
	handler := ProvideHTTPHandler(logger, forecastService, backtestJobHandler, limiter)
	httpServer := ProvideHTTPServer(cfg, handler, logger)
	app := ProvideApp(cfg, logger, httpServer, queue, service, client, kafkaResultPublisher)
	return app, nil
}
