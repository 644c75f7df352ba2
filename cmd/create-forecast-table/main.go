// Command create-forecast-table provisions the DynamoDB table used by the durable store.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/config"
	"github.com/i474232898/weather-forecast-api/internal/logging"
	"github.com/i474232898/weather-forecast-api/internal/store"
)

func main() {
	table := flag.String("table", "", "table name (defaults to FORECAST_TABLE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *table == "" {
		*table = cfg.ForecastTable
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	client, err := store.NewDynamoClient(ctx, store.DynamoConfig{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.DynamoDBURL,
		AccessKeyID:     cfg.AWSAccessKey,
		SecretAccessKey: cfg.AWSSecretKey,
	})
	if err != nil {
		logger.Fatal("failed to create DynamoDB client", zap.Error(err))
	}

	if err := store.EnsureTable(ctx, client, *table, logger); err != nil {
		logger.Fatal("failed to provision forecast table", zap.String("table", *table), zap.Error(err))
	}
}
