package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"jobdocs-backend/internal/bootstrap"
	"jobdocs-backend/internal/shared/config"
	"jobdocs-backend/internal/shared/storage/db"
	"jobdocs-backend/internal/workerproc"
)

func main() {
	cfg := config.Load()
	if cfg.QueueURL == "" {
		log.Fatal("JD_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region(cfg.AWSRegion)))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg, bootstrap.WithDBProfile(db.ProfileWorker))
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	poller := &workerproc.Poller{
		API:             sqs.NewFromConfig(awsCfg),
		QueueURL:        cfg.QueueURL,
		Processor:       app.Batch,
		Concurrency:     cfg.Batch.WorkerConcurrency,
		Visibility:      envSeconds("JD_SQS_VISIBILITY_TIMEOUT_SECONDS", 20*time.Minute),
		ShutdownTimeout: envSeconds("JD_SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
	}
	if err := poller.Run(ctx); err != nil {
		log.Printf("worker stopped: %v", err)
	}
}

func region(r string) string {
	if strings.TrimSpace(r) == "" {
		return "us-east-1"
	}
	return r
}

func envSeconds(key string, def time.Duration) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
