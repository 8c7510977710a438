package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"jobdocs-backend/internal/bootstrap"
	"jobdocs-backend/internal/shared/config"
	"jobdocs-backend/internal/shared/storage/db"
	"jobdocs-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor workerproc.Processor
)

func initApp() {
	app, err := bootstrap.Build(config.Load(), bootstrap.WithDBProfile(db.ProfileLambda))
	if err != nil {
		initErr = err
		return
	}
	processor = app.Batch
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return retryAll(event.Records), initErr
	}
	return processRecords(ctx, processor, event.Records), nil
}

// processRecords reports records that should be redelivered. Everything else
// is acknowledged by leaving it out of the failure list.
func processRecords(ctx context.Context, proc workerproc.Processor, records []events.SQSMessage) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, record := range records {
		res := workerproc.Handle(ctx, proc, record.Body, "lambda", map[string]any{"sqs_message_id": record.MessageId})
		if !res.Outcome.Ack() {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return resp
}

func retryAll(records []events.SQSMessage) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0, len(records))
	for _, record := range records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
