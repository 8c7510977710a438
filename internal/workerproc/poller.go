package workerproc

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"jobdocs-backend/internal/shared/telemetry"
)

const receiveCountAttr = "ApproximateReceiveCount"

// SQSAPI is the subset of the SQS client the poller needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Poller long-polls an SQS queue and hands each message to a Processor.
type Poller struct {
	API             SQSAPI
	QueueURL        string
	Processor       Processor
	Concurrency     int
	Visibility      time.Duration
	ShutdownTimeout time.Duration
}

// Run polls until ctx is cancelled, then waits up to ShutdownTimeout for
// in-flight batches. Batches run on a context detached from ctx so a shutdown
// signal does not abort work already started.
func (p *Poller) Run(ctx context.Context) error {
	if p.Processor == nil {
		return ErrNoProcessor
	}
	sem := make(chan struct{}, max(1, p.Concurrency))
	work := context.WithoutCancel(ctx)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue_url":      p.QueueURL,
		"concurrency":    cap(sem),
		"visibility_sec": int(p.Visibility.Seconds()),
	})

poll:
	for ctx.Err() == nil {
		resp, err := p.API.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.QueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(p.Visibility.Seconds()),
			AttributeNames:      []sqstypes.QueueAttributeName{receiveCountAttr},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break poll
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				p.handle(work, m)
			}(msg)
		}
	}

	return p.drain(&wg)
}

func (p *Poller) drain(wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		telemetry.Info("worker.stopped", nil)
		return nil
	case <-time.After(p.ShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout_sec": int(p.ShutdownTimeout.Seconds())})
		return context.DeadlineExceeded
	}
}

func (p *Poller) handle(ctx context.Context, msg sqstypes.Message) Result {
	extra := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  ReceiveCount(msg),
	}
	res := Handle(ctx, p.Processor, aws.ToString(msg.Body), "worker", extra)
	if res.Outcome.Ack() {
		p.delete(ctx, msg, extra)
	}
	return res
}

func (p *Poller) delete(ctx context.Context, msg sqstypes.Message, fields map[string]any) {
	receipt := aws.ToString(msg.ReceiptHandle)
	var err error
	if receipt == "" {
		err = errors.New("missing receipt handle")
	} else {
		_, err = p.API.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(p.QueueURL),
			ReceiptHandle: aws.String(receipt),
		})
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.delete_failed", fields)
	}
}

// ReceiveCount returns the SQS delivery attempt number, or 0 when unknown.
func ReceiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes[receiveCountAttr])
	if err != nil {
		return 0
	}
	return n
}
