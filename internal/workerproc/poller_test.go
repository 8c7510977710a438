package workerproc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"jobdocs-backend/internal/batch"
	"jobdocs-backend/internal/queue"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]sqstypes.Message
	deleted  []string
	received int
	cancel   context.CancelFunc
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
	if len(f.batches) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		return nil, context.Canceled
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: next}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func sqsMessage(t *testing.T, id string, msg queue.Message) sqstypes.Message {
	t.Helper()
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body(t, msg)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestPollerHandleDeletesOnlyAcknowledged(t *testing.T) {
	proc := &fakeProcessor{errs: map[int64]error{
		2: errors.New("db down"),
		3: fmt.Errorf("%w: 3", batch.ErrApplicationNotFound),
	}}
	api := &fakeSQS{}
	p := &Poller{API: api, QueueURL: "queue", Processor: proc}

	p.handle(context.Background(), sqsMessage(t, "ok", queue.Message{ApplicationID: 1}))
	p.handle(context.Background(), sqsMessage(t, "retry", queue.Message{ApplicationID: 2}))
	p.handle(context.Background(), sqsMessage(t, "gone", queue.Message{ApplicationID: 3}))
	p.handle(context.Background(), sqstypes.Message{MessageId: aws.String("junk"), ReceiptHandle: aws.String("r-junk"), Body: aws.String("{bad")})

	want := []string{"r-ok", "r-gone", "r-junk"}
	if fmt.Sprint(api.deleted) != fmt.Sprint(want) {
		t.Fatalf("expected deletes %v, got %v", want, api.deleted)
	}
}

func TestPollerRunProcessesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeSQS{
		cancel: cancel,
		batches: [][]sqstypes.Message{
			{sqsMessage(t, "a", queue.Message{ApplicationID: 1}), sqsMessage(t, "b", queue.Message{ApplicationID: 2})},
			{sqsMessage(t, "c", queue.Message{ApplicationID: 3})},
		},
	}
	proc := &lockedProcessor{}
	p := &Poller{
		API:             api,
		QueueURL:        "queue",
		Processor:       proc,
		Concurrency:     2,
		Visibility:      20 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
	}

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if proc.count() != 3 || len(api.deleted) != 3 {
		t.Fatalf("expected 3 processed and deleted, got %d and %v", proc.count(), api.deleted)
	}
}

func TestPollerRunRequiresProcessor(t *testing.T) {
	p := &Poller{API: &fakeSQS{}}
	if err := p.Run(context.Background()); !errors.Is(err, ErrNoProcessor) {
		t.Fatalf("expected ErrNoProcessor, got %v", err)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := ReceiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := ReceiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

type lockedProcessor struct {
	mu  sync.Mutex
	ids []int64
}

func (l *lockedProcessor) GenerateAll(ctx context.Context, applicationID int64) (batch.Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, applicationID)
	return batch.Summary{ApplicationID: applicationID}, nil
}

func (l *lockedProcessor) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}
