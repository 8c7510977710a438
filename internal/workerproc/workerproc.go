// Package workerproc turns queued batch requests into GenerateAll calls and
// decides what happens to each message afterwards.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"jobdocs-backend/internal/batch"
	"jobdocs-backend/internal/queue"
	"jobdocs-backend/internal/shared/metrics"
	"jobdocs-backend/internal/shared/telemetry"
)

// Processor runs batch generation for an application.
type Processor interface {
	GenerateAll(ctx context.Context, applicationID int64) (batch.Summary, error)
}

// Outcome tells the transport what to do with a message.
type Outcome int

const (
	Completed Outcome = iota // batch ran, acknowledge
	Dropped                  // retrying cannot help, acknowledge
	Retry                    // leave for redelivery
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Dropped:
		return "dropped"
	default:
		return "retry"
	}
}

// Ack reports whether the message should be removed from the queue.
func (o Outcome) Ack() bool { return o != Retry }

var (
	ErrEmptyBody     = errors.New("empty message body")
	ErrMissingID     = errors.New("missing application id")
	ErrNoProcessor   = errors.New("batch service not configured")
	errDecodeMessage = errors.New("decode message")
)

// Result describes one handled message.
type Result struct {
	Outcome       Outcome
	ApplicationID int64
	RequestID     string
	BodyLen       int
	BodySHA       string
	Summary       batch.Summary
	Err           error
}

// ParseMessage validates and decodes a queue payload.
func ParseMessage(body string) (queue.Message, error) {
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, ErrEmptyBody
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, fmt.Errorf("%w: %v", errDecodeMessage, err)
	}
	if msg.ApplicationID <= 0 {
		return msg, ErrMissingID
	}
	return msg, nil
}

// Unrecoverable reports whether a processing error will repeat on redelivery.
func Unrecoverable(err error) bool {
	return errors.Is(err, batch.ErrApplicationNotFound)
}

// Handle parses the body, runs the batch and classifies the result. Every
// result is logged under source (for example "worker" or "lambda") with the
// extra fields merged in, and counted in the job metrics.
func Handle(ctx context.Context, proc Processor, body, source string, extra map[string]any) Result {
	metrics.IncJobsReceived()
	res := Result{BodyLen: len(body)}
	if body != "" {
		sum := sha256.Sum256([]byte(body))
		res.BodySHA = hex.EncodeToString(sum[:])
	}

	msg, err := ParseMessage(body)
	res.ApplicationID, res.RequestID = msg.ApplicationID, msg.RequestID
	switch {
	case err != nil:
		res.Outcome, res.Err = Dropped, err
	case proc == nil:
		res.Outcome, res.Err = Retry, ErrNoProcessor
	default:
		telemetry.Info(source+".batch.received", res.fields(extra))
		res.Summary, res.Err = proc.GenerateAll(ctx, msg.ApplicationID)
		switch {
		case res.Err == nil:
			res.Outcome = Completed
		case Unrecoverable(res.Err):
			res.Outcome = Dropped
		default:
			res.Outcome = Retry
		}
	}

	res.record(source, extra)
	return res
}

func (r Result) record(source string, extra map[string]any) {
	fields := r.fields(extra)
	switch r.Outcome {
	case Completed:
		fields["job_id"] = r.Summary.JobID
		fields["documents"] = r.Summary.DocumentsGenerated
		telemetry.Info(source+".batch.completed", fields)
		metrics.IncJobsCompleted()
	case Dropped:
		fields["error"] = r.Err.Error()
		fields["body_len"] = r.BodyLen
		if r.BodySHA != "" {
			fields["body_sha256"] = r.BodySHA
		}
		telemetry.Error(source+".batch.dropped", fields)
		metrics.IncJobsDeletedUnrecoverable()
	default:
		fields["error"] = r.Err.Error()
		telemetry.Error(source+".batch.failed", fields)
		metrics.IncJobsFailed()
	}
}

func (r Result) fields(extra map[string]any) map[string]any {
	fields := make(map[string]any, len(extra)+4)
	for k, v := range extra {
		fields[k] = v
	}
	fields["application_id"] = r.ApplicationID
	if strings.TrimSpace(r.RequestID) != "" {
		fields["request_id"] = r.RequestID
	}
	return fields
}
