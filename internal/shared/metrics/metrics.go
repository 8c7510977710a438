// Package metrics keeps process-wide counters and histograms and renders them
// in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type collector interface {
	describe() (name, help, kind string)
	writeSamples(w io.Writer)
}

var (
	batchStarted   = newCounter("batch_started_total", "Batch generations started")
	batchCompleted = newCounter("batch_completed_total", "Batch generations completed")
	batchFailed    = newCounter("batch_failed_total", "Batch generations failed")

	jobsReceived      = newCounter("generation_jobs_received_total", "Queue messages received")
	jobsCompleted     = newCounter("generation_jobs_completed_total", "Queue messages completed")
	jobsFailed        = newCounter("generation_jobs_failed_total", "Queue messages left for redelivery")
	jobsUnrecoverable = newCounter("generation_jobs_deleted_unrecoverable_total", "Queue messages dropped as unrecoverable")

	failovers = newCounter("generation_failover_total", "Generations that fell back to the secondary provider")

	generationAttempts = newCounterVec("generation_attempts_total", "Generation attempts by provider and outcome", "provider", "outcome")
	researchRecords    = newCounterVec("research_records_total", "Research records by source", "source")

	generationDuration = newHistogram("generation_duration_ms", "Generation duration in milliseconds",
		100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000)
	batchDuration = newHistogram("batch_duration_ms", "Batch generation duration in milliseconds",
		1000, 5000, 10000, 30000, 60000, 120000, 300000)

	registry = []collector{
		batchStarted, batchCompleted, batchFailed,
		jobsReceived, jobsCompleted, jobsFailed, jobsUnrecoverable,
		failovers, generationAttempts, researchRecords,
		generationDuration, batchDuration,
	}
)

func IncBatchStarted() { batchStarted.inc() }
func IncBatchCompleted() { batchCompleted.inc() }
func IncBatchFailed() { batchFailed.inc() }
func IncJobsReceived() { jobsReceived.inc() }
func IncJobsCompleted() { jobsCompleted.inc() }
func IncJobsFailed() { jobsFailed.inc() }
func IncJobsDeletedUnrecoverable() { jobsUnrecoverable.inc() }
func IncFailover() { failovers.inc() }

// IncGeneration counts one provider call by outcome (success or an error kind).
func IncGeneration(provider, outcome string) { generationAttempts.inc(provider, outcome) }

// IncResearch counts a stored research record by source tier.
func IncResearch(source string) { researchRecords.inc(source) }

func ObserveGenerationDurationMs(ms float64) { generationDuration.observe(max(ms, 0)) }
func ObserveBatchDurationMs(ms float64) { batchDuration.observe(max(ms, 0)) }

// Handler serves Render output.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// Render returns every metric in registration order.
func Render() string {
	var b strings.Builder
	for _, c := range registry {
		name, help, kind := c.describe()
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
		c.writeSamples(&b)
	}
	return b.String()
}

type counter struct {
	name, help string
	v          atomic.Uint64
}

func newCounter(name, help string) *counter { return &counter{name: name, help: help} }

func (c *counter) inc() { c.v.Add(1) }
func (c *counter) describe() (string, string, string) { return c.name, c.help, "counter" }
func (c *counter) writeSamples(w io.Writer) { fmt.Fprintf(w, "%s %d\n", c.name, c.v.Load()) }

// counterVec is a counter partitioned by a fixed set of label names.
type counterVec struct {
	name, help string
	labels     []string

	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(name, help string, labels ...string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]uint64)}
}

func (c *counterVec) inc(values ...string) {
	pairs := make([]string, len(c.labels))
	for i, l := range c.labels {
		var v string
		if i < len(values) {
			v = values[i]
		}
		pairs[i] = l + "=" + strconv.Quote(v)
	}
	key := strings.Join(pairs, ",")
	c.mu.Lock()
	c.values[key]++
	c.mu.Unlock()
}

func (c *counterVec) describe() (string, string, string) { return c.name, c.help, "counter" }

func (c *counterVec) writeSamples(w io.Writer) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s{%s} %d\n", c.name, k, c.values[k])
	}
	c.mu.Unlock()
}

// histogram stores per-bucket counts; samples are rendered cumulatively.
type histogram struct {
	name, help string
	bounds     []float64

	mu     sync.Mutex
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(name, help string, bounds ...float64) *histogram {
	return &histogram{name: name, help: help, bounds: bounds, counts: make([]uint64, len(bounds))}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total++
	h.sum += v
	if i := sort.SearchFloat64s(h.bounds, v); i < len(h.bounds) {
		h.counts[i]++
	}
}

func (h *histogram) describe() (string, string, string) { return h.name, h.help, "histogram" }

func (h *histogram) writeSamples(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var cumulative uint64
	for i, bound := range h.bounds {
		cumulative += h.counts[i]
		fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", h.name, strconv.FormatFloat(bound, 'f', -1, 64), cumulative)
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.total)
	fmt.Fprintf(w, "%s_sum %s\n", h.name, strconv.FormatFloat(h.sum, 'f', -1, 64))
	fmt.Fprintf(w, "%s_count %d\n", h.name, h.total)
}
