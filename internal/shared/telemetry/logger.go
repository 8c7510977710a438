// Package telemetry writes one JSON object per log line. Event names are
// dotted, for example "router.failover" or "worker.batch.completed".
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	levelInfo int32 = iota
	levelWarn
	levelError
)

var levelNames = [...]string{levelInfo: "info", levelWarn: "warn", levelError: "error"}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	minLevel atomic.Int32
)

// SetOutput redirects log lines and returns a func restoring the previous writer.
func SetOutput(w io.Writer) func() {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return func() {
		mu.Lock()
		out = prev
		mu.Unlock()
	}
}

// SetLevel drops lines below level ("info", "warn" or "error"). Unknown
// values reset to info.
func SetLevel(level string) {
	for i, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(level), name) {
			minLevel.Store(int32(i))
			return
		}
	}
	minLevel.Store(levelInfo)
}

func Info(event string, fields map[string]any) { write(levelInfo, event, fields) }
func Warn(event string, fields map[string]any) { write(levelWarn, event, fields) }
func Error(event string, fields map[string]any) { write(levelError, event, fields) }

func write(level int32, event string, fields map[string]any) {
	if level < minLevel.Load() {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["ts"] = ts
	entry["level"] = levelNames[level]
	entry["msg"] = event

	line, err := json.Marshal(entry)
	if err != nil {
		line = fmt.Appendf(nil, `{"ts":%q,"level":"error","msg":"telemetry.marshal_failed","event":%q,"error":%q}`, ts, event, err.Error())
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s\n", line)
}
