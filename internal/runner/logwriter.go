package runner

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/zulandar/praktika/internal/models"
)

// DefaultFlushInterval is the interval between periodic log flushes.
const DefaultFlushInterval = 5 * time.Second

// logWriter implements io.Writer, buffering job output and periodically
// flushing it to job_logs via writeFn.
type logWriter struct {
	runID     string
	jobName   string
	direction string // "out" or "err"

	mu      sync.Mutex
	buf     bytes.Buffer
	writeFn func(models.JobLog) error
	echo    io.Writer // optional live copy of the output
	echoErr error     // first echo failure; echoing stops after it
}

func newLogWriter(writeFn func(models.JobLog) error, runID, jobName, direction string, echo io.Writer) *logWriter {
	return &logWriter{
		runID:     runID,
		jobName:   jobName,
		direction: direction,
		writeFn:   writeFn,
		echo:      echo,
	}
}

// Write appends bytes to the internal buffer. A failing echo never fails the
// write: the job output is still recorded.
func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if w.echo != nil {
		if _, eerr := w.echo.Write(p); eerr != nil {
			w.echoErr = eerr
			w.echo = nil
		}
	}
	return n, err
}

// EchoErr returns the error that stopped the live echo, if any.
func (w *logWriter) EchoErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.echoErr
}

// Flush writes the buffered output as one JobLog row and resets the buffer.
func (w *logWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}
	content := w.buf.String()
	w.buf.Reset()

	return w.writeFn(models.JobLog{
		RunID:     w.runID,
		JobName:   w.jobName,
		Direction: w.direction,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// Close performs a final flush.
func (w *logWriter) Close() error {
	return w.Flush()
}

// startFlusher launches a goroutine that periodically flushes w until ctx ends.
func startFlusher(ctx context.Context, w *logWriter, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Flush()
			}
		}
	}()
}

// syncWriter serialises writes from concurrently running jobs.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
