package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
)

// Config holds configuration for a trace writer.
type Config struct {
	// Path of the JSON-lines trace file. The file is created or truncated.
	Path string

	// BufferSize is the capacity of the in-memory event queue. Emit drops
	// events once the queue is full rather than stall the engine.
	// Defaults to 256.
	BufferSize int

	// FlushInterval controls how often buffered output is forced to disk,
	// so a crash loses at most one interval of events. Defaults to 1s.
	FlushInterval time.Duration

	// OnError is called for write failures, which are otherwise silent.
	// Optional.
	OnError func(error)
}

// validate checks the configuration and applies defaults.
func (c *Config) validate() error {
	if c.Path == "" {
		return vferrors.NewValidationError("trace", "Path", c.Path, "cannot be empty")
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	return nil
}

// Writer records run events as one JSON object per line. It satisfies
// workflow.EventSink: Emit never blocks the caller, encoding and file I/O
// happen on a background goroutine.
type Writer struct {
	config Config

	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder

	events chan any
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int64
}

// New creates a trace writer on path with default settings.
func New(path string) (*Writer, error) {
	return NewWithConfig(Config{Path: path})
}

// NewWithConfig creates a trace writer with the given configuration.
func NewWithConfig(config Config) (*Writer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}

	w := &Writer{
		config: config,
		file:   f,
		buf:    bufio.NewWriter(f),
		events: make(chan any, config.BufferSize),
		done:   make(chan struct{}),
	}
	w.enc = json.NewEncoder(w.buf)
	go w.writeLoop()
	return w, nil
}

// Emit queues one event for writing. Events arriving after Close, or while
// the queue is full, are counted and dropped.
func (w *Writer) Emit(event any) {
	w.mu.Lock()
	if w.closed {
		w.dropped++
		w.mu.Unlock()
		return
	}
	select {
	case w.events <- event:
	default:
		w.dropped++
	}
	w.mu.Unlock()
}

// Dropped reports how many events were discarded because the writer was
// closed or the queue was full.
func (w *Writer) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close drains queued events, flushes, and closes the trace file.
// Safe to call once; later Emit calls are dropped.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return vferrors.ErrClosed
	}
	w.closed = true
	w.mu.Unlock()

	close(w.events)
	<-w.done

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flushing trace file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing trace file: %w", err)
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer close(w.done)

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.events:
			if !ok {
				return
			}
			if err := w.enc.Encode(event); err != nil && w.config.OnError != nil {
				w.config.OnError(err)
			}
		case <-ticker.C:
			if err := w.buf.Flush(); err != nil && w.config.OnError != nil {
				w.config.OnError(err)
			}
		}
	}
}
