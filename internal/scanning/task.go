package scanning

import (
	"context"
	"sync"
)

// progressBuffer bounds how many updates are kept for a slow reader.
const progressBuffer = 16

// Task is a running recognition. Progress updates are optional to consume.
type Task struct {
	cancel   context.CancelFunc
	progress chan float64
	done     chan struct{}

	mu       sync.Mutex
	finished bool
	sent     bool
	last     float64
	text     string
	err      error
}

// StartRecognition runs r in the background. Cancelling ctx or calling
// Cancel stops it.
func StartRecognition(ctx context.Context, r Recognizer, imageData []byte, contentType string) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel:   cancel,
		progress: make(chan float64, progressBuffer),
		done:     make(chan struct{}),
	}

	go func() {
		defer cancel()
		text, err := r.Recognize(ctx, imageData, contentType, t.report)
		if err == nil {
			t.report(1)
		}

		t.mu.Lock()
		t.text, t.err = text, err
		t.finished = true
		close(t.progress)
		t.mu.Unlock()
		close(t.done)
	}()

	return t
}

// report clamps and publishes a fraction. Only increasing values are
// published, and they are dropped when the buffer is full.
func (t *Task) report(fraction float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return
	}
	fraction = min(max(fraction, 0), 1)
	if t.sent && fraction <= t.last {
		return
	}
	t.sent, t.last = true, fraction

	select {
	case t.progress <- fraction:
	default:
	}
}

// Progress is closed when the task finishes.
func (t *Task) Progress() <-chan float64 {
	return t.progress
}

// Wait blocks until recognition finishes.
func (t *Task) Wait() (string, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text, t.err
}

// Cancel stops the recognition. Wait still has to be called for the result.
func (t *Task) Cancel() {
	t.cancel()
}
