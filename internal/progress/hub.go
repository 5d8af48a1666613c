package progress

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Fetch once the hub has been shut down.
var ErrClosed = errors.New("progress hub closed")

// Event is one progress snapshot for a job.
type Event struct {
	Sequence          uint64    `json:"seq"`
	Timestamp         time.Time `json:"ts"`
	JobID             string    `json:"job_id"`
	SubjectID         string    `json:"subject_id,omitempty"`
	Status            string    `json:"status"`
	OverallPercentage int       `json:"overall_percentage"`
	Language          string    `json:"language,omitempty"`
	LanguageCode      string    `json:"language_code,omitempty"`
	TranslationStatus string    `json:"translation_status,omitempty"`
	Processed         int       `json:"subtitles_processed,omitempty"`
	Total             int       `json:"total_subtitles,omitempty"`
	Message           string    `json:"message,omitempty"`
}

// Terminal reports whether the event closes out its job.
func (e Event) Terminal() bool {
	return e.Status == "completed" || e.Status == "failed"
}

// Hub stores recent progress events and wakes waiters when new events arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	closed   bool
	now      func() time.Time
}

// NewHub constructs a bounded in-memory progress buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1024
	}
	h := &Hub{capacity: capacity, now: func() time.Time { return time.Now().UTC() }}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Report appends an event. It never returns an error for a live hub; events
// reported after Close are dropped.
func (h *Hub) Report(_ context.Context, evt Event) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = h.now()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	return nil
}

// Fetch returns events for jobID with sequence greater than since; an empty
// jobID matches every job. When wait is true, Fetch blocks until at least one
// matching event is available, the context ends, or the hub closes. The second
// return value is the cursor to pass as since on the next call.
func (h *Hub) Fetch(ctx context.Context, jobID string, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(jobID, since, limit)
		if len(events) > 0 || !wait {
			return events, next, ctx.Err()
		}
		if h.closed {
			return nil, next, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		since = next
		h.cond.Wait()
	}
}

// Latest returns the most recent buffered event for jobID.
func (h *Hub) Latest(jobID string) (Event, bool) {
	if h == nil {
		return Event{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.buffer) - 1; i >= 0; i-- {
		if h.buffer[i].JobID == jobID {
			return h.buffer[i], true
		}
	}
	return Event{}, false
}

// Close wakes every waiter and stops accepting events.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()
}

func (h *Hub) snapshotLocked(jobID string, since uint64, limit int) ([]Event, uint64) {
	next := since
	var out []Event
	for _, evt := range h.buffer {
		if evt.Sequence <= since {
			continue
		}
		if len(out) == limit {
			break
		}
		next = evt.Sequence
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		out = append(out, evt)
	}
	return out, next
}
