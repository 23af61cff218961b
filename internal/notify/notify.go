// Package notify is the boundary to the local-notification facility.
// The Facility interface is what the schedule store drives; Queue is the
// production implementation, a durable pending-notification queue whose due
// entries the watch daemon delivers.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Payload is the content of a single notification.
type Payload struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// Facility schedules and cancels pending local notifications. Handles are
// opaque; the store caches them but never treats them as authoritative.
type Facility interface {
	// Schedule registers a notification to fire at fireAt and returns its handle.
	Schedule(fireAt time.Time, p Payload) (string, error)
	// Cancel removes a pending notification. Unknown handles are a no-op.
	Cancel(handle string) error
	// ListPending returns the handles of all notifications still pending.
	ListPending() ([]string, error)
}

// Entry is one pending notification in the queue.
type Entry struct {
	Handle  string    `json:"handle"`
	FireAt  time.Time `json:"fire_at"`
	Payload Payload   `json:"payload"`
}

type queueFile struct {
	Entries   []Entry `json:"entries"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// Queue is a file-backed Facility. Every mutation rewrites the queue file,
// so pending notifications survive process restarts.
type Queue struct {
	mu   sync.Mutex
	path string
}

// NewQueue returns a Queue persisted at path.
func NewQueue(path string) *Queue {
	return &Queue{path: path}
}

func (q *Queue) load() (*queueFile, error) {
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return &queueFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending queue: %w", err)
	}
	var f queueFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pending queue: %w", err)
	}
	return &f, nil
}

func (q *Queue) save(f *queueFile) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0700); err != nil {
		return err
	}
	f.UpdatedAt = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(q.path, data, 0600)
}

// Schedule appends a pending entry and returns its freshly minted handle.
func (q *Queue) Schedule(fireAt time.Time, p Payload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := q.load()
	if err != nil {
		return "", err
	}
	handle := uuid.NewString()
	f.Entries = append(f.Entries, Entry{Handle: handle, FireAt: fireAt, Payload: p})
	if err := q.save(f); err != nil {
		return "", fmt.Errorf("save pending queue: %w", err)
	}
	return handle, nil
}

// Cancel removes the entry with the given handle, if present.
func (q *Queue) Cancel(handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := q.load()
	if err != nil {
		return err
	}
	kept := f.Entries[:0]
	for _, e := range f.Entries {
		if e.Handle != handle {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(f.Entries) {
		return nil
	}
	f.Entries = kept
	if err := q.save(f); err != nil {
		return fmt.Errorf("save pending queue: %w", err)
	}
	return nil
}

// ListPending returns all pending handles.
func (q *Queue) ListPending() ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := q.load()
	if err != nil {
		return nil, err
	}
	handles := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		handles = append(handles, e.Handle)
	}
	return handles, nil
}

// Due removes and returns every entry whose fire instant is at or before
// now, ordered by fire instant. The caller delivers them.
func (q *Queue) Due(now time.Time) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := q.load()
	if err != nil {
		return nil, err
	}
	var due []Entry
	kept := f.Entries[:0]
	for _, e := range f.Entries {
		if !e.FireAt.After(now) {
			due = append(due, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	f.Entries = kept
	if err := q.save(f); err != nil {
		return nil, fmt.Errorf("save pending queue: %w", err)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	return due, nil
}
