package expense

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Slot is the blob key the expense list is persisted under.
const Slot = "expenses"

// Store is the ordered, newest-first list of expenses. The whole list is
// written back to the blob store on every append.
type Store struct {
	blobs BlobStore

	mu      sync.RWMutex
	records []*Record
}

// OpenStore loads the persisted list. A corrupt snapshot is logged and
// replaced by an empty list.
func OpenStore(blobs BlobStore) (*Store, error) {
	data, err := blobs.Get(Slot)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}

	records := make([]*Record, 0)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			slog.Warn("Discarding unreadable expense snapshot", "bytes", len(data), "error", err)
			records = make([]*Record, 0)
		}
	}

	if n := len(records); n > 0 {
		records = slices.DeleteFunc(records, func(r *Record) bool { return r == nil })
		if dropped := n - len(records); dropped > 0 {
			slog.Warn("Dropping empty entries from expense snapshot", "dropped", dropped)
		}
	}

	return &Store{blobs: blobs, records: records}, nil
}

// Append inserts r at the head and persists the snapshot. Nothing changes
// if the write fails.
func (s *Store) Append(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*Record, 0, len(s.records)+1)
	next = append(next, r)
	next = append(next, s.records...)

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshaling expenses: %w", err)
	}
	if err := s.blobs.Put(Slot, data); err != nil {
		return fmt.Errorf("saving expenses: %w", err)
	}

	s.records = next
	return nil
}

// Records returns a snapshot of the list, newest first.
func (s *Store) Records() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Get finds a record by id.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
