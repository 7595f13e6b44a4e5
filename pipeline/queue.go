package pipeline

import (
	"log"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Queue is the ordered list of admitted items for one tool session.
// Items are appended at admission and never reordered; snapshots always
// reflect insertion order regardless of per-item outcomes.
//
// The queue itself is not goroutine-safe; Batch serializes access.
type Queue struct {
	items []*Item
}

func NewQueue() *Queue { return &Queue{} }

// Admit runs the policy's validator over each candidate, in input
// order, while capacity remains. Rejected candidates still consume a
// slot and are queued pre-failed so their reason shows up inline with
// the results. Candidates past capacity are dropped without record.
// Returns how many candidates were queued (admitted or pre-failed).
func (q *Queue) Admit(files []File, p Policy) int {
	remaining := p.MaxItems - len(q.items)
	if remaining < 0 {
		remaining = 0
	}
	queued := 0
	for _, f := range files {
		if queued >= remaining {
			break
		}
		it := &Item{
			ID:        shortuuid.New(),
			Input:     f,
			Status:    StatusPending,
			CreatedAt: time.Now(),
		}
		if rej := p.Validate(f); rej != nil {
			it.fail(rej)
		}
		q.items = append(q.items, it)
		queued++
	}
	return queued
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) PendingCount() int {
	n := 0
	for _, it := range q.items {
		if it.Status == StatusPending {
			n++
		}
	}
	return n
}

// Snapshot returns read-only views of all items in insertion order.
func (q *Queue) Snapshot() []ItemView {
	views := make([]ItemView, 0, len(q.items))
	for _, it := range q.items {
		views = append(views, it.view())
	}
	return views
}

func (q *Queue) get(id string) *Item {
	for _, it := range q.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Remove discards every item the predicate matches, releasing owned
// artifacts before the item is dropped.
func (q *Queue) Remove(pred func(*Item) bool) int {
	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if pred(it) {
			releaseItem(it)
			removed++
			continue
		}
		kept = append(kept, it)
	}
	// Zero the tail so removed items do not linger in the backing array.
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return removed
}

// Clear empties the queue, releasing every owned artifact.
func (q *Queue) Clear() {
	for _, it := range q.items {
		releaseItem(it)
	}
	q.items = nil
}

func releaseItem(it *Item) {
	if err := it.Artifact.Release(); err != nil {
		// Leaked blobs are the failure mode this guards against, so a
		// failed release is worth the log line.
		log.Printf("Failed to release artifact for item %s: %v", it.ID, err)
	}
}
