package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
)

// Batch drives one tool session's queue: admission, sequential
// conversion and teardown. All queue mutations go through the batch's
// mutex, which preserves the one-terminal-transition-per-item invariant
// when HTTP handlers race.
type Batch struct {
	policy Policy

	mu    sync.Mutex
	queue *Queue
}

func NewBatch(policy Policy) *Batch {
	return &Batch{policy: policy, queue: NewQueue()}
}

func (b *Batch) Policy() Policy { return b.policy }

// AddFiles validates and enqueues candidates, truncating silently at
// the policy's capacity. Returns how many candidates were queued.
func (b *Batch) AddFiles(files []File) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Admit(files, b.policy)
}

// ConvertAll processes every currently-pending item, in insertion
// order, one at a time. A failed item never aborts the run; it is
// recorded and the next pending item is processed. Re-running with no
// pending items is a no-op. The context is checked between items only:
// an in-flight conversion is never interrupted mid-encode.
func (b *Batch) ConvertAll(ctx context.Context, params Params) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, it := range b.queue.items {
		if it.Status != StatusPending {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		b.process(ctx, it, params)
	}
	return nil
}

// process applies the policy's convert function to one pending item and
// records the terminal state. Only ever called on pending items.
func (b *Batch) process(ctx context.Context, it *Item, params Params) {
	artifact, err := b.policy.Convert(ctx, it.Input, params)
	if err != nil {
		var f *Failure
		if !errors.As(err, &f) {
			f = Failf(FailProcessing, "conversion failed: %v", err)
		}
		log.Printf("Item %s failed: %s", it.ID, f.Message)
		it.fail(f)
		return
	}
	if artifact == nil || artifact.Blob == nil {
		it.fail(Failf(FailProcessing, "converter produced no output"))
		return
	}
	it.complete(artifact)
}

func (b *Batch) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.PendingCount()
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

func (b *Batch) Snapshot() []ItemView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Snapshot()
}

// OpenArtifact opens the output payload of a done item for reading.
// The caller must close the reader before the item can be cleared in a
// file-backed store.
func (b *Batch) OpenArtifact(itemID string) (io.ReadCloser, *Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	it := b.queue.get(itemID)
	if it == nil {
		return nil, nil, errors.New("item not found")
	}
	if it.Status != StatusDone || it.Artifact == nil {
		return nil, nil, errors.New("item has no output")
	}
	rc, err := it.Artifact.Blob.Open()
	if err != nil {
		return nil, nil, err
	}
	return rc, it.Artifact, nil
}

// Remove discards matching items, releasing their artifacts.
func (b *Batch) Remove(pred func(*Item) bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Remove(pred)
}

// ClearAll releases every owned artifact and empties the queue.
func (b *Batch) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.Clear()
}
