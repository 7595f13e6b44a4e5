package pipeline

import (
	"time"

	"convkit/blob"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// File is a raw input payload with its declared media type. The declared
// type is taken at face value; a mislabeled file fails at decode time,
// not at admission.
type File struct {
	Name string
	Type string
	Data []byte
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// Artifact is the output of one successful conversion. It exclusively
// owns its blob handle until Release.
type Artifact struct {
	Name string
	Type string
	Blob blob.Handle
	// Meta carries derived facts about the output, e.g. resulting
	// pixel dimensions.
	Meta map[string]string
}

func (a *Artifact) Release() error {
	if a == nil || a.Blob == nil {
		return nil
	}
	return a.Blob.Release()
}

// Item is one admitted unit of work. Status leaves StatusPending at most
// once; StatusDone and StatusFailed are terminal. Exactly one of
// Artifact/FailureReason is set once the item is terminal.
type Item struct {
	ID            string
	Input         File
	Status        Status
	Artifact      *Artifact
	FailureKind   FailureKind
	FailureReason string
	CreatedAt     time.Time
	CompletedAt   time.Time
}

func (it *Item) fail(f *Failure) {
	it.Status = StatusFailed
	it.FailureKind = f.Kind
	it.FailureReason = f.Message
	it.CompletedAt = time.Now()
}

func (it *Item) complete(a *Artifact) {
	it.Status = StatusDone
	it.Artifact = a
	it.CompletedAt = time.Now()
}

// ItemView is the read-only snapshot form of an Item handed to callers.
type ItemView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Type          string            `json:"type,omitempty"`
	Size          int64             `json:"size"`
	Status        Status            `json:"status"`
	OutputName    string            `json:"outputName,omitempty"`
	OutputType    string            `json:"outputType,omitempty"`
	OutputSize    int64             `json:"outputSize,omitempty"`
	OutputMeta    map[string]string `json:"outputMeta,omitempty"`
	FailureKind   FailureKind       `json:"failureKind,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
}

func (it *Item) view() ItemView {
	v := ItemView{
		ID:            it.ID,
		Name:          it.Input.Name,
		Type:          it.Input.Type,
		Size:          it.Input.Size(),
		Status:        it.Status,
		FailureKind:   it.FailureKind,
		FailureReason: it.FailureReason,
	}
	if it.Artifact != nil {
		v.OutputName = it.Artifact.Name
		v.OutputType = it.Artifact.Type
		v.OutputSize = it.Artifact.Blob.Size()
		v.OutputMeta = it.Artifact.Meta
	}
	return v
}
