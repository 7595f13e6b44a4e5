package pipeline

import "fmt"

// FailureKind classifies why an item did not complete. The remote-fetch
// kinds never appear on queue items; they reject admission outright.
type FailureKind string

const (
	FailUnsupportedType   FailureKind = "unsupported_type"
	FailTooLarge          FailureKind = "too_large"
	FailDecode            FailureKind = "decode_failed"
	FailEncodeUnsupported FailureKind = "encode_unsupported"
	FailProcessing        FailureKind = "processing_failed"
)

// Failure is a terminal, user-presentable processing error. Convert
// functions return it (or a wrapped one) to pick the recorded kind;
// any other error is classified as FailProcessing.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func Failf(kind FailureKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
