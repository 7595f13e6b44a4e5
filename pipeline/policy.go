package pipeline

import (
	"context"
	"path/filepath"
	"strings"
)

// Params are tool-specific conversion parameters supplied at convert
// time (quality, target dimensions, algorithm choice). They are not
// part of the policy: the same pending item can be processed with
// whatever the caller sends on that run.
type Params map[string]string

func (p Params) Get(key, fallback string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return fallback
}

// ConvertFunc turns one input file into an output artifact. It must not
// mutate the input. Returning a *Failure selects the recorded failure
// kind; any other error is recorded as a generic processing failure.
type ConvertFunc func(ctx context.Context, in File, params Params) (*Artifact, error)

// Policy is the immutable per-tool configuration: what is admissible
// and how admitted items are converted.
type Policy struct {
	// Accept holds media-type matchers: exact ("image/png"), wildcard
	// subtype ("image/*"), or a dot-extension fallback (".png") used
	// when the declared type is empty or when the matcher itself is an
	// extension.
	Accept []string

	MaxItems    int
	MaxItemSize int64

	Convert ConvertFunc
}

// Validate decides admissibility of one candidate under the policy.
// It is a pure policy filter: declared type and size only, no content
// sniffing. A nil return means admissible.
func (p Policy) Validate(f File) *Failure {
	if !p.typeAccepted(f) {
		return Failf(FailUnsupportedType, "type %q is not accepted", displayType(f))
	}
	if p.MaxItemSize > 0 && f.Size() > p.MaxItemSize {
		return Failf(FailTooLarge, "file exceeds %d byte limit", p.MaxItemSize)
	}
	return nil
}

func (p Policy) typeAccepted(f File) bool {
	if len(p.Accept) == 0 {
		return true
	}
	declared := strings.ToLower(strings.TrimSpace(f.Type))
	// Some sources strip parameters badly; compare the bare media type.
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	ext := strings.ToLower(filepath.Ext(f.Name))

	for _, pat := range p.Accept {
		pat = strings.ToLower(pat)
		switch {
		case strings.HasPrefix(pat, "."):
			if ext == pat {
				return true
			}
		case strings.HasSuffix(pat, "/*"):
			if declared != "" && strings.HasPrefix(declared, strings.TrimSuffix(pat, "*")) {
				return true
			}
		default:
			if declared == pat {
				return true
			}
			// Pickers and pastes omit or mis-report MIME types; fall
			// back to matching the pattern's subtype as an extension.
			if declared == "" {
				if i := strings.IndexByte(pat, '/'); i >= 0 && ext == "."+pat[i+1:] {
					return true
				}
			}
		}
	}
	return false
}

func displayType(f File) string {
	if t := strings.TrimSpace(f.Type); t != "" {
		return t
	}
	if ext := filepath.Ext(f.Name); ext != "" {
		return ext
	}
	return "unknown"
}
