package convert

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"convkit/blob"
	"convkit/pipeline"
)

var hashers = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// NewHasher digests the input bytes with one or more algorithms.
// Params: "algorithms" is a comma-separated list (default "sha256").
// The artifact is a text file with one "<algo>  <hex>  <name>" line per
// algorithm, in the order requested.
func NewHasher(store blob.Store) pipeline.ConvertFunc {
	return func(ctx context.Context, in pipeline.File, params pipeline.Params) (*pipeline.Artifact, error) {
		var lines []string
		for _, algo := range strings.Split(params.Get("algorithms", "sha256"), ",") {
			algo = strings.ToLower(strings.TrimSpace(algo))
			if algo == "" {
				continue
			}
			newHash, ok := hashers[algo]
			if !ok {
				return nil, pipeline.Failf(pipeline.FailProcessing, "unknown hash algorithm %q", algo)
			}
			h := newHash()
			h.Write(in.Data)
			lines = append(lines, fmt.Sprintf("%s  %s  %s", algo, hex.EncodeToString(h.Sum(nil)), in.Name))
		}
		if len(lines) == 0 {
			return nil, pipeline.Failf(pipeline.FailProcessing, "no hash algorithms requested")
		}

		name := in.Name + ".hashes.txt"
		handle, err := store.Put(name, []byte(strings.Join(lines, "\n")+"\n"))
		if err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		return &pipeline.Artifact{
			Name: name,
			Type: "text/plain",
			Blob: handle,
		}, nil
	}
}
