// Package snapshot implements whole-index save/load for MemoryIndex. The
// wire format is an internal concern: the only promised contract is that
// Load(Save(idx)) reproduces idx's state under every read operation, with
// the scorer re-attached by the caller afterward.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Algorithm selects the compression codec applied to the serialized
// snapshot body.
type Algorithm int

const (
	// AlgorithmZstd is the default: fast, good ratio, pure Go via klauspost.
	AlgorithmZstd Algorithm = iota
	// AlgorithmGzip trades ratio for maximum portability.
	AlgorithmGzip
)

// Snapshot is the serializable form of a leaf index's mutable state, minus
// the scorer.
type Snapshot struct {
	Lowercase bool                    `json:"lowercase"`
	Stoplist  []string                `json:"stoplist"`
	NextDocid int                     `json:"next_docid"`
	NameToID  map[string]int          `json:"name_to_id"`
	Vectors   map[int]map[string]int  `json:"vectors"`
	DF        map[string]int          `json:"df"`
	Doclen    map[int]float64         `json:"doclen"`
	N         int                     `json:"n"`
	Features  map[int]map[string]any  `json:"features,omitempty"`
}

// Exporter is implemented by a leaf index to produce a Snapshot.
type Exporter interface {
	ExportSnapshot() Snapshot
}

// Importer is implemented by a leaf index to restore from a Snapshot. The
// receiver must be empty; Import overwrites its state wholesale.
type Importer interface {
	ImportSnapshot(Snapshot)
}

// Save serializes src's exported state and writes it to w, compressed
// under algo.
func Save(w io.Writer, src Exporter, algo Algorithm) error {
	payload, err := json.Marshal(src.ExportSnapshot())
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	switch algo {
	case AlgorithmGzip:
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(payload); err != nil {
			return fmt.Errorf("snapshot: gzip write: %w", err)
		}
		return gz.Close()
	default:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("snapshot: zstd writer: %w", err)
		}
		if _, err := enc.Write(payload); err != nil {
			return fmt.Errorf("snapshot: zstd write: %w", err)
		}
		return enc.Close()
	}
}

// Load decompresses r under algo and restores the state into dst.
func Load(r io.Reader, dst Importer, algo Algorithm) error {
	var raw io.Reader
	switch algo {
	case AlgorithmGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("snapshot: gzip reader: %w", err)
		}
		defer gz.Close()
		raw = gz
	default:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("snapshot: zstd reader: %w", err)
		}
		defer dec.Close()
		raw = dec
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, raw); err != nil {
		return fmt.Errorf("snapshot: decompress: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		return fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	dst.ImportSnapshot(s)
	return nil
}
