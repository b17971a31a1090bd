package simindex

import (
	"bytes"
	"testing"

	"github.com/simsearch/simsearch/internal/snapshot"
)

func TestSnapshotRoundTripPreservesScenario(t *testing.T) {
	idx := scenarioIndex(t)

	var buf bytes.Buffer
	if err := idx.Save(&buf, snapshot.AlgorithmZstd); err != nil {
		t.Fatal(err)
	}

	reloaded := NewMemoryIndex()
	if err := reloaded.Load(&buf, snapshot.AlgorithmZstd); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.SetQueryScorer("tfidf"); err != nil {
		t.Fatal(err)
	}

	assertScenario(t, reloaded)
}
