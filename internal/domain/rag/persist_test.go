package rag

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag", "rag_index.json")
	p := NewPersister(path)

	store := NewDocumentStore()
	store.Insert(testDoc("f1_p_1_0", "f1"), []float64{0.1, 0.2})
	store.Insert(testDoc("f1_p_1_1", "f1"), []float64{0.3, 0.4})

	if err := p.Save(store.Snapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if len(snap.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(snap.Documents))
	}
	if len(snap.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(snap.Embeddings))
	}
	if len(snap.IndexedDatasets) != 1 || snap.IndexedDatasets[0] != "f1" {
		t.Fatalf("indexed datasets wrong: %v", snap.IndexedDatasets)
	}
	if snap.SavedAt == "" {
		t.Fatal("saved_at not set")
	}
}

func TestPersisterMissingFile(t *testing.T) {
	p := NewPersister(filepath.Join(t.TempDir(), "nope.json"))

	snap, err := p.Load()
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if snap != nil {
		t.Fatal("missing file should yield nil snapshot")
	}
}

func TestPersisterCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag_index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPersister(path)
	snap, err := p.Load()
	if err != nil {
		t.Fatalf("corrupt file should degrade to empty, got %v", err)
	}
	if snap != nil {
		t.Fatal("corrupt file should yield nil snapshot")
	}
}
