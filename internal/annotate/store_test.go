package annotate

import (
	"errors"
	"testing"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
)

func TestStoreSaveLoadDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save("f1", "p_1_0", map[string]any{"label": "positive"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("f1", "p_1_1", map[string]any{"label": "negative"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := store.Load("f1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 annotated paragraphs, got %d", len(all))
	}
	if all["p_1_0"]["label"] != "positive" {
		t.Fatalf("annotation value wrong: %v", all["p_1_0"])
	}

	// 同段落覆盖
	if err := store.Save("f1", "p_1_0", map[string]any{"label": "neutral"}); err != nil {
		t.Fatal(err)
	}
	all, _ = store.Load("f1")
	if all["p_1_0"]["label"] != "neutral" {
		t.Fatalf("annotation not overwritten: %v", all["p_1_0"])
	}

	if err := store.Delete("f1", "p_1_0"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ = store.Load("f1")
	if _, ok := all["p_1_0"]; ok {
		t.Fatal("deleted annotation still present")
	}
	if _, ok := all["p_1_1"]; !ok {
		t.Fatal("unrelated annotation removed")
	}
}

func TestStoreDeleteMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	err := store.Delete("f1", "p_1_0")
	if !errors.Is(err, rag.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreLoadUnknownFile(t *testing.T) {
	store := NewStore(t.TempDir())

	all, err := store.Load("never-annotated")
	if err != nil {
		t.Fatalf("Load of unknown file should not error, got %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty annotations, got %v", all)
	}
}
