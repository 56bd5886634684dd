package rag

import (
	"math"
	"testing"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(384)

	a := e.Embed("The quick brown fox jumps over the lazy dog.")
	b := e.Embed("The quick brown fox jumps over the lazy dog.")

	if len(a) != 384 || len(b) != 384 {
		t.Fatalf("expected 384 dims, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedderDistinctTexts(t *testing.T) {
	e := NewHashEmbedder(384)

	a := e.Embed("machine learning")
	b := e.Embed("ancient history")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical embeddings")
	}
}

func TestHashEmbedderOverlapScoresPositive(t *testing.T) {
	e := NewHashEmbedder(384)

	doc := e.Embed("The quick brown fox jumps over the lazy dog.")
	query := e.Embed("quick brown fox")

	if sim := Cosine(query, doc); sim <= 0 {
		t.Fatalf("texts with shared tokens must score positive, got %v", sim)
	}

	// 分量非负，任意两向量的相似度不会为负
	other := e.Embed("completely unrelated words here")
	if sim := Cosine(query, other); sim < 0 {
		t.Fatalf("non-negative vectors must not score negative, got %v", sim)
	}
}

func TestHashEmbedderValueRange(t *testing.T) {
	e := NewHashEmbedder(384)

	for _, text := range []string{"", "a", "hello world", "日本語のテキスト"} {
		vec := e.Embed(text)
		for i, v := range vec {
			if v < -1 || v > 1 {
				t.Fatalf("embed(%q) dim %d = %v, outside [-1, 1]", text, i, v)
			}
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float64{1, 2, 3},
			b:    []float64{1, 2, 3},
			want: 1,
		},
		{
			name: "opposite vectors",
			a:    []float64{1, 0},
			b:    []float64{-1, 0},
			want: -1,
		},
		{
			name: "orthogonal vectors",
			a:    []float64{1, 0},
			b:    []float64{0, 1},
			want: 0,
		},
		{
			name: "zero magnitude",
			a:    []float64{0, 0, 0},
			b:    []float64{1, 2, 3},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSymmetric(t *testing.T) {
	e := NewHashEmbedder(64)
	a := e.Embed("first text")
	b := e.Embed("second text")

	if Cosine(a, b) != Cosine(b, a) {
		t.Fatal("cosine similarity is not symmetric")
	}
}
