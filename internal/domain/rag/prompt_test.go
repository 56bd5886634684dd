package rag

import (
	"context"
	"strings"
	"testing"
)

func TestBuildContextEmptyIndex(t *testing.T) {
	svc := newTestService(t, &fakeParsed{}, &fakeExports{})

	result, err := svc.BuildContext(context.Background(), &SearchRequest{Query: "what is a fox?"})
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}

	if result.HasContext {
		t.Fatal("empty index must yield hasContext=false")
	}
	if result.ContextCount != 0 || len(result.Context) != 0 {
		t.Fatalf("expected no context entries, got %d", len(result.Context))
	}
	if !strings.Contains(result.Prompt, "what is a fox?") {
		t.Fatalf("minimal prompt must still carry the query: %q", result.Prompt)
	}
	if strings.Contains(result.Prompt, "Retrieved Context:") {
		t.Fatal("minimal prompt must not contain a context section")
	}
	if !strings.HasPrefix(result.Prompt, "You are a helpful document analysis assistant.") {
		t.Fatalf("prompt missing system preamble: %q", result.Prompt)
	}
}

func TestBuildContextWithResults(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "fox.pdf", "The quick brown fox jumps over the lazy dog."),
		},
	}
	svc := newTestService(t, parsed, &fakeExports{})
	if _, err := svc.Index(context.Background(), "f1", "Fox Book"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.BuildContext(context.Background(), &SearchRequest{
		Query:     "quick brown fox",
		Threshold: floatPtr(0.0),
	})
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}

	if !result.HasContext {
		t.Fatal("expected hasContext=true with a matching document")
	}
	if result.ContextCount != 1 || len(result.Context) != 1 {
		t.Fatalf("expected 1 context entry, got %d", result.ContextCount)
	}

	entry := result.Context[0]
	if entry.Source != "Fox Book (Page 1)" {
		t.Fatalf("source wrong: %q", entry.Source)
	}
	if entry.Content != "The quick brown fox jumps over the lazy dog." {
		t.Fatalf("content wrong: %q", entry.Content)
	}

	// 提示词各段按固定顺序出现
	prompt := result.Prompt
	for _, part := range []string{
		"You are a helpful document analysis assistant.",
		"Retrieved Context:",
		"[Context 1] (Relevance: ",
		"Source: Fox Book (Page 1)",
		"Content: The quick brown fox jumps over the lazy dog.",
		"User Query: quick brown fox",
		"Please answer the user's query using the provided context when relevant.",
	} {
		if !strings.Contains(prompt, part) {
			t.Fatalf("prompt missing %q:\n%s", part, prompt)
		}
	}

	preambleIdx := strings.Index(prompt, "You are a helpful")
	contextIdx := strings.Index(prompt, "Retrieved Context:")
	queryIdx := strings.Index(prompt, "User Query:")
	instructionIdx := strings.Index(prompt, "Please answer")
	if !(preambleIdx < contextIdx && contextIdx < queryIdx && queryIdx < instructionIdx) {
		t.Fatalf("prompt sections out of order:\n%s", prompt)
	}
}

func TestBuildContextNumbersEntries(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf",
				"Paragraph alpha with shared words.",
				"Paragraph beta with shared words.",
			),
		},
	}
	svc := newTestService(t, parsed, &fakeExports{})
	if _, err := svc.Index(context.Background(), "f1", ""); err != nil {
		t.Fatal(err)
	}

	result, err := svc.BuildContext(context.Background(), &SearchRequest{
		Query:     "shared words",
		Threshold: floatPtr(-1.0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ContextCount != 2 {
		t.Fatalf("expected 2 context entries, got %d", result.ContextCount)
	}
	if !strings.Contains(result.Prompt, "[Context 1]") || !strings.Contains(result.Prompt, "[Context 2]") {
		t.Fatalf("context numbering must start at 1 and be sequential:\n%s", result.Prompt)
	}
}
