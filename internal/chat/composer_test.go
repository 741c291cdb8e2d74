package chat

import (
	"context"
	"strings"
	"testing"
)

func TestSerializeContext_BlocksAndOrder(t *testing.T) {
	contexts := map[string]string{
		"Notes.txt":  "meeting notes",
		"Budget.pdf": "budget details",
	}

	got := serializeContext(contexts)
	want := "Budget.pdf:\nbudget details\n\nNotes.txt:\nmeeting notes"
	if got != want {
		t.Errorf("serializeContext =\n%q\nwant\n%q", got, want)
	}
}

func TestCompose_PromptCarriesQueryAndBlocks(t *testing.T) {
	gen := &stubGenerator{outputs: []string{"the answer"}}
	c := NewComposer(gen)

	answer, err := c.Compose(context.Background(), "what was decided?", map[string]string{
		"Notes.txt": "we decided X",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q, want model output verbatim", answer)
	}

	prompt := gen.userPrompts[0]
	if !strings.Contains(prompt, "what was decided?") {
		t.Errorf("prompt missing question: %q", prompt)
	}
	if !strings.Contains(prompt, "Notes.txt:\nwe decided X") {
		t.Errorf("prompt missing context block: %q", prompt)
	}
}

func TestCompose_EmptyContext(t *testing.T) {
	gen := &stubGenerator{outputs: []string{"nothing to cite"}}
	c := NewComposer(gen)

	answer, err := c.Compose(context.Background(), "q", map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "nothing to cite" {
		t.Errorf("answer = %q", answer)
	}
}
