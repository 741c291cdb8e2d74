package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubGenerator struct {
	outputs []string
	err     error

	calls       int
	userPrompts []string
}

func (s *stubGenerator) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	s.calls++
	s.userPrompts = append(s.userPrompts, userPrompt)
	if s.err != nil {
		return "", s.err
	}
	out := s.outputs[0]
	if len(s.outputs) > 1 {
		s.outputs = s.outputs[1:]
	}
	return out, nil
}

func TestTranslate_NoMatchClause_UsesFallback(t *testing.T) {
	gen := &stubGenerator{outputs: []string{"I cannot generate a query for that."}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "list all resources", "P1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repair != RepairFallback {
		t.Errorf("repair = %q, want %q", got.Repair, RepairFallback)
	}
	if got.Query != fallbackQuery("P1", nil) {
		t.Errorf("query = %q, want canonical fallback", got.Query)
	}
	if !strings.Contains(got.Query, `"P1"`) {
		t.Errorf("fallback does not reference project id: %q", got.Query)
	}
}

func TestTranslate_Fallback_IncludesNameRestriction(t *testing.T) {
	gen := &stubGenerator{outputs: []string{"no query here"}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "what covers budgets?", "P1", []string{"Budget.pdf", "Notes.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repair != RepairFallback {
		t.Fatalf("repair = %q, want fallback", got.Repair)
	}
	for _, name := range []string{"Budget.pdf", "Notes.txt"} {
		if !strings.Contains(got.Query, name) {
			t.Errorf("fallback missing name %q: %q", name, got.Query)
		}
	}
}

func TestTranslate_MissingProject_WrapsWithScope(t *testing.T) {
	gen := &stubGenerator{outputs: []string{"MATCH (r:Resource) RETURN r"}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "show everything", "P7", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repair != RepairProjectScope {
		t.Errorf("repair = %q, want %q", got.Repair, RepairProjectScope)
	}
	if !strings.Contains(got.Query, `Project {id: "P7"}`) {
		t.Errorf("wrapped query does not bind project: %q", got.Query)
	}
	if !strings.Contains(got.Query, "MATCH (r:Resource) RETURN r") {
		t.Errorf("original clause body lost: %q", got.Query)
	}
}

func TestTranslate_MissingNameFilter_InjectsIntoWhere(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) WHERE r.name CONTAINS "x" RETURN r`,
	}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "find x", "P1", []string{"Budget.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repair != RepairNameFilter {
		t.Errorf("repair = %q, want %q", got.Repair, RepairNameFilter)
	}
	if !strings.Contains(got.Query, `r.name IN ["Budget.pdf"] AND`) {
		t.Errorf("restriction not spliced into WHERE: %q", got.Query)
	}
}

func TestTranslate_MissingNameFilter_NoWhereClause_InsertsOne(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
	}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "find anything", "P1", []string{"Budget.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repair != RepairNameFilter {
		t.Errorf("repair = %q, want %q", got.Repair, RepairNameFilter)
	}
	if !strings.Contains(got.Query, `WHERE r.name IN ["Budget.pdf"]`) {
		t.Errorf("no WHERE clause inserted: %q", got.Query)
	}
	if !strings.Contains(got.Query, "RETURN r") {
		t.Errorf("RETURN clause lost: %q", got.Query)
	}
}

func TestTranslate_WellFormedQuery_Untouched(t *testing.T) {
	wellFormed := `MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) WHERE r.name IN ["Budget.pdf"] RETURN r`
	gen := &stubGenerator{outputs: []string{wellFormed}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "budget", "P1", []string{"Budget.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repair != RepairNone {
		t.Errorf("repair = %q, want none", got.Repair)
	}
	if got.Query != wellFormed {
		t.Errorf("well-formed query was modified:\n got %q\nwant %q", got.Query, wellFormed)
	}
}

func TestTranslate_StripsCodeFences(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		"```cypher\nMATCH (p:Project {id: \"P1\"})-[:HAS_RESOURCE]->(r:Resource) RETURN r\n```",
	}}
	tr := NewTranslator(gen)

	got, err := tr.Translate(context.Background(), "list", "P1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got.Query, "```") {
		t.Errorf("code fence not stripped: %q", got.Query)
	}
	if !strings.HasPrefix(got.Query, "MATCH") {
		t.Errorf("query not trimmed: %q", got.Query)
	}
}

func TestTranslate_Idempotent(t *testing.T) {
	output := "MATCH (r:Resource) RETURN r"

	first := NewTranslator(&stubGenerator{outputs: []string{output}})
	second := NewTranslator(&stubGenerator{outputs: []string{output}})

	a, err := first.Translate(context.Background(), "q", "P1", []string{"Budget.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := second.Translate(context.Background(), "q", "P1", []string{"Budget.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Query != b.Query {
		t.Errorf("translation not deterministic:\n%q\n%q", a.Query, b.Query)
	}
}

func TestTranslate_GeneratorError_Propagates(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	tr := NewTranslator(gen)

	_, err := tr.Translate(context.Background(), "q", "P1", nil)
	if err == nil {
		t.Fatal("expected error from generator failure")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error does not carry cause: %v", err)
	}
}

func TestRepairQuery_AlwaysReferencesProjectAndNames(t *testing.T) {
	names := []string{"A.txt", "B.txt"}

	outputs := []string{
		"",
		"garbage with no keywords",
		"MATCH (r:Resource) RETURN r",
		"MATCH (r:Resource) WHERE r.name CONTAINS \"a\" RETURN r",
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
	}

	for _, output := range outputs {
		repaired, _ := repairQuery(output, "P1", names)
		if !strings.Contains(repaired, "P1") {
			t.Errorf("output %q: repaired query missing project id: %q", output, repaired)
		}
		for _, name := range names {
			if !strings.Contains(repaired, name) {
				t.Errorf("output %q: repaired query missing name %q: %q", output, name, repaired)
			}
		}
	}
}

func TestQuoteString_EscapesQuotes(t *testing.T) {
	got := quoteString(`he said "hi"`)
	want := `"he said \"hi\""`
	if got != want {
		t.Errorf("quoteString = %s, want %s", got, want)
	}
}
