package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atlas-mind/backend/internal/graph/neo4j"
	"github.com/atlas-mind/backend/internal/storage/models"
)

type stubGraph struct {
	records []neo4j.Record
	err     error

	calls   int
	queries []string
}

func (s *stubGraph) Execute(_ context.Context, query string) ([]neo4j.Record, error) {
	s.calls++
	s.queries = append(s.queries, query)
	return s.records, s.err
}

type stubHydrator struct {
	texts map[string]string
	err   error
}

func (s *stubHydrator) GetResourceText(resourceID string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	text, ok := s.texts[resourceID]
	return text, ok, nil
}

type stubRecorder struct {
	records []*models.ChatRecord
}

func (s *stubRecorder) InsertChatRecord(record *models.ChatRecord) error {
	s.records = append(s.records, record)
	return nil
}

func resourceRecord(id, name string) neo4j.Record {
	return neo4j.Record{Resource: &neo4j.Node{ID: id, Name: name}}
}

func TestPipeline_FallbackThenTwoResources(t *testing.T) {
	// Model emits no MATCH clause, pipeline must fall back and still answer.
	gen := &stubGenerator{outputs: []string{
		"I can't write Cypher, sorry.",
		"Both documents cover your question.",
	}}
	graph := &stubGraph{records: []neo4j.Record{
		resourceRecord("r1", "Budget.pdf"),
		resourceRecord("r2", "Notes.txt"),
	}}
	hydrator := &stubHydrator{texts: map[string]string{
		"r1": "budget details",
		"r2": "meeting notes",
	}}
	recorder := &stubRecorder{}

	p := NewPipeline(gen, graph, hydrator, recorder)
	resp, err := p.Run(context.Background(), Request{Query: "list all resources", ProjectID: "P1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.TranslatedQuery != fallbackQuery("P1", nil) {
		t.Errorf("translated query = %q, want canonical fallback", resp.TranslatedQuery)
	}
	if graph.calls != 1 {
		t.Errorf("graph executed %d times, want 1", graph.calls)
	}
	if len(resp.Context) != 2 {
		t.Fatalf("context size = %d, want 2", len(resp.Context))
	}
	if resp.Context["Budget.pdf"] != "budget details" {
		t.Errorf("Budget.pdf context = %q", resp.Context["Budget.pdf"])
	}
	if resp.Context["Notes.txt"] != "meeting notes" {
		t.Errorf("Notes.txt context = %q", resp.Context["Notes.txt"])
	}
	if resp.Answer != "Both documents cover your question." {
		t.Errorf("answer = %q", resp.Answer)
	}

	// Compose call is the second generator call and must carry both blocks.
	if gen.calls != 2 {
		t.Fatalf("generator called %d times, want 2", gen.calls)
	}
	composePrompt := gen.userPrompts[1]
	if !strings.Contains(composePrompt, "Budget.pdf:\nbudget details") {
		t.Errorf("compose prompt missing Budget.pdf block: %q", composePrompt)
	}
	if !strings.Contains(composePrompt, "Notes.txt:\nmeeting notes") {
		t.Errorf("compose prompt missing Notes.txt block: %q", composePrompt)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d chat turns, want 1", len(recorder.records))
	}
	if recorder.records[0].ResourceCount != 2 {
		t.Errorf("recorded resource count = %d, want 2", recorder.records[0].ResourceCount)
	}
}

func TestPipeline_SelectedResourceRestrictionRepaired(t *testing.T) {
	// Model output has the project but omits the name restriction.
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
		"Answer from the budget.",
	}}
	graph := &stubGraph{records: []neo4j.Record{
		resourceRecord("r1", "Budget.pdf"),
	}}
	hydrator := &stubHydrator{texts: map[string]string{"r1": "budget details"}}

	p := NewPipeline(gen, graph, hydrator, nil)
	resp, err := p.Run(context.Background(), Request{
		Query:             "what is the total budget?",
		ProjectID:         "P1",
		SelectedResources: []string{"Budget.pdf"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(resp.TranslatedQuery, "Budget.pdf") {
		t.Errorf("repaired query does not mention Budget.pdf: %q", resp.TranslatedQuery)
	}
	if !strings.Contains(graph.queries[0], "Budget.pdf") {
		t.Errorf("executed query does not mention Budget.pdf: %q", graph.queries[0])
	}
	if len(resp.Context) != 1 {
		t.Errorf("context size = %d, want 1", len(resp.Context))
	}
}

func TestPipeline_EmptyResult_ShortCircuits(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
	}}
	graph := &stubGraph{records: nil}
	hydrator := &stubHydrator{texts: map[string]string{}}

	p := NewPipeline(gen, graph, hydrator, nil)
	resp, err := p.Run(context.Background(), Request{Query: "anything?", ProjectID: "P1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Message != NoRelevantDataMessage {
		t.Errorf("message = %q, want %q", resp.Message, NoRelevantDataMessage)
	}
	if !resp.ShortCircuited() {
		t.Error("response should report short-circuit")
	}
	if resp.TranslatedQuery == "" {
		t.Error("short-circuit response must carry the translated query")
	}
	if resp.Answer != "" {
		t.Errorf("short-circuit response has answer %q", resp.Answer)
	}
	// The composer must never have been invoked.
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1 (translate only)", gen.calls)
	}
}

func TestPipeline_UnusableRecordsSkipped(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
		"answer",
	}}
	graph := &stubGraph{records: []neo4j.Record{
		{},                                      // no resource at all
		{Resource: &neo4j.Node{Name: "NoID"}},   // missing id
		{Concept: &neo4j.Node{ID: "c1", Name: "taxes"}}, // concept only
		resourceRecord("r1", "Budget.pdf"),
	}}
	hydrator := &stubHydrator{texts: map[string]string{"r1": "budget details"}}

	p := NewPipeline(gen, graph, hydrator, nil)
	resp, err := p.Run(context.Background(), Request{Query: "q", ProjectID: "P1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Context) != 1 {
		t.Fatalf("context size = %d, want 1", len(resp.Context))
	}
	if _, ok := resp.Context["Budget.pdf"]; !ok {
		t.Error("usable record missing from context")
	}
}

func TestPipeline_HydrationGap_DoesNotFail(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
		"answer from what remains",
	}}
	graph := &stubGraph{records: []neo4j.Record{
		resourceRecord("r1", "Budget.pdf"),
		resourceRecord("r2", "Gone.txt"), // no stored text
	}}
	hydrator := &stubHydrator{texts: map[string]string{"r1": "budget details"}}

	p := NewPipeline(gen, graph, hydrator, nil)
	resp, err := p.Run(context.Background(), Request{Query: "q", ProjectID: "P1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Context) != 1 {
		t.Errorf("context size = %d, want 1", len(resp.Context))
	}
	if resp.ShortCircuited() {
		t.Error("a hydration gap must not short-circuit when usable records exist")
	}
}

func TestPipeline_ComposeFailure_NoPartialResult(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
		"", // replaced by error below on second call
	}}
	graph := &stubGraph{records: []neo4j.Record{resourceRecord("r1", "Budget.pdf")}}
	hydrator := &stubHydrator{texts: map[string]string{"r1": "budget details"}}

	failing := &failAfterGenerator{inner: gen, failFrom: 2, err: errors.New("model unavailable")}

	p := NewPipeline(failing, graph, hydrator, nil)
	resp, err := p.Run(context.Background(), Request{Query: "q", ProjectID: "P1"})
	if err == nil {
		t.Fatal("expected compose failure to surface")
	}
	if resp != nil {
		t.Errorf("expected no partial response, got %+v", resp)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("error does not carry cause: %v", err)
	}
}

func TestPipeline_StoreFailure_Surfaces(t *testing.T) {
	gen := &stubGenerator{outputs: []string{
		`MATCH (p:Project {id: "P1"})-[:HAS_RESOURCE]->(r:Resource) RETURN r`,
	}}
	graph := &stubGraph{err: errors.New("connection refused")}
	hydrator := &stubHydrator{}

	p := NewPipeline(gen, graph, hydrator, nil)
	_, err := p.Run(context.Background(), Request{Query: "q", ProjectID: "P1"})
	if err == nil {
		t.Fatal("expected store failure to surface")
	}
	if !strings.Contains(err.Error(), "graph query failed") {
		t.Errorf("error = %v", err)
	}
}

// failAfterGenerator delegates to the inner generator until call failFrom,
// from which point every call errors.
type failAfterGenerator struct {
	inner    *stubGenerator
	failFrom int
	err      error
	calls    int
}

func (f *failAfterGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return "", f.err
	}
	return f.inner.GenerateText(ctx, system, user)
}
