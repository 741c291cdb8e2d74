package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atlas-mind/backend/internal/storage/models"
)

type stubStore struct {
	inserted []*models.Resource
	err      error
}

func (s *stubStore) InsertResource(r *models.Resource) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, r)
	return nil
}

type stubGraph struct {
	merged     []string
	linked     map[string][]string
	mergeErr   error
	linkErrFor string
}

func (g *stubGraph) MergeResource(ctx context.Context, resourceID, name, projectID, uploadedBy string) error {
	if g.mergeErr != nil {
		return g.mergeErr
	}
	g.merged = append(g.merged, resourceID)
	return nil
}

func (g *stubGraph) LinkConcept(ctx context.Context, resourceID, conceptName string) error {
	if conceptName == g.linkErrFor {
		return errors.New("link failed")
	}
	if g.linked == nil {
		g.linked = make(map[string][]string)
	}
	g.linked[resourceID] = append(g.linked[resourceID], conceptName)
	return nil
}

type stubExtractor struct {
	concepts []string
	err      error
}

func (e *stubExtractor) Extract(text string) ([]string, error) {
	return e.concepts, e.err
}

func TestProcessUploadStoresAndLinks(t *testing.T) {
	store := &stubStore{}
	graph := &stubGraph{}
	proc := NewProcessor(store, graph, &stubExtractor{concepts: []string{"routing", "BGP"}})

	resource, concepts, err := proc.ProcessUpload(context.Background(), "proj-1", "notes.txt", []byte("BGP routing overview"), "user-1")
	if err != nil {
		t.Fatalf("ProcessUpload: %v", err)
	}
	if resource.ProjectID != "proj-1" || resource.Name != "notes.txt" {
		t.Errorf("unexpected resource %+v", resource)
	}
	if resource.ParsedText != "BGP routing overview" {
		t.Errorf("parsed text = %q", resource.ParsedText)
	}
	if resource.CreatedAt.IsZero() {
		t.Error("resource created_at is unset")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(store.inserted))
	}
	if len(graph.merged) != 1 || graph.merged[0] != resource.ID {
		t.Errorf("graph merge = %v, want [%s]", graph.merged, resource.ID)
	}
	if len(concepts) != 2 {
		t.Errorf("linked concepts = %v", concepts)
	}
	if got := graph.linked[resource.ID]; len(got) != 2 || got[0] != "routing" {
		t.Errorf("graph links = %v", got)
	}
}

func TestProcessUploadEmptyDocument(t *testing.T) {
	proc := NewProcessor(&stubStore{}, &stubGraph{}, &stubExtractor{})

	_, _, err := proc.ProcessUpload(context.Background(), "proj-1", "empty.txt", []byte("   \n"), "user-1")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestProcessUploadStoreFailureAborts(t *testing.T) {
	store := &stubStore{err: errors.New("disk full")}
	graph := &stubGraph{}
	proc := NewProcessor(store, graph, &stubExtractor{concepts: []string{"x"}})

	_, _, err := proc.ProcessUpload(context.Background(), "proj-1", "a.txt", []byte("text"), "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(graph.merged) != 0 {
		t.Errorf("graph should not be touched after store failure")
	}
}

func TestProcessUploadExtractionFailureSoft(t *testing.T) {
	store := &stubStore{}
	proc := NewProcessor(store, &stubGraph{}, &stubExtractor{err: errors.New("tagger crashed")})

	resource, concepts, err := proc.ProcessUpload(context.Background(), "proj-1", "a.txt", []byte("some text"), "user-1")
	if err != nil {
		t.Fatalf("extraction failure should not fail the upload: %v", err)
	}
	if resource == nil {
		t.Fatal("expected resource")
	}
	if len(concepts) != 0 {
		t.Errorf("concepts = %v, want none", concepts)
	}
}

func TestProcessUploadLinkFailureSkipsConcept(t *testing.T) {
	graph := &stubGraph{linkErrFor: "broken"}
	proc := NewProcessor(&stubStore{}, graph, &stubExtractor{concepts: []string{"broken", "ok"}})

	_, concepts, err := proc.ProcessUpload(context.Background(), "proj-1", "a.txt", []byte("some text"), "user-1")
	if err != nil {
		t.Fatalf("ProcessUpload: %v", err)
	}
	if len(concepts) != 1 || concepts[0] != "ok" {
		t.Errorf("linked = %v, want [ok]", concepts)
	}
}

func TestParseFilePlainText(t *testing.T) {
	text, err := ParseFile("readme.md", []byte("  # Title\nbody  "))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if text != "# Title\nbody" {
		t.Errorf("text = %q", text)
	}
}

func TestParseFileHTML(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
		<nav>menu</nav>
		<p>Network topology  overview.</p>
		<script>alert(1)</script>
	</body></html>`

	text, err := ParseFile("page.html", []byte(html))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if text != "Network topology overview." {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "menu") || strings.Contains(text, "alert") {
		t.Errorf("boilerplate not stripped: %q", text)
	}
}

func TestParseFileBadPDF(t *testing.T) {
	if _, err := ParseFile("broken.pdf", []byte("not a pdf")); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}
