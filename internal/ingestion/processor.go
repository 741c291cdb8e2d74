package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/storage/models"
	"github.com/atlas-mind/backend/pkg/logger"
)

// ErrEmptyDocument is returned when a file parses to no usable text.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// ResourceStore persists uploaded resources and their parsed text.
type ResourceStore interface {
	InsertResource(resource *models.Resource) error
}

// GraphWriter mirrors resources and concepts into the graph.
type GraphWriter interface {
	MergeResource(ctx context.Context, resourceID, name, projectID, uploadedBy string) error
	LinkConcept(ctx context.Context, resourceID, conceptName string) error
}

// ConceptExtractor pulls key concepts from parsed text.
type ConceptExtractor interface {
	Extract(text string) ([]string, error)
}

// Processor turns an uploaded file into a stored resource with its
// concepts mirrored into the graph.
type Processor struct {
	store     ResourceStore
	graph     GraphWriter
	extractor ConceptExtractor
}

func NewProcessor(store ResourceStore, graph GraphWriter, extractor ConceptExtractor) *Processor {
	return &Processor{
		store:     store,
		graph:     graph,
		extractor: extractor,
	}
}

// ProcessUpload parses the file, stores the resource, and links its
// concepts in the graph. Concept extraction failures degrade to a
// resource with no concepts rather than failing the upload.
func (p *Processor) ProcessUpload(ctx context.Context, projectID, filename string, data []byte, uploadedBy string) (*models.Resource, []string, error) {
	text, err := ParseFile(filename, data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if text == "" {
		return nil, nil, ErrEmptyDocument
	}

	resource := &models.Resource{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		Name:       filename,
		ParsedText: text,
		UploadedBy: uploadedBy,
		CreatedAt:  time.Now(),
	}

	if err := p.store.InsertResource(resource); err != nil {
		return nil, nil, fmt.Errorf("failed to store resource: %w", err)
	}

	if err := p.graph.MergeResource(ctx, resource.ID, resource.Name, projectID, uploadedBy); err != nil {
		return nil, nil, fmt.Errorf("failed to mirror resource into graph: %w", err)
	}

	conceptNames, err := p.extractor.Extract(text)
	if err != nil {
		logger.Warn("Concept extraction failed",
			zap.String("resource_id", resource.ID),
			zap.Error(err))
		return resource, nil, nil
	}

	linked := make([]string, 0, len(conceptNames))
	for _, name := range conceptNames {
		if err := p.graph.LinkConcept(ctx, resource.ID, name); err != nil {
			logger.Warn("Failed to link concept",
				zap.String("resource_id", resource.ID),
				zap.String("concept", name),
				zap.Error(err))
			continue
		}
		linked = append(linked, name)
	}

	return resource, linked, nil
}
