package workflows

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/atlas-mind/backend/pkg/logger"
)

var docIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// GooglePublisher writes generated content into Google Workspace targets.
type GooglePublisher interface {
	InsertDocText(ctx context.Context, docID, text string) error
	AppendSheetRow(ctx context.Context, sheetID, text string) error
}

// DocResult reports where a doc workflow run landed its output.
type DocResult struct {
	Output       string `json:"output"`
	DocUpdated   bool   `json:"doc_updated"`
	SheetUpdated bool   `json:"sheet_updated"`
}

// DocWorkflow generates content for a project and publishes it to the
// project's linked Google Doc and Sheet. Runs in two stages: fetch the
// project context, then run the agent against it.
type DocWorkflow struct {
	store     ProjectStore
	gen       Generator
	publisher GooglePublisher
}

func NewDocWorkflow(store ProjectStore, gen Generator, publisher GooglePublisher) *DocWorkflow {
	return &DocWorkflow{
		store:     store,
		gen:       gen,
		publisher: publisher,
	}
}

func (w *DocWorkflow) Run(ctx context.Context, projectID, prompt string) (*DocResult, error) {
	pc, err := fetchContext(w.store, projectID)
	if err != nil {
		return nil, err
	}

	output, err := w.gen.GenerateText(ctx, "", buildAgentPrompt(pc, prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	result := &DocResult{Output: output}

	if w.publisher == nil {
		if pc.DocID != "" || pc.SheetID != "" {
			return nil, fmt.Errorf("google integration is not configured")
		}
		return result, nil
	}

	if pc.DocID != "" {
		docID := ExtractDocID(pc.DocID)
		if err := w.publisher.InsertDocText(ctx, docID, output); err != nil {
			return nil, fmt.Errorf("failed to update doc: %w", err)
		}
		result.DocUpdated = true
		logger.Info("Doc updated", zap.String("project_id", projectID), zap.String("doc_id", docID))
	}

	if pc.SheetID != "" {
		sheetID := ExtractDocID(pc.SheetID)
		if err := w.publisher.AppendSheetRow(ctx, sheetID, output); err != nil {
			return nil, fmt.Errorf("failed to update sheet: %w", err)
		}
		result.SheetUpdated = true
		logger.Info("Sheet updated", zap.String("project_id", projectID), zap.String("sheet_id", sheetID))
	}

	return result, nil
}

// ExtractDocID pulls the document ID out of a Google Docs or Sheets URL.
// A bare ID passes through unchanged.
func ExtractDocID(url string) string {
	if url == "" {
		return ""
	}
	if match := docIDPattern.FindStringSubmatch(url); match != nil {
		return match[1]
	}
	return url
}
