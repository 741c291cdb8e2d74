package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atlas-mind/backend/internal/storage/models"
)

// ErrProjectNotFound is returned when a workflow targets an unknown project.
var ErrProjectNotFound = errors.New("project not found")

// ProjectContext is the project metadata handed to an agent prompt.
type ProjectContext struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DocID       string `json:"doc_id"`
	SheetID     string `json:"sheet_id"`
}

// ProjectStore fetches the project a workflow operates on.
type ProjectStore interface {
	GetProject(projectID string) (*models.Project, error)
}

// Generator produces text from a prompt.
type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// fetchContext is the first stage of every workflow: resolve the project
// and package its metadata for the agent.
func fetchContext(store ProjectStore, projectID string) (*ProjectContext, error) {
	project, err := store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	return &ProjectContext{
		Name:        project.Name,
		Description: project.Description,
		DocID:       project.DocID,
		SheetID:     project.SheetID,
	}, nil
}

func buildAgentPrompt(pc *ProjectContext, prompt string) string {
	var sb strings.Builder
	sb.WriteString("Project info:\n")
	sb.WriteString(fmt.Sprintf("name: %s\n", pc.Name))
	if pc.Description != "" {
		sb.WriteString(fmt.Sprintf("description: %s\n", pc.Description))
	}
	sb.WriteString("\nTask: ")
	sb.WriteString(prompt)
	return sb.String()
}
