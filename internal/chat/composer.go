package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Composer produces the grounded answer from the user's question and the
// hydrated resource texts. The model output is returned verbatim; there is no
// repair path here, a transport failure simply propagates.
type Composer struct {
	gen Generator
}

func NewComposer(gen Generator) *Composer {
	return &Composer{gen: gen}
}

const composerSystemPrompt = `You are a research assistant answering questions about a project's documents.

Answer truthfully using only the provided excerpts. Cite which resources you used by name. If the excerpts do not contain the answer, say so.`

func (c *Composer) Compose(ctx context.Context, query string, contexts map[string]string) (string, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nExcerpts:\n\n%s", query, serializeContext(contexts))

	answer, err := c.gen.GenerateText(ctx, composerSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	return answer, nil
}

// serializeContext renders the context mapping as labeled blocks joined by
// blank lines. Names are sorted so the same context always produces the same
// prompt.
func serializeContext(contexts map[string]string) string {
	names := make([]string, 0, len(contexts))
	for name := range contexts {
		names = append(names, name)
	}
	sort.Strings(names)

	blocks := make([]string, 0, len(names))
	for _, name := range names {
		blocks = append(blocks, fmt.Sprintf("%s:\n%s", name, contexts[name]))
	}

	return strings.Join(blocks, "\n\n")
}
