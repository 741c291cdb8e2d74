package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/atlas-mind/backend/pkg/logger"
)

// RepairKind records which post-generation repair, if any, was applied to the
// model's raw Cypher output.
type RepairKind string

const (
	RepairNone         RepairKind = "none"
	RepairFallback     RepairKind = "fallback"
	RepairProjectScope RepairKind = "project_scope"
	RepairNameFilter   RepairKind = "name_filter"
)

// Translation is the translator's stage output.
type Translation struct {
	Query  string
	Repair RepairKind
}

// Translator turns a natural-language question into a Cypher query scoped to
// one project and, optionally, to a set of resource names. The model is never
// trusted: its output is inspected and repaired, degrading to a canonical
// fallback query when it is unusable. Translation fails only when the
// generator call itself fails.
type Translator struct {
	gen Generator
}

func NewTranslator(gen Generator) *Translator {
	return &Translator{gen: gen}
}

const translatorSystemPrompt = `You are an expert in Neo4j and Cypher.

The database has nodes:
- Project
- Resource
- Concept

Relationships:
- (Project)-[:HAS_RESOURCE]->(Resource)
- (Resource)-[:COVERS]->(Concept)

Your task:
Given a natural language query, generate a Cypher query that returns all matching Resource nodes.
- Use the alias r for Resource nodes and c for Concept nodes.
- Include the related Concept nodes if they are relevant.
- Always filter resources to the project id given in the constraints.
- If a list of resource names is given, only match resources with those names.
- If the query mentions a Concept, filter resources linked to that Concept using case-insensitive partial matching with CONTAINS.

Write only the Cypher query, using these aliases (r for Resource, c for Concept). Do not include explanations, comments, or markdown.`

func (t *Translator) Translate(ctx context.Context, query, projectID string, resourceNames []string) (Translation, error) {
	userPrompt := t.buildUserPrompt(query, projectID, resourceNames)

	raw, err := t.gen.GenerateText(ctx, translatorSystemPrompt, userPrompt)
	if err != nil {
		return Translation{}, fmt.Errorf("cypher generation failed: %w", err)
	}

	cleaned := cleanRawQuery(raw)
	repaired, repair := repairQuery(cleaned, projectID, resourceNames)

	if repair != RepairNone {
		logger.Warn("Generated query repaired",
			zap.String("repair", string(repair)),
			zap.String("project_id", projectID),
		)
	}

	return Translation{Query: repaired, Repair: repair}, nil
}

func (t *Translator) buildUserPrompt(query, projectID string, resourceNames []string) string {
	var sb strings.Builder
	sb.WriteString("Constraints:\n")
	fmt.Fprintf(&sb, "- The Project id is %q.\n", projectID)
	if len(resourceNames) > 0 {
		fmt.Fprintf(&sb, "- Only consider resources named: %s.\n", strings.Join(resourceNames, ", "))
	}
	fmt.Fprintf(&sb, "\nHere is the user query:\n%q", query)
	return sb.String()
}

var codeFencePattern = regexp.MustCompile("```[a-zA-Z]*")

// cleanRawQuery strips markdown fences and language tags the model tends to
// wrap its output in, and collapses whitespace at the edges.
func cleanRawQuery(raw string) string {
	cleaned := codeFencePattern.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// repairQuery enforces the scoping invariants on the cleaned model output, in
// order:
//
//  1. no MATCH clause at all: the output is discarded for the canonical
//     fallback query, no further repair;
//  2. no reference to the Project: the output is wrapped in a project-scoped
//     MATCH that also applies the resource-name restriction;
//  3. resource names supplied but no name restriction present: the
//     restriction is spliced into the WHERE clause, or a WHERE clause is
//     inserted when the output has none.
func repairQuery(query, projectID string, resourceNames []string) (string, RepairKind) {
	lower := strings.ToLower(query)

	if !strings.Contains(lower, "match") {
		return fallbackQuery(projectID, resourceNames), RepairFallback
	}

	if !strings.Contains(lower, "project") {
		return wrapWithProjectScope(query, projectID, resourceNames), RepairProjectScope
	}

	if len(resourceNames) > 0 && !strings.Contains(lower, "r.name in") {
		return injectNameFilter(query, resourceNames), RepairNameFilter
	}

	return query, RepairNone
}

// fallbackQuery is the deterministic query substituted when the model output
// is unusable: match the project, traverse to its resources (restricted to
// the supplied names when present), and expand to covered concepts.
func fallbackQuery(projectID string, resourceNames []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCH (p:Project {id: %s})-[:HAS_RESOURCE]->(r:Resource)\n", quoteString(projectID))
	if len(resourceNames) > 0 {
		fmt.Fprintf(&sb, "WHERE r.name IN %s\n", quoteList(resourceNames))
	}
	sb.WriteString("OPTIONAL MATCH (r)-[:COVERS]->(c:Concept)\n")
	sb.WriteString("RETURN r, c")
	return sb.String()
}

// wrapWithProjectScope binds the project and resource scope first, then
// carries r into the model's original clause body.
func wrapWithProjectScope(query, projectID string, resourceNames []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCH (p:Project {id: %s})-[:HAS_RESOURCE]->(r:Resource)\n", quoteString(projectID))
	if len(resourceNames) > 0 {
		fmt.Fprintf(&sb, "WHERE r.name IN %s\n", quoteList(resourceNames))
	}
	sb.WriteString("WITH r\n")
	sb.WriteString(query)
	return sb.String()
}

var (
	wherePattern  = regexp.MustCompile(`(?i)\bWHERE\b`)
	returnPattern = regexp.MustCompile(`(?i)\bRETURN\b`)
)

// injectNameFilter splices the resource-name restriction into the query's
// filter clause. When no WHERE clause exists, one is inserted before RETURN
// rather than skipped, so a query that survived steps 1 and 2 can not escape
// the name restriction.
func injectNameFilter(query string, resourceNames []string) string {
	restriction := fmt.Sprintf("r.name IN %s", quoteList(resourceNames))

	if loc := wherePattern.FindStringIndex(query); loc != nil {
		return query[:loc[1]] + " " + restriction + " AND" + query[loc[1]:]
	}

	if loc := returnPattern.FindStringIndex(query); loc != nil {
		return query[:loc[0]] + "WHERE " + restriction + "\n" + query[loc[0]:]
	}

	return query + "\nWHERE " + restriction
}

func quoteString(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteString(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
