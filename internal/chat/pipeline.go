// Package chat implements the natural-language-to-graph-query pipeline: the
// user's question is translated into a scoped Cypher query, the query is run
// against the graph, the matched resources are hydrated with their stored
// text, and a second model call composes a grounded answer.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/graph/neo4j"
	"github.com/atlas-mind/backend/internal/storage/models"
	"github.com/atlas-mind/backend/pkg/logger"
)

// NoRelevantDataMessage is returned when the translated query matched no
// usable resources; composing an answer from nothing would waste a model call.
const NoRelevantDataMessage = "no relevant data found"

// Generator is a single-shot generative model call.
type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GraphExecutor runs a read query against the graph store.
type GraphExecutor interface {
	Execute(ctx context.Context, query string) ([]neo4j.Record, error)
}

// ContextHydrator fetches the stored full text for a resource. The boolean
// reports whether any text exists; absence is not an error.
type ContextHydrator interface {
	GetResourceText(resourceID string) (string, bool, error)
}

// Recorder persists one completed chat turn. Recording failures are logged,
// never surfaced.
type Recorder interface {
	InsertChatRecord(record *models.ChatRecord) error
}

type Request struct {
	Query             string
	ProjectID         string
	UserID            string
	SelectedResources []string
}

type Response struct {
	Message         string            `json:"message,omitempty"`
	TranslatedQuery string            `json:"translated_query"`
	Repair          RepairKind        `json:"-"`
	Result          []neo4j.Record    `json:"raw_query_result,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
	Answer          string            `json:"answer,omitempty"`
}

// ShortCircuited reports whether the pipeline stopped before composing.
func (r *Response) ShortCircuited() bool {
	return r.Message == NoRelevantDataMessage
}

// Pipeline runs one chat turn: TRANSLATE, EXECUTE, HYDRATE, COMPOSE. Each
// step is strictly ordered; any hard failure aborts the turn and surfaces as
// a single error with no partial result. The pipeline holds no cross-request
// state, so concurrent turns are independent.
type Pipeline struct {
	translator *Translator
	graph      GraphExecutor
	hydrator   ContextHydrator
	composer   *Composer
	recorder   Recorder
}

func NewPipeline(gen Generator, graph GraphExecutor, hydrator ContextHydrator, recorder Recorder) *Pipeline {
	return &Pipeline{
		translator: NewTranslator(gen),
		graph:      graph,
		hydrator:   hydrator,
		composer:   NewComposer(gen),
		recorder:   recorder,
	}
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	logger.Info("Processing chat turn",
		zap.String("project_id", req.ProjectID),
		zap.String("query", req.Query),
		zap.Int("selected_resources", len(req.SelectedResources)),
	)

	translation, err := p.translator.Translate(ctx, req.Query, req.ProjectID, req.SelectedResources)
	if err != nil {
		return nil, err
	}

	records, err := p.graph.Execute(ctx, translation.Query)
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}

	contexts, usable, err := p.hydrate(records)
	if err != nil {
		return nil, err
	}

	if usable == 0 {
		logger.Info("No usable records, short-circuiting",
			zap.String("project_id", req.ProjectID),
		)
		return &Response{
			Message:         NoRelevantDataMessage,
			TranslatedQuery: translation.Query,
			Repair:          translation.Repair,
		}, nil
	}

	answer, err := p.composer.Compose(ctx, req.Query, contexts)
	if err != nil {
		return nil, err
	}

	p.record(req, translation.Query, answer, len(contexts), startTime)

	return &Response{
		TranslatedQuery: translation.Query,
		Repair:          translation.Repair,
		Result:          records,
		Context:         contexts,
		Answer:          answer,
	}, nil
}

// hydrate fetches the stored text of every record carrying a usable Resource
// node. Records without one are skipped, as are resources whose text is gone
// from the store; neither fails the turn. Duplicate names overwrite,
// last-wins, since one query is expected to bind a resource once.
func (p *Pipeline) hydrate(records []neo4j.Record) (map[string]string, int, error) {
	contexts := make(map[string]string)
	usable := 0

	for _, record := range records {
		resource := record.Resource
		if resource == nil || resource.ID == "" || resource.Name == "" {
			continue
		}
		usable++

		text, found, err := p.hydrator.GetResourceText(resource.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("context hydration failed: %w", err)
		}
		if !found {
			logger.Debug("Resource text missing, skipping",
				zap.String("resource_id", resource.ID),
				zap.String("name", resource.Name),
			)
			continue
		}

		contexts[resource.Name] = text
	}

	return contexts, usable, nil
}

func (p *Pipeline) record(req Request, translatedQuery, answer string, resourceCount int, startTime time.Time) {
	if p.recorder == nil {
		return
	}

	err := p.recorder.InsertChatRecord(&models.ChatRecord{
		ID:              uuid.New().String(),
		ProjectID:       req.ProjectID,
		UserID:          req.UserID,
		Query:           req.Query,
		TranslatedQuery: translatedQuery,
		Answer:          answer,
		ResourceCount:   resourceCount,
		LatencyMS:       int(time.Since(startTime).Milliseconds()),
		CreatedAt:       time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record chat turn", zap.Error(err))
	}
}
