package concepts

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/pkg/logger"
)

const DefaultLimit = 5

// Extractor pulls short topical phrases out of document text: named entities
// first, then noun phrases built from consecutive adjective/noun tokens.
type Extractor struct {
	limit int
}

func NewExtractor(limit int) *Extractor {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Extractor{limit: limit}
}

// Extract returns at most limit distinct phrases. Phrases are deduplicated by
// exact string equality, matching the graph's concept merge semantics.
func (e *Extractor) Extract(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text: %w", err)
	}

	seen := make(map[string]bool)
	var phrases []string

	add := func(phrase string) bool {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" || seen[phrase] {
			return false
		}
		seen[phrase] = true
		phrases = append(phrases, phrase)
		return len(phrases) >= e.limit
	}

	for _, ent := range doc.Entities() {
		if add(ent.Text) {
			logger.Debug("Concepts extracted", zap.Int("count", len(phrases)))
			return phrases, nil
		}
	}

	for _, chunk := range nounPhrases(doc.Tokens()) {
		if add(chunk) {
			break
		}
	}

	logger.Debug("Concepts extracted", zap.Int("count", len(phrases)))
	return phrases, nil
}

// nounPhrases joins runs of adjective and noun tokens into candidate phrases.
// A run with no noun in it is discarded.
func nounPhrases(tokens []prose.Token) []string {
	var phrases []string
	var current []string
	hasNoun := false

	flush := func() {
		if hasNoun && len(current) > 0 {
			phrases = append(phrases, strings.Join(current, " "))
		}
		current = nil
		hasNoun = false
	}

	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok.Tag, "NN"):
			current = append(current, tok.Text)
			hasNoun = true
		case tok.Tag == "JJ" && !hasNoun:
			current = append(current, tok.Text)
		default:
			flush()
		}
	}
	flush()

	return phrases
}
