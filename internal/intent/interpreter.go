package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/ai"
	"github.com/aethersegment/backend/internal/models"
)

// ParseError means the model answer was not a JSON object even after
// cleaning. Raw and Cleaned are kept for operators.
type ParseError struct {
	Raw     string
	Cleaned string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable interpretation response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Interpreter struct {
	Completer ai.Completer
	Logger    zerolog.Logger
}

// Interpret turns free text into a CampaignObjective. Only transport
// failures and unparseable answers are returned as errors.
func (i Interpreter) Interpret(ctx context.Context, text string) (models.CampaignObjective, error) {
	raw, err := i.Completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		return models.CampaignObjective{}, fmt.Errorf("interpret objective: %w", err)
	}
	return i.Parse(raw)
}

// Parse cleans and validates a raw model answer.
func (i Interpreter) Parse(raw string) (models.CampaignObjective, error) {
	cleaned := Clean(raw)

	fields, err := decodeObject(cleaned)
	if err != nil {
		i.Logger.Error().
			Err(err).
			Str("raw", raw).
			Str("cleaned", cleaned).
			Msg("interpretation response is not valid json")
		return models.CampaignObjective{}, &ParseError{Raw: raw, Cleaned: cleaned, Err: err}
	}

	coo, warns := BuildObjective(fields)
	for _, w := range warns {
		i.Logger.Warn().
			Str("field", w.Field).
			Interface("raw_value", w.Raw).
			Str("reason", w.Reason).
			Msg("interpretation field defaulted")
	}
	return coo, nil
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("expected a json object")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after json object")
	}
	return fields, nil
}
