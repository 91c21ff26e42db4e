package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hrygo/voicecal/plugin/ai"
	"github.com/hrygo/voicecal/plugin/ai/timeout"
)

const (
	// Validation constants
	MaxInputLength = 500 // characters
)

// Extraction flow states, used in logs.
const (
	stateReceived   = "received"
	statePrompting  = "prompting"
	stateExtracting = "extracting"
	stateValidating = "validating"
	stateDone       = "done"
	stateFailed     = "failed"
)

// Extractor turns free text into a validated Draft with a single completion call.
type Extractor struct {
	llmService ai.LLMService
	clock      Clock
	prompts    *PromptBuilder
	validator  *Validator
}

// Options configures an Extractor.
type Options struct {
	Clock     Clock
	StartHour int
	EndHour   int
}

// NewExtractor creates a new schedule extractor.
func NewExtractor(llmService ai.LLMService, opts Options) *Extractor {
	clock := opts.Clock
	if clock.Location == nil {
		clock.Location = NewClock(nil).Location
	}
	if clock.Now == nil {
		clock.Now = time.Now
	}
	startHour, endHour := opts.StartHour, opts.EndHour
	if startHour == 0 && endHour == 0 {
		startHour, endHour = DefaultStartHour, DefaultEndHour
	}
	return &Extractor{
		llmService: llmService,
		clock:      clock,
		prompts:    NewPromptBuilder(clock.Location, startHour, endHour),
		validator:  NewValidator(clock.Location),
	}
}

// Location returns the reference location of the extractor.
func (e *Extractor) Location() *time.Location {
	return e.clock.Location
}

// Extract runs Received → Prompting → Extracting → Validating and returns the draft.
// It never retries: one failed completion call is terminal.
func (e *Extractor) Extract(ctx context.Context, text string) (*Draft, error) {
	text = strings.TrimSpace(text)
	logger := slog.With("component", "schedule_extractor")
	logger.DebugContext(ctx, "extraction state", "state", stateReceived, "input_len", utf8.RuneCountInString(text))

	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > MaxInputLength {
		return nil, fmt.Errorf("%w: input too long: maximum %d characters, got %d", ErrInvalidInput, MaxInputLength, n)
	}

	reference := e.clock.Reference()

	logger.DebugContext(ctx, "extraction state", "state", statePrompting, "reference", reference.Format(time.RFC3339))
	prompt := e.prompts.Build(text, reference)

	logger.DebugContext(ctx, "extraction state", "state", stateExtracting)
	raw, err := e.llmService.Chat(ctx, prompt.Messages())
	if err != nil {
		logger.WarnContext(ctx, "extraction state", "state", stateFailed,
			"kind", ServiceUnreachable.String(),
			"unauthorized", errors.Is(err, ai.ErrUnauthorized),
			"error", err)
		return nil, &ExtractionError{Kind: ServiceUnreachable, Cause: err}
	}

	logger.DebugContext(ctx, "extraction state", "state", stateValidating, "raw", timeout.Truncate(raw))
	draft, err := e.validator.Validate(raw, reference)
	if err != nil {
		kind := "unknown"
		if extErr, ok := AsExtractionError(err); ok {
			kind = extErr.Kind.String()
		}
		logger.InfoContext(ctx, "extraction state", "state", stateFailed, "kind", kind, "error", err)
		return nil, err
	}

	logger.DebugContext(ctx, "extraction state", "state", stateDone,
		"category", draft.Category,
		"all_day", draft.AllDay)
	return draft, nil
}
