package schedule

import (
	"errors"
	"fmt"
)

// FailureKind tags why an extraction failed.
type FailureKind int

const (
	// SchemaInvalid means the output parsed but misses a required field, mistypes one or uses an unknown category.
	SchemaInvalid FailureKind = iota + 1
	// ServiceUnreachable means the completion call itself failed.
	ServiceUnreachable
	// NonConformingOutput means the output could not be read as structured data at all.
	NonConformingOutput
)

func (k FailureKind) String() string {
	switch k {
	case SchemaInvalid:
		return "schema_invalid"
	case ServiceUnreachable:
		return "service_unreachable"
	case NonConformingOutput:
		return "nonconforming_output"
	default:
		return "unknown"
	}
}

// MissingFieldsMessage is shown when the reply lacks a required concept.
const MissingFieldsMessage = "시간, 일정 제목, 카테고리를 모두 말씀해 주세요."

// ErrInvalidInput is returned before any external call when the text is empty or too long.
var ErrInvalidInput = errors.New("invalid schedule text")

// ExtractionError is the failure result of the extraction flow.
type ExtractionError struct {
	Kind FailureKind
	// RawText is the verbatim service output, set for NonConformingOutput only.
	RawText string
	// Missing names the absent or invalid concept for SchemaInvalid: "title", "category", "time" or "description".
	Missing string
	Cause   error
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case SchemaInvalid:
		if e.Missing != "" {
			return fmt.Sprintf("extraction %s: %s", e.Kind, e.Missing)
		}
	case NonConformingOutput:
		return fmt.Sprintf("extraction %s", e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("extraction %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("extraction %s", e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the fixed, human-readable message for the failure.
// NonConformingOutput returns the raw reply since it is usually a clarifying question.
func (e *ExtractionError) UserMessage() string {
	switch e.Kind {
	case SchemaInvalid:
		return MissingFieldsMessage
	case NonConformingOutput:
		return e.RawText
	default:
		return "일정 정보를 추출하는데 실패했습니다. 다시 시도해주세요."
	}
}

func schemaInvalid(missing string, cause error) *ExtractionError {
	return &ExtractionError{Kind: SchemaInvalid, Missing: missing, Cause: cause}
}

func nonConforming(raw string, cause error) *ExtractionError {
	return &ExtractionError{Kind: NonConformingOutput, RawText: raw, Cause: cause}
}

// AsExtractionError unwraps err into an *ExtractionError.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr, true
	}
	return nil, false
}
