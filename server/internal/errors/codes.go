package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/voicecal/plugin/ai"
	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/server/service/briefing"
	schedulesvc "github.com/hrygo/voicecal/server/service/schedule"
)

// ErrorCode represents a specific error type for pipeline operations.
type ErrorCode string

const (
	// ErrCodeSchemaInvalid indicates the extracted draft missed or broke a required field.
	ErrCodeSchemaInvalid ErrorCode = "SCHEMA_INVALID"
	// ErrCodeServiceUnreachable indicates the LLM service could not be reached.
	ErrCodeServiceUnreachable ErrorCode = "SERVICE_UNREACHABLE"
	// ErrCodeNonConformingOutput indicates the LLM answered with something other than a JSON object.
	ErrCodeNonConformingOutput ErrorCode = "NONCONFORMING_OUTPUT"
	// ErrCodeStorageUnavailable indicates the schedule store failed.
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeLLMMisconfigured indicates the provider rejected the configured credentials.
	ErrCodeLLMMisconfigured ErrorCode = "LLM_MISCONFIGURED"
	// ErrCodeNotFound indicates the requested schedule does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Fixed user-facing messages.
const (
	MessageBriefingFailed    = briefing.FailureMessage
	MessagePersistFailed     = "일정을 저장하는데 실패했습니다."
	MessageServiceDown       = "일정 추출 서비스에 연결할 수 없습니다. 잠시 후 다시 시도해주세요."
	MessageMisconfigured     = "일정 추출 서비스를 사용할 수 없습니다."
	MessageUnauthorized      = "인증이 필요합니다."
	MessageRateLimitExceeded = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
	MessageNotFound          = "일정을 찾을 수 없습니다."
	MessageInvalidSchedule   = "일정 정보가 올바르지 않습니다. 제목, 카테고리, 시간을 확인해주세요."
)

// MessageInvalidText is returned when the text is empty or longer than the extractor accepts.
var MessageInvalidText = fmt.Sprintf("음성 인식 텍스트를 1~%d자로 입력해주세요.", aischedule.MaxInputLength)

// AIError represents a structured error for pipeline operations.
type AIError struct {
	Code    ErrorCode
	Message string
	Status  int
	// RawMessage carries the upstream text, set only for NONCONFORMING_OUTPUT.
	RawMessage string
	Cause      error
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the response status, defaulting to 500.
func (e *AIError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// Body returns the JSON error payload.
func (e *AIError) Body() map[string]string {
	if e.Code == ErrCodeNonConformingOutput {
		return map[string]string{"error": string(e.Code), "rawMessage": e.RawMessage}
	}
	return map[string]string{"error": e.Message}
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AIError {
	if msg == "" {
		msg = MessageUnauthorized
	}
	return &AIError{Code: ErrCodeUnauthorized, Message: msg, Status: http.StatusUnauthorized}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded() *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: MessageRateLimitExceeded, Status: http.StatusTooManyRequests}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg, Status: http.StatusBadRequest}
}

// NotFound creates a not found error.
func NotFound() *AIError {
	return &AIError{Code: ErrCodeNotFound, Message: MessageNotFound, Status: http.StatusNotFound}
}

// StorageUnavailable creates a storage error with the operation's fixed message.
func StorageUnavailable(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeStorageUnavailable, Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}

// FromPipelineError maps an extraction, briefing or schedule service error onto an AIError.
// storageMessage is the fixed message used when the store failed.
func FromPipelineError(err error, storageMessage string) *AIError {
	if err == nil {
		return nil
	}

	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr
	}

	var extractErr *aischedule.ExtractionError
	if stderrors.As(err, &extractErr) {
		switch extractErr.Kind {
		case aischedule.NonConformingOutput:
			return &AIError{
				Code:       ErrCodeNonConformingOutput,
				Message:    extractErr.UserMessage(),
				Status:     http.StatusUnprocessableEntity,
				RawMessage: extractErr.RawText,
				Cause:      err,
			}
		case aischedule.SchemaInvalid:
			return &AIError{Code: ErrCodeSchemaInvalid, Message: extractErr.UserMessage(), Status: http.StatusBadRequest, Cause: err}
		case aischedule.ServiceUnreachable:
			if stderrors.Is(err, ai.ErrUnauthorized) {
				return &AIError{Code: ErrCodeLLMMisconfigured, Message: MessageMisconfigured, Status: http.StatusServiceUnavailable, Cause: err}
			}
			return &AIError{Code: ErrCodeServiceUnreachable, Message: MessageServiceDown, Status: http.StatusBadGateway, Cause: err}
		}
	}

	switch {
	case stderrors.Is(err, aischedule.ErrInvalidInput):
		return &AIError{Code: ErrCodeInvalidArgument, Message: MessageInvalidText, Status: http.StatusBadRequest, Cause: err}
	case stderrors.Is(err, schedulesvc.ErrInvalidSchedule):
		return &AIError{Code: ErrCodeInvalidArgument, Message: MessageInvalidSchedule, Status: http.StatusBadRequest, Cause: err}
	case stderrors.Is(err, schedulesvc.ErrScheduleNotFound):
		e := NotFound()
		e.Cause = err
		return e
	}

	if storageMessage == "" {
		storageMessage = MessagePersistFailed
	}
	return StorageUnavailable(storageMessage, err)
}
