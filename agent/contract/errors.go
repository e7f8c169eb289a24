package contract

import "errors"

var (
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrMalformedResponse = errors.New("model response cannot be parsed into invocations")
	ErrAIUnavailable     = errors.New("ai service is unavailable")
	ErrPromptMissing     = errors.New("required prompt is missing")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateTool     = errors.New("tool already registered")
	ErrUnknownTool       = errors.New("unknown tool")
)
