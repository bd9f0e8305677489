package types

import "fmt"

const (
	CodeValidation     = "VALIDATION"
	CodeInputAccess    = "INPUT_ACCESS"
	CodeInputParse     = "INPUT_PARSE"
	CodeMalformed      = "MALFORMED_TRACE"
	CodeUnknownPageRef = "UNKNOWN_PAGE_REF"
	CodeScriptNotFound = "SCRIPT_NOT_FOUND"
)

// CodedError is a typed error used for stable API mapping and CLI reporting.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a *CodedError.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// Malformedf reports a missing or mistyped trace field.
func Malformedf(format string, args ...any) error {
	return &CodedError{Code: CodeMalformed, Message: fmt.Sprintf(format, args...)}
}
