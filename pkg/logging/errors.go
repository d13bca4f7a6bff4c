// synthctl/pkg/logging/errors.go

package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	// ErrorTypeConfig covers malformed rule grammar, bad regex patterns,
	// rules pointed at multi-valued attributes and missing address sources.
	ErrorTypeConfig ErrorType = "CONFIG"
	// ErrorTypeMatch covers empty match results the caller must refuse.
	ErrorTypeMatch ErrorType = "MATCH"
	// ErrorTypeAPI covers transport failures talking to the synthetics API.
	ErrorTypeAPI ErrorType = "API"
	// ErrorTypeStore covers result store failures.
	ErrorTypeStore ErrorType = "STORE"
)

type SynthError struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *SynthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *SynthError) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *SynthError {
	return &SynthError{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

// IsType reports whether err is a SynthError of the given type.
func IsType(err error, errType ErrorType) bool {
	synthErr, ok := err.(*SynthError)
	return ok && synthErr.Type == errType
}

func LogError(logger zerolog.Logger, err error) {
	synthErr, ok := err.(*SynthError)
	if !ok {
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	event := logger.Error().Err(synthErr.Err).
		Str("error_type", string(synthErr.Type)).
		Str("message", synthErr.Message)

	for k, v := range synthErr.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(synthErr.Message)
}
