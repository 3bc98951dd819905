package log

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// structuredError logs the message of an error together with the fields of
// the first error in its chain that knows how to marshal itself.
type structuredError struct {
	err       error
	marshaler zerolog.LogObjectMarshaler
}

func (s structuredError) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message", s.err.Error())
	s.marshaler.MarshalZerologObject(e)
}

// marshalError is installed as zerolog.ErrorMarshalFunc. Typed errors from
// pkg/errors are wrapped by cockroachdb/errors, so the chain is searched.
func marshalError(err error) interface{} {
	if err == nil {
		return nil
	}
	var m zerolog.LogObjectMarshaler
	if errors.As(err, &m) {
		return structuredError{err: err, marshaler: m}
	}
	return err
}

// marshalStack is installed as zerolog.ErrorStackMarshaler.
func marshalStack(err error) interface{} {
	if s := extractStacktrace(err); s != "" {
		return s
	}
	return nil
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
