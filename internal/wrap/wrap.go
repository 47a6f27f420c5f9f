// Package wrap implements the schema-coercion transform: it coerces
// string-encoded numerics to the types a schema declares and wraps the result
// in a Kafka Connect {schema, payload} envelope.
//
// The streaming SQL engine upstream renders numeric and temporal values as
// JSON strings to preserve precision; the sink connector downstream expects
// real JSON numbers matching the inline schema. This package closes that gap
// and nothing more.
package wrap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/drblury/schemaflow/internal/connect"
	"github.com/drblury/schemaflow/internal/jsoncodec"
	"github.com/drblury/schemaflow/internal/logging"
)

// ErrMalformedPayload marks message values that are not valid JSON.
var ErrMalformedPayload = errors.New("payload is not valid JSON")

// Wrapper attaches schemas to raw message values. It holds no mutable state;
// a single Wrapper is safe for concurrent use by every per-topic handler.
type Wrapper struct {
	logger logging.ServiceLogger
}

// NewWrapper returns a Wrapper that logs coercion diagnostics to logger.
func NewWrapper(logger logging.ServiceLogger) *Wrapper {
	if logger == nil {
		panic("schemaflow: wrapper logger cannot be nil")
	}
	return &Wrapper{logger: logger}
}

// Wrap is the strict entry point. A nil or empty value is a tombstone and is
// returned as nil untouched, so downstream deletes keep working. Anything
// else must parse as JSON; the result is the {schema, payload} envelope with
// the payload's declared string-encoded numerics coerced.
func (w *Wrapper) Wrap(value []byte, schema *connect.Schema) ([]byte, error) {
	if len(value) == 0 {
		return nil, nil
	}

	var payload any
	if err := jsoncodec.DecodeUseNumber(value, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if obj, ok := payload.(map[string]any); ok {
		payload = w.coerceFields(obj, schema)
	}

	out, err := jsoncodec.Marshal(connect.Envelope{
		Schema:  schema.Raw(),
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// WrapOrPassThrough is the tolerant entry point used by the stream wiring.
// Values that fail to parse are returned unchanged, byte for byte, with a
// logged warning: a message we cannot understand must not be lost, but
// pretending to wrap it would corrupt the stream.
func (w *Wrapper) WrapOrPassThrough(value []byte, schema *connect.Schema) []byte {
	if len(value) == 0 {
		w.logger.Debug("tombstone value, passing through for delete", nil)
		return nil
	}

	out, err := w.Wrap(value, schema)
	if err != nil {
		w.logger.Warn("failed to parse message value, passing through unchanged",
			logging.LogFields{"error": err.Error()})
		return value
	}
	return out
}

// coerceFields builds a new payload map with every schema-declared,
// string-encoded numeric field parsed into a real number. The input map is
// never mutated; routes share schemas across concurrent handlers.
func (w *Wrapper) coerceFields(payload map[string]any, schema *connect.Schema) map[string]any {
	coerced := make(map[string]any, len(payload))
	for k, v := range payload {
		coerced[k] = v
	}

	for _, field := range schema.Fields {
		value, ok := coerced[field.Field]
		if !ok {
			// Optionality is the sink connector's business, not ours.
			continue
		}
		text, ok := value.(string)
		if !ok {
			// Already a number, bool, object, etc. Nothing to close.
			continue
		}
		if converted, ok := w.coerceValue(text, field); ok {
			coerced[field.Field] = converted
		}
	}

	return coerced
}

// coerceValue parses a single text value per the field's declared type.
// Parse failures are local to the field: the original text is kept and a
// diagnostic recorded, never an error that would abort the whole message.
func (w *Wrapper) coerceValue(text string, field connect.Field) (any, bool) {
	switch field.Type {
	case connect.TypeFloat32, connect.TypeFloat64:
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			w.logCoercionFailure(field, text, err)
			return nil, false
		}
		return parsed, true

	case connect.TypeInt32, connect.TypeInt64:
		if field.IsTimestamp() {
			// The engine emits TIMESTAMP columns as epoch milliseconds
			// with an optional decimal fraction, e.g. "1763960467672.000".
			// Connect's Timestamp wants plain milliseconds: truncate the
			// fraction, no unit conversion.
			integral := text
			if dot := strings.IndexByte(text, '.'); dot >= 0 {
				integral = text[:dot]
			}
			parsed, err := strconv.ParseInt(integral, 10, 64)
			if err != nil {
				w.logCoercionFailure(field, text, err)
				return nil, false
			}
			w.logger.Debug("coerced timestamp field", logging.LogFields{
				"field":        field.Field,
				"value":        text,
				"milliseconds": parsed,
			})
			return parsed, true
		}

		parsed, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			w.logCoercionFailure(field, text, err)
			return nil, false
		}
		return parsed, true

	case connect.TypeString, connect.TypeBoolean, connect.TypeBytes,
		connect.TypeStruct, connect.TypeArray, connect.TypeInvalid:
		// Only the numeric-from-string gap exists between producer and
		// schema; everything else passes through.
		return nil, false
	}
	return nil, false
}

func (w *Wrapper) logCoercionFailure(field connect.Field, text string, err error) {
	w.logger.Debug("could not coerce field, keeping original value", logging.LogFields{
		"field": field.Field,
		"type":  field.Type.String(),
		"value": text,
		"error": err.Error(),
	})
}
