// Package routes resolves the per-topic transformation routes from the flat
// configuration bag.
//
// Recognised keys:
//
//	schema.topic.<input-topic> = <schema JSON>
//	output.topic.<input-topic> = <output topic>
//
// Every other key belongs to someone else and is ignored here.
package routes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/drblury/schemaflow/internal/connect"
)

const (
	schemaTopicPrefix = "schema.topic."
	outputTopicPrefix = "output.topic."
)

var (
	ErrNoRoutes            = errors.New("no schema.topic.* configuration entries found")
	ErrMissingOutputTopic  = errors.New("missing output.topic configuration")
	ErrInputTopicRequired  = errors.New("input topic cannot be empty")
	ErrOutputTopicRequired = errors.New("output topic cannot be empty")
	ErrSchemaRequired      = errors.New("schema cannot be nil")
)

// Route binds one input topic to one output topic and the schema to attach.
// Routes are built once at startup and are read-only afterwards, so the
// concurrent per-topic handlers can share them without synchronisation.
type Route struct {
	InputTopic  string
	OutputTopic string
	Schema      *connect.Schema
}

// NewRoute validates and constructs a Route. Construction errors surface
// immediately; a half-built route must never reach the router.
func NewRoute(inputTopic, outputTopic string, schema *connect.Schema) (*Route, error) {
	if inputTopic == "" {
		return nil, ErrInputTopicRequired
	}
	if outputTopic == "" {
		return nil, ErrOutputTopicRequired
	}
	if schema == nil {
		return nil, ErrSchemaRequired
	}
	return &Route{
		InputTopic:  inputTopic,
		OutputTopic: outputTopic,
		Schema:      schema,
	}, nil
}

func (r *Route) String() string {
	return fmt.Sprintf("%s -> %s", r.InputTopic, r.OutputTopic)
}

// Resolve extracts all routes from the property bag. It fails on the first
// schema.topic.* entry without a matching output.topic.* companion, on
// unparseable schema JSON, and when no entries exist at all: a transformer
// with nothing to transform is a deployment mistake, not an idle service.
func Resolve(props map[string]string) ([]*Route, error) {
	keys := make([]string, 0, len(props))
	for key := range props {
		if strings.HasPrefix(key, schemaTopicPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	result := make([]*Route, 0, len(keys))
	for _, key := range keys {
		inputTopic := strings.TrimPrefix(key, schemaTopicPrefix)
		outputTopicKey := outputTopicPrefix + inputTopic

		outputTopic, ok := props[outputTopicKey]
		if !ok {
			return nil, fmt.Errorf("%w: %q required for input topic %q",
				ErrMissingOutputTopic, outputTopicKey, inputTopic)
		}

		schema, err := connect.ParseSchema([]byte(props[key]))
		if err != nil {
			return nil, fmt.Errorf("schema for input topic %q: %w", inputTopic, err)
		}

		route, err := NewRoute(inputTopic, outputTopic, schema)
		if err != nil {
			return nil, fmt.Errorf("route for input topic %q: %w", inputTopic, err)
		}
		result = append(result, route)
	}

	if len(result) == 0 {
		return nil, ErrNoRoutes
	}

	return result, nil
}
