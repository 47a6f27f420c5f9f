// Package connect models the Kafka Connect JSON schema wire format: the
// inline schema a JsonConverter-based sink connector expects alongside every
// payload, and the {schema, payload} envelope that carries both.
package connect

import (
	"encoding/json"
	"fmt"

	"github.com/drblury/schemaflow/internal/jsoncodec"
)

// LogicalTimestamp is the logical-type name Kafka Connect uses for
// millisecond-precision timestamps. It is the only logical type the
// transformer treats specially.
const LogicalTimestamp = "org.apache.kafka.connect.data.Timestamp"

// FieldType enumerates the primitive type kinds a schema field can declare.
// Keeping this a closed enum means the coercion switch covers every kind
// instead of comparing freeform strings.
type FieldType uint8

const (
	TypeInvalid FieldType = iota
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBoolean
	TypeBytes
	TypeStruct
	TypeArray
)

var fieldTypeNames = map[FieldType]string{
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeBoolean: "boolean",
	TypeBytes:   "bytes",
	TypeStruct:  "struct",
	TypeArray:   "array",
}

// ParseFieldType maps a schema type tag to its FieldType. The connector
// ecosystem is not consistent about float spellings, so the Connect-native
// "float"/"double" are accepted as aliases for float32/float64.
func ParseFieldType(tag string) (FieldType, error) {
	switch tag {
	case "int32":
		return TypeInt32, nil
	case "int64":
		return TypeInt64, nil
	case "float32", "float":
		return TypeFloat32, nil
	case "float64", "double":
		return TypeFloat64, nil
	case "string":
		return TypeString, nil
	case "boolean":
		return TypeBoolean, nil
	case "bytes":
		return TypeBytes, nil
	case "struct":
		return TypeStruct, nil
	case "array":
		return TypeArray, nil
	default:
		return TypeInvalid, fmt.Errorf("unknown field type %q", tag)
	}
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// IsInteger reports whether the type is one of the integer kinds.
func (t FieldType) IsInteger() bool {
	return t == TypeInt32 || t == TypeInt64
}

// IsFloat reports whether the type is one of the floating-point kinds.
func (t FieldType) IsFloat() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

func (t FieldType) MarshalJSON() ([]byte, error) {
	name, ok := fieldTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("cannot marshal invalid field type %d", uint8(t))
	}
	return jsoncodec.Marshal(name)
}

func (t *FieldType) UnmarshalJSON(data []byte) error {
	var tag string
	if err := jsoncodec.Unmarshal(data, &tag); err != nil {
		return err
	}
	parsed, err := ParseFieldType(tag)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Field is one field descriptor of a struct schema. Name, when set, carries
// the logical type.
type Field struct {
	Field    string    `json:"field"`
	Type     FieldType `json:"type"`
	Optional bool      `json:"optional"`
	Name     string    `json:"name,omitempty"`
	Version  int       `json:"version,omitempty"`
}

// IsTimestamp reports whether the field carries the timestamp logical type.
func (f Field) IsTimestamp() bool {
	return f.Name == LogicalTimestamp
}

// Schema is a parsed Kafka Connect struct schema. It keeps the raw JSON it
// was parsed from as the envelope must re-emit the schema verbatim, byte for
// byte, regardless of how much of it the transformer understands.
type Schema struct {
	Type     string  `json:"type"`
	Optional bool    `json:"optional"`
	Name     string  `json:"name"`
	Fields   []Field `json:"fields"`

	raw json.RawMessage
}

// ParseSchema parses JSON schema text. The text is trusted configuration;
// parsing fails only on malformed JSON or an unknown field type tag.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := jsoncodec.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	s.raw = append(json.RawMessage(nil), data...)
	return &s, nil
}

// Raw returns the original schema JSON, exactly as supplied.
func (s *Schema) Raw() json.RawMessage {
	return s.raw
}

// Envelope is the wire format produced for every non-tombstone message:
// the schema verbatim plus the coerced payload.
type Envelope struct {
	Schema  json.RawMessage `json:"schema"`
	Payload any             `json:"payload"`
}
