// Package jsoncodec centralises JSON encoding so the rest of the codebase
// does not depend on a concrete JSON library.
package jsoncodec

import (
	"bytes"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// Valid reports whether data is syntactically valid JSON.
func Valid(data []byte) bool {
	return defaultConfig.Valid(data)
}

// DecodeUseNumber decodes data into v keeping numeric literals as
// json.Number. Payload values pass through the transformer unmodified unless
// a schema field says otherwise, and float64 round-tripping would silently
// lose int64 precision.
func DecodeUseNumber(data []byte, v any) error {
	dec := defaultConfig.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
