package jsoncodec

import (
	"encoding/json"
	"testing"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := map[string]any{"id": "123", "name": "Alice"}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out map[string]any
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["id"] != "123" || out["name"] != "Alice" {
		t.Fatalf("unexpected round trip result: %v", out)
	}
}

func TestDecodeUseNumberKeepsPrecision(t *testing.T) {
	// 2^53+1 is not representable as a float64.
	data := []byte(`{"id":9007199254740993}`)

	var out map[string]any
	if err := DecodeUseNumber(data, &out); err != nil {
		t.Fatalf("DecodeUseNumber: %v", err)
	}

	num, ok := out["id"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", out["id"])
	}
	if num.String() != "9007199254740993" {
		t.Fatalf("precision lost: %s", num.String())
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{"a":1}`)) {
		t.Fatal("expected valid JSON to pass")
	}
	if Valid([]byte(`{"a":`)) {
		t.Fatal("expected truncated JSON to fail")
	}
}
