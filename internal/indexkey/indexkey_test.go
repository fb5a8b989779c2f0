package indexkey

import (
	"bytes"
	"sort"
	"testing"
)

func TestEncodeIntOrderingPreserved(t *testing.T) {
	values := []int64{-1000, -1, 0, 1, 42, 1000, 1 << 40}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%d): %v", v, err)
		}
		encoded[i] = enc
	}

	for i := 1; i < len(encoded); i++ {
		if bytes.Compare(encoded[i-1], encoded[i]) >= 0 {
			t.Fatalf("byte order does not match numeric order at %d: %v vs %v", i, values[i-1], values[i])
		}
	}
}

func TestEncodeFloatOrderingPreserved(t *testing.T) {
	values := []float64{-100.5, -1.0, -0.001, 0.0, 0.001, 1.0, 100.5}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%v): %v", v, err)
		}
		encoded[i] = enc
	}

	sorted := make([][]byte, len(encoded))
	copy(sorted, encoded)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	for i := range encoded {
		if !bytes.Equal(sorted[i], encoded[i]) {
			t.Fatalf("float encoding does not sort into numeric order: %v", values)
		}
	}
}

func TestEncodeNumericKindsAgreeByValue(t *testing.T) {
	want, err := Encode(int64(2001))
	if err != nil {
		t.Fatalf("Encode(int64): %v", err)
	}

	others := []interface{}{2001, int32(2001), float64(2001), float32(2001), uint64(2001)}
	for _, v := range others {
		got, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%T): %v", v, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Encode(%T(%v)) = %v, want %v (must match int64 encoding of the same value)", v, v, got, want)
		}
	}
}

func TestEncodeStringPassthrough(t *testing.T) {
	enc, err := Encode("hello")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(enc) != "hello" {
		t.Fatalf("got %q, want %q", enc, "hello")
	}
}

func TestEncodeBool(t *testing.T) {
	trueEnc, _ := Encode(true)
	falseEnc, _ := Encode(false)
	if bytes.Equal(trueEnc, falseEnc) {
		t.Fatal("true and false must encode to distinct keys")
	}
}

func TestEncodeUnsupportedType(t *testing.T) {
	if _, err := Encode(struct{}{}); err == nil {
		t.Fatal("expected an error for an unsupported field type")
	}
}

func TestEncodeNil(t *testing.T) {
	enc, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil): %v", err)
	}
	if len(enc) != 0 {
		t.Fatalf("expected empty encoding for nil, got %v", enc)
	}
}
