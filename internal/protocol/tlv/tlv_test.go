package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	in := []Field{
		{ID: 1, Type: TypeString, Value: []byte("session-1")},
		{ID: 9999, Type: TypeBytes, Value: []byte{0xAA, 0xBB}}, // unknown field id
	}
	b := EncodeFields(in)
	out, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(out))
	}
	if out[1].ID != 9999 || out[1].Type != TypeBytes || !bytes.Equal(out[1].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[1])
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestI64ListRoundTrip(t *testing.T) {
	in := []int64{-1, 0, 7, 1 << 40}
	out, err := I64ListFromBytes(PutI64List(in))
	if err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %v", out)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("index %d: got %d want %d", i, out[i], in[i])
		}
	}
	if _, err := I64ListFromBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestFieldsListRoundTripKeepsEmptyItems(t *testing.T) {
	in := [][]byte{{}, EncodeField(Field{ID: 3, Type: TypeBool, Value: []byte{1}}), {}}
	out, err := FieldsListFromBytes(PutFieldsList(in))
	if err != nil {
		t.Fatalf("decode fields list: %v", err)
	}
	if len(out) != 3 || len(out[0]) != 0 || !bytes.Equal(out[1], in[1]) || len(out[2]) != 0 {
		t.Fatalf("unexpected list: %v", out)
	}
}

func TestFieldsListTruncatedIsDeterministic(t *testing.T) {
	_, err := FieldsListFromBytes([]byte{0, 0, 0, 9, 1})
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestBoolFromBytesRejectsOutOfRange(t *testing.T) {
	if _, err := BoolFromBytes([]byte{2}); err == nil {
		t.Fatalf("expected error for bool value 2")
	}
	v, err := BoolFromBytes([]byte{1})
	if err != nil || !v {
		t.Fatalf("unexpected bool decode: %v %v", v, err)
	}
}

func TestDecodedValuesAreCappedSubSlices(t *testing.T) {
	payload := EncodeFields([]Field{
		{ID: 1, Type: TypeBytes, Value: []byte{1, 2}},
		{ID: 2, Type: TypeBytes, Value: []byte{3, 4}},
	})
	out, err := DecodeFields(payload)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if &out[0].Value[0] != &payload[HeaderLen] {
		t.Fatalf("value should share the payload's memory")
	}
	if cap(out[0].Value) != 2 {
		t.Fatalf("value capacity should stop at its field, got %d", cap(out[0].Value))
	}
	_ = append(out[0].Value, 0xFF)
	if !bytes.Equal(out[1].Value, []byte{3, 4}) {
		t.Fatalf("appending to one value changed the next: %v", out[1].Value)
	}
}
