package bundle

import (
	"bytes"
	"fmt"

	"github.com/danmuck/connstate/internal/protocol/tlv"
)

// MarshalTLV encodes b as a flat TLV payload. Entries are written in key order
// so equal bundles encode to equal bytes.
func MarshalTLV(b *Bundle) []byte {
	return tlv.EncodeFields(toFields(b))
}

func toFields(b *Bundle) []tlv.Field {
	keys := b.Keys()
	fields := make([]tlv.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, toField(k, b.entries[k]))
	}
	return fields
}

func toField(k Key, v value) tlv.Field {
	f := tlv.Field{ID: uint16(k)}
	switch v.kind {
	case KindInt:
		f.Type, f.Value = tlv.TypeI64, tlv.PutI64(v.num)
	case KindBool:
		f.Type = tlv.TypeBool
		if v.flag {
			f.Value = []byte{1}
		} else {
			f.Value = []byte{0}
		}
	case KindString:
		f.Type, f.Value = tlv.TypeString, []byte(v.text)
	case KindHandle:
		f.Type, f.Value = tlv.TypeHandle, []byte(v.text)
	case KindToken:
		f.Type, f.Value = tlv.TypeBytes, v.raw
	case KindIntList:
		f.Type, f.Value = tlv.TypeI64List, tlv.PutI64List(v.ints)
	case KindBundle:
		f.Type, f.Value = tlv.TypeFields, MarshalTLV(v.nested)
	case KindBundleList:
		items := make([][]byte, len(v.list))
		for i, item := range v.list {
			items[i] = MarshalTLV(item)
		}
		f.Type, f.Value = tlv.TypeFieldsList, tlv.PutFieldsList(items)
	}
	return f
}

// MaxNestedLevels bounds how deep nested bundles may go in a decoded payload.
const MaxNestedLevels = 32

// UnmarshalTLV decodes a payload produced by MarshalTLV. Field types this
// package does not know are skipped so newer peers can add value kinds.
// Payloads nesting bundles deeper than MaxNestedLevels are rejected.
func UnmarshalTLV(payload []byte) (*Bundle, error) {
	return unmarshalTLV(payload, 1)
}

func unmarshalTLV(payload []byte, depth int) (*Bundle, error) {
	if depth > MaxNestedLevels {
		return nil, fmt.Errorf("%w: nested deeper than %d levels", ErrMalformed, MaxNestedLevels)
	}
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	b := New()
	for _, f := range fields {
		k := Key(f.ID)
		if _, dup := b.entries[k]; dup {
			return nil, fmt.Errorf("%w: duplicate key %s", ErrMalformed, k)
		}
		v, known, err := fromField(f, depth)
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %w", ErrMalformed, k, err)
		}
		if known {
			b.entries[k] = v
		}
	}
	return b, nil
}

func fromField(f tlv.Field, depth int) (value, bool, error) {
	switch f.Type {
	case tlv.TypeI64:
		n, err := tlv.I64FromBytes(f.Value)
		return value{kind: KindInt, num: n}, true, err
	case tlv.TypeBool:
		flag, err := tlv.BoolFromBytes(f.Value)
		return value{kind: KindBool, flag: flag}, true, err
	case tlv.TypeString:
		return value{kind: KindString, text: string(f.Value)}, true, nil
	case tlv.TypeHandle:
		return value{kind: KindHandle, text: string(f.Value)}, true, nil
	case tlv.TypeBytes:
		return value{kind: KindToken, raw: bytes.Clone(f.Value)}, true, nil
	case tlv.TypeI64List:
		ints, err := tlv.I64ListFromBytes(f.Value)
		return value{kind: KindIntList, ints: ints}, true, err
	case tlv.TypeFields:
		nested, err := unmarshalTLV(f.Value, depth+1)
		return value{kind: KindBundle, nested: nested}, true, err
	case tlv.TypeFieldsList:
		items, err := tlv.FieldsListFromBytes(f.Value)
		if err != nil {
			return value{}, true, err
		}
		list := make([]*Bundle, len(items))
		for i, item := range items {
			nested, err := unmarshalTLV(item, depth+1)
			if err != nil {
				return value{}, true, fmt.Errorf("item %d: %w", i, err)
			}
			list[i] = nested
		}
		return value{kind: KindBundleList, list: list}, true, nil
	default:
		return value{}, false, nil
	}
}
