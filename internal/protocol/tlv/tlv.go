package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
	ErrInvalidLength    = errors.New("tlv: invalid value length")
)

// Type IDs from tlv contract. IDs are never reused.
const (
	TypeU8         uint8 = 1
	TypeU16        uint8 = 2
	TypeU32        uint8 = 3
	TypeU64        uint8 = 4
	TypeBool       uint8 = 5
	TypeString     uint8 = 6
	TypeBytes      uint8 = 7
	TypeI64        uint8 = 8
	TypeI64List    uint8 = 9
	TypeFields     uint8 = 10
	TypeFieldsList uint8 = 11
	TypeHandle     uint8 = 12
)

// Field is one decoded TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) []byte {
	buf := make([]byte, HeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

// DecodeFields splits payload into fields. Values are sub-slices of payload,
// capped so appends cannot reach the next field.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	i := 0
	for i < len(payload) {
		if len(payload)-i < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		typeID := payload[i+2]
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += HeaderLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		end := i + int(l)
		fields = append(fields, Field{ID: id, Type: typeID, Value: payload[i:end:end]})
		i = end
	}
	return fields, nil
}

func EncodeFields(fields []Field) []byte {
	out := make([]byte, 0)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

// PutI64 encodes a signed 64-bit value.
func PutI64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func I64FromBytes(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: i64 length %d", ErrInvalidLength, len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// PutI64List encodes a list of signed values as consecutive 8-byte words.
func PutI64List(vs []int64) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint64(buf[i*8:i*8+8], uint64(v))
	}
	return buf
}

func I64ListFromBytes(b []byte) ([]int64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: i64 list length %d", ErrInvalidLength, len(b))
	}
	out := make([]int64, len(b)/8)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(b[i*8 : i*8+8]))
	}
	return out, nil
}

func BoolFromBytes(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, fmt.Errorf("%w: bool length %d", ErrInvalidLength, len(b))
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("tlv: invalid bool value %d", b[0])
	}
}

// PutFieldsList encodes a sequence of nested field payloads, each prefixed with
// its u32 length.
func PutFieldsList(items [][]byte) []byte {
	total := 0
	for _, item := range items {
		total += 4 + len(item)
	}
	buf := make([]byte, 0, total)
	for _, item := range items {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(item)))
		buf = append(buf, l[:]...)
		buf = append(buf, item...)
	}
	return buf
}

// FieldsListFromBytes splits a list written by PutFieldsList. Items are
// sub-slices of b.
func FieldsListFromBytes(b []byte) ([][]byte, error) {
	out := make([][]byte, 0)
	i := 0
	for i < len(b) {
		if len(b)-i < 4 {
			return nil, ErrShortFieldHeader
		}
		l := binary.BigEndian.Uint32(b[i : i+4])
		i += 4
		if uint32(len(b)-i) < l {
			return nil, ErrShortFieldValue
		}
		end := i + int(l)
		out = append(out, b[i:end:end])
		i = end
	}
	return out, nil
}
