package bundle

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

type cborValue struct {
	Kind   Kind         `cbor:"1,keyasint"`
	Num    int64        `cbor:"2,keyasint,omitempty"`
	Flag   bool         `cbor:"3,keyasint,omitempty"`
	Text   string       `cbor:"4,keyasint,omitempty"`
	Ints   []int64      `cbor:"5,keyasint,omitempty"`
	Nested cborBundle   `cbor:"6,keyasint,omitempty"`
	List   []cborBundle `cbor:"7,keyasint,omitempty"`
	Raw    []byte       `cbor:"8,keyasint,omitempty"`
}

type cborBundle map[Key]cborValue

var cborEnc = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Each bundle level takes at most three CBOR levels: the bundle map, the
// value map, and a list array.
var cborDec = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 3*MaxNestedLevels + 1,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// MarshalCBOR encodes b with core deterministic CBOR.
func MarshalCBOR(b *Bundle) ([]byte, error) {
	return cborEnc.Marshal(toCBOR(b))
}

// UnmarshalCBOR decodes a payload produced by MarshalCBOR. Duplicate map keys
// and bundles nested deeper than MaxNestedLevels are rejected.
func UnmarshalCBOR(payload []byte) (*Bundle, error) {
	var raw cborBundle
	if err := cborDec.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return fromCBOR(raw, 1)
}

func toCBOR(b *Bundle) cborBundle {
	out := make(cborBundle, b.Len())
	if b == nil {
		return out
	}
	for k, v := range b.entries {
		cv := cborValue{Kind: v.kind, Num: v.num, Flag: v.flag, Text: v.text, Ints: v.ints, Raw: v.raw}
		switch v.kind {
		case KindBundle:
			cv.Nested = toCBOR(v.nested)
		case KindBundleList:
			cv.List = make([]cborBundle, len(v.list))
			for i, item := range v.list {
				cv.List[i] = toCBOR(item)
			}
		}
		out[k] = cv
	}
	return out
}

func fromCBOR(raw cborBundle, depth int) (*Bundle, error) {
	if depth > MaxNestedLevels {
		return nil, fmt.Errorf("%w: nested deeper than %d levels", ErrMalformed, MaxNestedLevels)
	}
	b := New()
	for k, cv := range raw {
		v := value{kind: cv.Kind}
		switch cv.Kind {
		case KindInt:
			v.num = cv.Num
		case KindBool:
			v.flag = cv.Flag
		case KindString, KindHandle:
			v.text = cv.Text
		case KindIntList:
			v.ints = cv.Ints
		case KindToken:
			v.raw = cv.Raw
		case KindBundle:
			nested, err := fromCBOR(cv.Nested, depth+1)
			if err != nil {
				return nil, err
			}
			v.nested = nested
		case KindBundleList:
			v.list = make([]*Bundle, len(cv.List))
			for i, item := range cv.List {
				nested, err := fromCBOR(item, depth+1)
				if err != nil {
					return nil, err
				}
				v.list[i] = nested
			}
		default:
			continue
		}
		b.entries[k] = v
	}
	return b, nil
}
