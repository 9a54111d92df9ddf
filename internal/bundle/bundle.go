// Package bundle implements the keyed container exchanged between a media
// session and its controllers.
//
// A Bundle is a flat map from a short numeric key to one typed value: an int,
// a bool, a string, an int list, a nested bundle, a bundle list, an opaque
// handle or an opaque token. Readers treat absent keys as "use the default" and
// ignore keys they do not know.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrKindMismatch = errors.New("bundle: value kind mismatch")
	ErrMalformed    = errors.New("bundle: malformed encoding")
)

// Key identifies one entry. Keys render in base 36 so diagnostics match the
// compact string keys older peers used.
type Key uint16

func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 36)
}

// Kind is the type of a stored value.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindBool
	KindString
	KindIntList
	KindBundle
	KindBundleList
	KindHandle
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindIntList:
		return "int_list"
	case KindBundle:
		return "bundle"
	case KindBundleList:
		return "bundle_list"
	case KindHandle:
		return "handle"
	case KindToken:
		return "token"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Handle is an opaque reference resolved by the transport, never by this
// package.
type Handle string

// NewHandle mints a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

// Token is an opaque platform token carried verbatim.
type Token []byte

type value struct {
	kind   Kind
	num    int64
	flag   bool
	text   string
	ints   []int64
	nested *Bundle
	list   []*Bundle
	raw    []byte
}

// Bundle is a keyed container. The zero value is not usable; call New.
type Bundle struct {
	entries map[Key]value
}

func New() *Bundle {
	return &Bundle{entries: make(map[Key]value)}
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// IsEmpty reports whether b holds no entries. A nil bundle is empty.
func (b *Bundle) IsEmpty() bool {
	return b.Len() == 0
}

// Has reports whether k is present.
func (b *Bundle) Has(k Key) bool {
	if b == nil {
		return false
	}
	_, ok := b.entries[k]
	return ok
}

// KindOf returns the kind stored under k.
func (b *Bundle) KindOf(k Key) (Kind, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b.entries[k]
	return v.kind, ok
}

// Keys returns every key in ascending order.
func (b *Bundle) Keys() []Key {
	if b == nil {
		return nil
	}
	keys := make([]Key, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Remove deletes k if present.
func (b *Bundle) Remove(k Key) {
	delete(b.entries, k)
}

func (b *Bundle) PutInt(k Key, v int) {
	b.entries[k] = value{kind: KindInt, num: int64(v)}
}

func (b *Bundle) PutInt64(k Key, v int64) {
	b.entries[k] = value{kind: KindInt, num: v}
}

func (b *Bundle) PutBool(k Key, v bool) {
	b.entries[k] = value{kind: KindBool, flag: v}
}

func (b *Bundle) PutString(k Key, v string) {
	b.entries[k] = value{kind: KindString, text: v}
}

func (b *Bundle) PutInts(k Key, vs []int64) {
	b.entries[k] = value{kind: KindIntList, ints: slices.Clone(vs)}
}

// PutBundle stores a deep copy of v. A nil v stores an empty bundle.
func (b *Bundle) PutBundle(k Key, v *Bundle) {
	b.entries[k] = value{kind: KindBundle, nested: v.Clone()}
}

// PutList stores deep copies of vs. Nil elements are stored as empty bundles.
func (b *Bundle) PutList(k Key, vs []*Bundle) {
	list := make([]*Bundle, len(vs))
	for i, item := range vs {
		list[i] = item.Clone()
	}
	b.entries[k] = value{kind: KindBundleList, list: list}
}

func (b *Bundle) PutHandle(k Key, h Handle) {
	b.entries[k] = value{kind: KindHandle, text: string(h)}
}

func (b *Bundle) PutToken(k Key, t Token) {
	b.entries[k] = value{kind: KindToken, raw: bytes.Clone(t)}
}

func (b *Bundle) lookup(k Key, want Kind) (value, bool, error) {
	if b == nil {
		return value{}, false, nil
	}
	v, ok := b.entries[k]
	if !ok {
		return value{}, false, nil
	}
	if v.kind != want {
		return value{}, true, fmt.Errorf("%w: key %s holds %s, want %s", ErrKindMismatch, k, v.kind, want)
	}
	return v, true, nil
}

// Int returns the int under k, or def when k is absent.
func (b *Bundle) Int(k Key, def int) (int, error) {
	v, ok, err := b.lookup(k, KindInt)
	if err != nil || !ok {
		return def, err
	}
	return int(v.num), nil
}

// Int64 returns the int under k, or def when k is absent.
func (b *Bundle) Int64(k Key, def int64) (int64, error) {
	v, ok, err := b.lookup(k, KindInt)
	if err != nil || !ok {
		return def, err
	}
	return v.num, nil
}

// Bool returns the bool under k, or def when k is absent.
func (b *Bundle) Bool(k Key, def bool) (bool, error) {
	v, ok, err := b.lookup(k, KindBool)
	if err != nil || !ok {
		return def, err
	}
	return v.flag, nil
}

// Text returns the string under k, or def when k is absent.
func (b *Bundle) Text(k Key, def string) (string, error) {
	v, ok, err := b.lookup(k, KindString)
	if err != nil || !ok {
		return def, err
	}
	return v.text, nil
}

// Ints returns a copy of the int list under k.
func (b *Bundle) Ints(k Key) ([]int64, bool, error) {
	v, ok, err := b.lookup(k, KindIntList)
	if err != nil || !ok {
		return nil, ok, err
	}
	return slices.Clone(v.ints), true, nil
}

// Nested returns a copy of the bundle under k.
func (b *Bundle) Nested(k Key) (*Bundle, bool, error) {
	v, ok, err := b.lookup(k, KindBundle)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v.nested.Clone(), true, nil
}

// List returns copies of the bundles under k.
func (b *Bundle) List(k Key) ([]*Bundle, bool, error) {
	v, ok, err := b.lookup(k, KindBundleList)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([]*Bundle, len(v.list))
	for i, item := range v.list {
		out[i] = item.Clone()
	}
	return out, true, nil
}

// Handle returns the handle under k.
func (b *Bundle) Handle(k Key) (Handle, bool, error) {
	v, ok, err := b.lookup(k, KindHandle)
	if err != nil || !ok {
		return "", ok, err
	}
	return Handle(v.text), true, nil
}

// Token returns a copy of the token under k.
func (b *Bundle) Token(k Key) (Token, bool, error) {
	v, ok, err := b.lookup(k, KindToken)
	if err != nil || !ok {
		return nil, ok, err
	}
	return Token(bytes.Clone(v.raw)), true, nil
}

// Clone returns a deep copy. Cloning nil yields an empty bundle.
func (b *Bundle) Clone() *Bundle {
	out := New()
	if b == nil {
		return out
	}
	for k, v := range b.entries {
		out.entries[k] = v.clone()
	}
	return out
}

func (v value) clone() value {
	c := v
	c.ints = slices.Clone(v.ints)
	c.raw = bytes.Clone(v.raw)
	if v.nested != nil {
		c.nested = v.nested.Clone()
	}
	if v.list != nil {
		c.list = make([]*Bundle, len(v.list))
		for i, item := range v.list {
			c.list[i] = item.Clone()
		}
	}
	return c
}

// Equal reports deep equality. Nil and empty bundles are equal.
func (b *Bundle) Equal(other *Bundle) bool {
	if b.Len() != other.Len() {
		return false
	}
	if b.Len() == 0 {
		return true
	}
	for k, v := range b.entries {
		ov, ok := other.entries[k]
		if !ok || !v.equal(ov) {
			return false
		}
	}
	return true
}

func (v value) equal(o value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindString, KindHandle:
		return v.text == o.text
	case KindIntList:
		return slices.Equal(v.ints, o.ints)
	case KindToken:
		return bytes.Equal(v.raw, o.raw)
	case KindBundle:
		return v.nested.Equal(o.nested)
	case KindBundleList:
		return slices.EqualFunc(v.list, o.list, func(a, b *Bundle) bool { return a.Equal(b) })
	default:
		return false
	}
}
