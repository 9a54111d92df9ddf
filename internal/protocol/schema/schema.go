package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingRequiredField reports a required tag absent from a bundle.
	ErrMissingRequiredField = errors.New("schema: missing required field")
	// ErrMalformedSubRecord reports a present value that cannot be decoded.
	ErrMalformedSubRecord = errors.New("schema: malformed sub-record")
)

// FieldSpec declares one tag of a record.
type FieldSpec struct {
	Name     string
	Kind     bundle.Kind
	Required bool
	// Local tags carry same-process references and never appear in a
	// serialized bundle.
	Local bool
	// Retired tags are no longer written but stay in the table so the value
	// is never handed out again.
	Retired bool
}

// Registry is the append-only tag table of one record. Fields is written as a
// map literal keyed by tag constants, so a reused tag value does not compile.
type Registry struct {
	Record string
	Next   bundle.Key
	Fields map[bundle.Key]FieldSpec
}

// ValidationError locates a decode failure. It unwraps to
// ErrMissingRequiredField or ErrMalformedSubRecord.
type ValidationError struct {
	Record string
	Tag    bundle.Key
	Field  string
	Reason string
	Err    error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: record=%s: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("schema: record=%s field=%s(%s): %s", e.Record, e.Field, e.Tag, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// Missing builds the error for an absent required tag.
func (r Registry) Missing(tag bundle.Key) error {
	return ValidationError{
		Record: r.Record,
		Tag:    tag,
		Field:  r.Fields[tag].Name,
		Reason: "missing required field",
		Err:    ErrMissingRequiredField,
	}
}

// Malformed builds the error for a tag whose value failed to decode. cause may
// itself be a ValidationError from a nested record.
func (r Registry) Malformed(tag bundle.Key, cause error) error {
	reason := "malformed value"
	if cause != nil {
		reason = cause.Error()
	}
	return ValidationError{
		Record: r.Record,
		Tag:    tag,
		Field:  r.Fields[tag].Name,
		Reason: reason,
		Err:    ErrMalformedSubRecord,
	}
}

// Validate enforces required tags and value kinds for known tags.
// Unknown tags are ignored.
func (r Registry) Validate(b *bundle.Bundle) error {
	log.Debug().Str("record", r.Record).Int("entries", b.Len()).Msg("schema.Validate")
	for _, tag := range sortedTags(r.Fields) {
		spec := r.Fields[tag]
		if spec.Local || spec.Retired {
			continue
		}
		kind, ok := b.KindOf(tag)
		if !ok {
			if spec.Required {
				log.Debug().Str("record", r.Record).Stringer("tag", tag).Msg("schema.Validate missing field")
				return r.Missing(tag)
			}
			continue
		}
		if kind != spec.Kind {
			log.Debug().
				Str("record", r.Record).
				Stringer("tag", tag).
				Stringer("got", kind).
				Stringer("want", spec.Kind).
				Msg("schema.Validate type mismatch")
			return r.Malformed(tag, fmt.Errorf("kind %s, want %s", kind, spec.Kind))
		}
	}
	return nil
}

// Check verifies the table itself: every tag below Next and every name unique.
func (r Registry) Check() error {
	names := make(map[string]bundle.Key, len(r.Fields))
	for _, tag := range sortedTags(r.Fields) {
		spec := r.Fields[tag]
		if tag >= r.Next {
			return fmt.Errorf("schema: record=%s tag %d is not below next tag %d", r.Record, tag, r.Next)
		}
		if spec.Name == "" {
			return fmt.Errorf("schema: record=%s tag %d has no name", r.Record, tag)
		}
		if prev, dup := names[spec.Name]; dup {
			return fmt.Errorf("schema: record=%s name %q used by tags %d and %d", r.Record, spec.Name, prev, tag)
		}
		names[spec.Name] = tag
	}
	return nil
}

// Registries lists every record table for checks and diagnostics.
func Registries() []Registry {
	return []Registry{
		ConnectionState,
		ConnectionRequest,
		PlayerCommands,
		PlayerInfo,
		MediaItem,
		Track,
		SessionCommands,
		SessionCommand,
		CommandButton,
	}
}

func sortedTags(fields map[bundle.Key]FieldSpec) []bundle.Key {
	return slices.Sorted(maps.Keys(fields))
}
