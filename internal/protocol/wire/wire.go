// Package wire moves bundles across a byte stream: one frame per message,
// payload encoded as TLV or CBOR and optionally zstd-compressed.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/connstate/internal/auth"
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/observability"
	"github.com/danmuck/connstate/internal/protocol/frame"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

type MessageType uint32

const (
	MsgConnectionRequest  MessageType = 1
	MsgConnectionState    MessageType = 2
	MsgConnectionRejected MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case MsgConnectionRequest:
		return "connection_request"
	case MsgConnectionState:
		return "connection_state"
	case MsgConnectionRejected:
		return "connection_rejected"
	default:
		return fmt.Sprintf("message_type(%d)", uint32(t))
	}
}

// Format selects the payload encoding of outgoing frames. Incoming frames
// say their own format in the header.
type Format uint8

const (
	FormatTLV Format = iota
	FormatCBOR
)

func (f Format) String() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "tlv"
}

// ParseFormat accepts "tlv" and "cbor".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "tlv", "":
		return FormatTLV, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("wire: unknown format %q", s)
	}
}

var (
	// ErrLocalDelivery reports an attempt to serialize a same-process delivery.
	ErrLocalDelivery = errors.New("wire: local delivery cannot be serialized")
	// ErrUnexpectedMessage reports a frame of a type the reader did not expect.
	ErrUnexpectedMessage = errors.New("wire: unexpected message type")
)

// rejectReasonKey holds the reason string of a rejection bundle.
const rejectReasonKey bundle.Key = 0

type Options struct {
	Format Format
	// CompressAbove compresses payloads larger than this many bytes. Zero
	// disables compression.
	CompressAbove int
	Limits        frame.Limits
	// Auth rides in the frame's auth section of every frame written.
	Auth []byte
	// Verify checks the auth section of every frame read before its payload
	// is decompressed or decoded. Nil skips the check.
	Verify auth.Validator
}

func DefaultOptions() Options {
	return Options{
		Format:        FormatTLV,
		CompressAbove: 4 * 1024,
		Limits:        frame.DefaultLimits(),
	}
}

// Message is one decoded frame.
type Message struct {
	ID   uint64
	Type MessageType
	Auth []byte
	Body *bundle.Bundle
}

var encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
})

// WriteBundle frames b and writes it to w.
func WriteBundle(w io.Writer, id uint64, typ MessageType, b *bundle.Bundle, opts Options) error {
	var (
		payload []byte
		flags   uint32
		err     error
	)
	switch opts.Format {
	case FormatCBOR:
		if payload, err = bundle.MarshalCBOR(b); err != nil {
			return err
		}
		flags |= frame.FlagCBOR
	default:
		payload = bundle.MarshalTLV(b)
	}
	compressed := false
	if opts.CompressAbove > 0 && len(payload) > opts.CompressAbove {
		enc, err := encoder()
		if err != nil {
			return fmt.Errorf("wire: zstd encoder: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		flags |= frame.FlagZstd
		compressed = true
	}
	if typ != MsgConnectionRequest {
		flags |= frame.FlagIsResponse
	}
	if typ == MsgConnectionRejected {
		flags |= frame.FlagIsError
	}

	f := frame.Frame{
		Header:  frame.Header{MessageID: id, MessageType: uint32(typ), Flags: flags},
		Auth:    opts.Auth,
		Payload: payload,
	}
	if err := frame.WriteFrame(w, f, opts.Limits); err != nil {
		return err
	}
	observability.RecordFrame("out", typ.String(), opts.Format.String(), compressed, len(payload))
	log.Debug().
		Uint64("message_id", id).
		Stringer("type", typ).
		Stringer("format", opts.Format).
		Bool("zstd", compressed).
		Int("bytes", len(payload)).
		Msg("wire.WriteBundle")
	return nil
}

// ReadBundle reads one frame and decodes its payload. A decompressed payload
// is held to the same limit as a raw one. Once the frame header is read the
// returned message carries its ID and type even on error.
func ReadBundle(r io.Reader, opts Options) (Message, error) {
	f, err := frame.ReadFrame(r, opts.Limits)
	if err != nil {
		return Message{}, err
	}
	typ := MessageType(f.Header.MessageType)
	m := Message{ID: f.Header.MessageID, Type: typ}
	if len(f.Auth) > 0 {
		m.Auth = f.Auth
	}
	if opts.Verify != nil {
		if err := opts.Verify.Validate(f.Auth); err != nil {
			return m, err
		}
	}

	payload := f.Payload
	compressed := f.Header.Flags&frame.FlagZstd != 0
	if compressed {
		if payload, err = decompress(payload, opts.Limits.MaxPayloadBytes); err != nil {
			return m, err
		}
	}

	var (
		b      *bundle.Bundle
		format = FormatTLV
	)
	if f.Header.Flags&frame.FlagCBOR != 0 {
		format = FormatCBOR
		b, err = bundle.UnmarshalCBOR(payload)
	} else {
		b, err = bundle.UnmarshalTLV(payload)
	}
	if err != nil {
		return m, err
	}

	observability.RecordFrame("in", typ.String(), format.String(), compressed, len(f.Payload))
	m.Body = b
	return m, nil
}

func decompress(payload []byte, limit uint64) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(payload), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("wire: zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(io.LimitReader(dec, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("wire: zstd payload: %w", err)
	}
	if uint64(len(out)) > limit {
		return nil, frame.ErrPayloadTooLarge
	}
	return out, nil
}

// WriteDelivery writes the state carried by a remote delivery.
func WriteDelivery(w io.Writer, id uint64, d connstate.Delivery, opts Options) error {
	if d.Kind() == connstate.DeliveryLocal {
		return ErrLocalDelivery
	}
	return WriteBundle(w, id, MsgConnectionState, d.Bundle(), opts)
}

func WriteRequest(w io.Writer, id uint64, req connstate.ConnectionRequest, opts Options) error {
	return WriteBundle(w, id, MsgConnectionRequest, req.ToBundle(), opts)
}

// WriteRejected tells a controller its request was refused and why.
func WriteRejected(w io.Writer, id uint64, reason string, opts Options) error {
	b := bundle.New()
	b.PutString(rejectReasonKey, reason)
	return WriteBundle(w, id, MsgConnectionRejected, b, opts)
}

// RejectReason returns the reason carried by a rejection message.
func RejectReason(m Message) string {
	reason, _ := m.Body.Text(rejectReasonKey, "")
	return reason
}

// ReadRequest reads a frame that must hold a connection request. The message
// is returned even on error so callers can answer by ID.
func ReadRequest(r io.Reader, opts Options) (Message, connstate.ConnectionRequest, error) {
	m, err := ReadBundle(r, opts)
	if err != nil {
		return m, connstate.ConnectionRequest{}, err
	}
	if m.Type != MsgConnectionRequest {
		return m, connstate.ConnectionRequest{}, fmt.Errorf("%w: %s", ErrUnexpectedMessage, m.Type)
	}
	req, err := connstate.RequestFromBundle(m.Body)
	return m, req, err
}
