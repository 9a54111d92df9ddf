package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/connstate/internal/protocol/tlv"
	"github.com/danmuck/connstate/internal/testutil/testlog"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	payload := tlv.EncodeFields([]tlv.Field{{ID: 1, Type: tlv.TypeString, Value: []byte("com.example.remote")}})
	in := Frame{
		Header:  Header{MessageID: 42, MessageType: 1, Flags: FlagCBOR | FlagZstd},
		Auth:    []byte("auth"),
		Payload: payload,
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Magic != Magic || out.Header.Version != Version {
		t.Fatalf("defaults not applied: %+v", out.Header)
	}
	if out.Header.MessageType != in.Header.MessageType || out.Header.MessageID != in.Header.MessageID {
		t.Fatalf("header mismatch: got=%+v want=%+v", out.Header, in.Header)
	}
	if out.Header.Flags&(FlagCBOR|FlagZstd) != FlagCBOR|FlagZstd || out.Header.Flags&FlagHasAuth == 0 {
		t.Fatalf("flags mismatch: %#x", out.Header.Flags)
	}
	if string(out.Auth) != "auth" {
		t.Fatalf("auth mismatch: %q", string(out.Auth))
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameRejectsForeignMagicAndVersion(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: 0xEDCE1001, Version: Version, HeaderLen: FixedHeaderLen}
	if _, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits()); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
	h = Header{Magic: Magic, Version: 9, HeaderLen: FixedHeaderLen}
	if _, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestReadFrameHeaderLenTooSmall(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: Magic, Version: Version, HeaderLen: 8, MessageID: 1, MessageType: 1, PayloadLen: 0}
	buf := EncodeHeader(h)
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenTooSmall) {
		t.Fatalf("expected ErrHeaderLenTooSmall, got %v", err)
	}
}

func TestReadFrameAuthFlagWithoutAuthBytes(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, MessageID: 1, MessageType: 1, Flags: FlagHasAuth, PayloadLen: 0}
	buf := EncodeHeader(h)
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenMismatch) {
		t.Fatalf("expected ErrHeaderLenMismatch, got %v", err)
	}
}

func TestPayloadLimitEnforcedBothWays(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxAuthBytes: 16, MaxPayloadBytes: 4}
	f := Frame{Header: Header{MessageType: 2}, Payload: []byte("too long")}
	if err := WriteFrame(&bytes.Buffer{}, f, limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, f, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if _, err := ReadFrame(&buf, limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on read, got %v", err)
	}
}

func TestAuthLongerThanHeaderLenCanHoldIsRejected(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxAuthBytes: 1 << 20, MaxPayloadBytes: 16}

	var buf bytes.Buffer
	fits := Frame{Header: Header{MessageType: 1}, Auth: bytes.Repeat([]byte{'a'}, int(MaxAuthLen))}
	if err := WriteFrame(&buf, fits, limits); err != nil {
		t.Fatalf("write frame at the header_len limit: %v", err)
	}
	got, err := ReadFrame(&buf, limits)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(got.Auth) != int(MaxAuthLen) || got.Header.HeaderLen != 0xFFFF {
		t.Fatalf("auth len=%d header_len=%d", len(got.Auth), got.Header.HeaderLen)
	}

	for _, n := range []int{int(MaxAuthLen) + 1, 64 * 1024} {
		f := Frame{Header: Header{MessageType: 1}, Auth: bytes.Repeat([]byte{'a'}, n)}
		if err := WriteFrame(&bytes.Buffer{}, f, limits); !errors.Is(err, ErrAuthTooLarge) {
			t.Fatalf("auth of %d bytes: expected ErrAuthTooLarge, got %v", n, err)
		}
	}
}
