package connstate

import (
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// ConnectionRequest is what a controller sends to ask for a connection.
// ControllerInterfaceVersion selects the layout of the state it receives.
type ConnectionRequest struct {
	LibraryVersion             int
	ControllerInterfaceVersion int
	PackageName                string
	PID                        int
	ConnectionHints            *bundle.Bundle
	MaxCommandsForMediaItems   int
}

func (r ConnectionRequest) ToBundle() *bundle.Bundle {
	b := bundle.New()
	b.PutInt(schema.FieldRequestLibraryVersion, r.LibraryVersion)
	b.PutString(schema.FieldRequestPackageName, r.PackageName)
	b.PutInt(schema.FieldRequestPID, r.PID)
	b.PutBundle(schema.FieldRequestConnectionHints, r.ConnectionHints)
	b.PutInt(schema.FieldRequestControllerInterfaceVersion, r.ControllerInterfaceVersion)
	b.PutInt(schema.FieldRequestMaxCommandsForMediaItems, r.MaxCommandsForMediaItems)
	return b
}

// RequestFromBundle decodes a connection request. Controllers that predate
// the interface version field decode as version 0.
func RequestFromBundle(b *bundle.Bundle) (ConnectionRequest, error) {
	reg := schema.ConnectionRequest
	if err := reg.Validate(b); err != nil {
		return ConnectionRequest{}, err
	}
	var r ConnectionRequest
	r.LibraryVersion, _ = b.Int(schema.FieldRequestLibraryVersion, 0)
	r.PackageName, _ = b.Text(schema.FieldRequestPackageName, "")
	if r.PackageName == "" {
		return ConnectionRequest{}, reg.Missing(schema.FieldRequestPackageName)
	}
	r.PID, _ = b.Int(schema.FieldRequestPID, 0)
	r.ControllerInterfaceVersion, _ = b.Int(schema.FieldRequestControllerInterfaceVersion, 0)
	r.MaxCommandsForMediaItems, _ = b.Int(schema.FieldRequestMaxCommandsForMediaItems, 0)
	r.ConnectionHints = bundle.New()
	if hints, ok, _ := b.Nested(schema.FieldRequestConnectionHints); ok {
		r.ConnectionHints = hints
	}
	return r, nil
}
