package connstate

import "github.com/danmuck/connstate/internal/bundle"

// DeliveryKind tells the two ways a ConnectionState reaches a controller.
type DeliveryKind uint8

const (
	// DeliveryLocal carries the sender's instance to a controller in the same
	// process. It is never serialized.
	DeliveryLocal DeliveryKind = iota + 1
	// DeliveryRemote carries an encoded bundle.
	DeliveryRemote
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliveryLocal:
		return "local"
	case DeliveryRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Delivery is what a transport carries from session to controller: exactly
// one of a live state or an encoded bundle. The zero value is an empty remote
// delivery, which decodes to a missing session handle.
type Delivery struct {
	kind  DeliveryKind
	local *ConnectionState
	bndl  *bundle.Bundle
}

// WrapForLocalDelivery hands s to a same-process controller without encoding.
func WrapForLocalDelivery(s *ConnectionState) Delivery {
	return Delivery{kind: DeliveryLocal, local: s}
}

// RemoteDelivery wraps an encoded bundle, typically one read off the wire.
func RemoteDelivery(b *bundle.Bundle) Delivery {
	return Delivery{kind: DeliveryRemote, bndl: b}
}

func (d Delivery) Kind() DeliveryKind {
	if d.kind == 0 {
		return DeliveryRemote
	}
	return d.kind
}

// Unwrap returns the sender's instance for a local delivery.
func (d Delivery) Unwrap() (*ConnectionState, bool) {
	if d.kind != DeliveryLocal || d.local == nil {
		return nil, false
	}
	return d.local, true
}

// Bundle returns the encoded state of a remote delivery, or nil.
func (d Delivery) Bundle() *bundle.Bundle {
	if d.Kind() != DeliveryRemote {
		return nil
	}
	return d.bndl
}

// ForRecipient picks the delivery for one controller: the instance itself
// when it shares the session's process, otherwise s encoded for
// recipientInterfaceVersion.
func (s *ConnectionState) ForRecipient(recipientInterfaceVersion int, sameProcess bool) Delivery {
	if sameProcess {
		return WrapForLocalDelivery(s)
	}
	return RemoteDelivery(s.ToBundleForRemoteProcess(recipientInterfaceVersion))
}
