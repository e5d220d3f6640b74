// Package forwarding verifies player identity forwarded by a Velocity
// proxy in "modern" mode.
//
// The proxy answers a login plugin query on Channel with
// [32-byte HMAC-SHA256 signature][payload], where the payload is
// VarInt version, String address, UUID, String name and a property list.
package forwarding

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/limbomc/limbo/internal/player"
)

const (
	// Channel is the login plugin channel the query is sent on.
	Channel = "velocity:player_info"
	// Version is the only forwarding version understood.
	Version = 1

	signatureLength = sha256.Size
)

// QueryPayload is the body of the login plugin request: the highest
// forwarding version this server accepts.
var QueryPayload = []byte{Version}

// Kind classifies a verification failure.
type Kind int

const (
	KindSignatureTooShort Kind = iota + 1
	KindSignatureMismatch
	KindUnsupportedVersion
	KindMalformedAddress
	KindMalformedPayload
)

func (k Kind) String() string {
	switch k {
	case KindSignatureTooShort:
		return "signature too short"
	case KindSignatureMismatch:
		return "signature mismatch"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindMalformedAddress:
		return "malformed address"
	case KindMalformedPayload:
		return "malformed payload"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by Verify. Compare with errors.Is against the Err*
// sentinels, which match on Kind.
type Error struct {
	Kind    Kind
	Version int32
	Err     error
}

var (
	ErrSignatureTooShort  = &Error{Kind: KindSignatureTooShort}
	ErrSignatureMismatch  = &Error{Kind: KindSignatureMismatch}
	ErrUnsupportedVersion = &Error{Kind: KindUnsupportedVersion}
	ErrMalformedAddress   = &Error{Kind: KindMalformedAddress}
	ErrMalformedPayload   = &Error{Kind: KindMalformedPayload}
)

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUnsupportedVersion:
		return fmt.Sprintf("unsupported forwarding version %d, want %d", e.Version, Version)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Info is the identity carried by a verified forwarding payload.
type Info struct {
	Addr netip.AddrPort
	UUID uuid.UUID
	Name string
	Skin *player.Skin
}

// Verify checks the signature of data with secret and decodes the payload.
// The signature comparison is constant time. Fields are only decoded once
// the signature and version are accepted.
func Verify(data, secret []byte) (*Info, error) {
	if len(data) <= signatureLength {
		return nil, ErrSignatureTooShort
	}
	signature, payload := data[:signatureLength], data[signatureLength:]

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, ErrSignatureMismatch
	}

	r := packet.NewReader(payload)
	version := r.ReadVarInt()
	if err := r.Err(); err != nil {
		return nil, &Error{Kind: KindMalformedPayload, Err: err}
	}
	if version != Version {
		return nil, &Error{Kind: KindUnsupportedVersion, Version: version}
	}

	rawAddr := r.ReadString(0)
	id := r.ReadUUID()
	name := r.ReadString(player.MaxNameLength)
	count := r.ReadVarInt()
	if err := r.Err(); err != nil {
		return nil, &Error{Kind: KindMalformedPayload, Err: err}
	}
	if count < 0 {
		return nil, &Error{Kind: KindMalformedPayload, Err: fmt.Errorf("negative property count %d", count)}
	}

	var skin *player.Skin
	for i := int32(0); i < count; i++ {
		propName := r.ReadString(0)
		value := r.ReadString(0)
		var signature string
		if r.ReadBool() {
			signature = r.ReadString(0)
		}
		if err := r.Err(); err != nil {
			return nil, &Error{Kind: KindMalformedPayload, Err: fmt.Errorf("property %d: %w", i, err)}
		}
		if skin == nil && propName == player.TexturesProperty {
			skin = &player.Skin{Value: value, Signature: signature}
		}
	}

	addr, err := parseAddr(rawAddr)
	if err != nil {
		return nil, &Error{Kind: KindMalformedAddress, Err: err}
	}

	return &Info{Addr: addr, UUID: id, Name: name, Skin: skin}, nil
}

// parseAddr accepts "ip:port" or a bare IP, which gets port 0. Velocity
// sends the bare host string.
func parseAddr(s string) (netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap, nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return netip.AddrPortFrom(ip, 0), nil
}

// Sign prepends the HMAC-SHA256 signature of payload under secret. It
// produces what a proxy sends and is used by tests and tooling.
func Sign(payload, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return append(mac.Sum(nil), payload...)
}
