package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLength is the size of a Solana account address in bytes.
const AddressLength = 32

// WSOL is the Wrapped SOL mint address.
const WSOL = "So11111111111111111111111111111111111111112"

// ErrInvalidAddress indicates a string that is not a base58-encoded
// 32-byte Solana address.
var ErrInvalidAddress = errors.New("invalid solana address")

// Address is a 32-byte Solana account address.
type Address [AddressLength]byte

// ParseAddress decodes a base58 string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %s", ErrInvalidAddress, s)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("%w: decoded to %d bytes", ErrInvalidAddress, len(raw))
	}

	copy(a[:], raw)
	return a, nil
}

// IsAddress reports whether s decodes to a 32-byte address.
func IsAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// String returns the base58 encoding of the address.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsOnCurve reports whether the address is a valid ed25519 curve
// point. Program-derived addresses are off curve; wallet and mint
// addresses are on curve.
func (a Address) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
