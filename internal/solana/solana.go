// Package solana provides the small set of Solana-specific helpers the DLOB
// core needs: pubkey re-exports and Anchor account-discriminator checking.
// Everything else (RPC transport, program IDs, instruction building) lives
// outside the core per spec.md §1.
package solana

import (
	"bytes"

	solanago "github.com/gagliardetto/solana-go"
)

// PublicKey is the 32-byte Solana account address type used throughout the
// module, re-exported from github.com/gagliardetto/solana-go so callers
// never need to import that package directly just to hold an address.
type PublicKey = solanago.PublicKey

// DiscriminatorLen is the length of the 8-byte Anchor account discriminator
// prefix every account's data begins with.
const DiscriminatorLen = 8

// Discriminator errors are never panics: a failing check on one account
// update drops only that update (spec.md §4.8 invariants, §7 DeserializeError).
var ErrShortAccount = shortAccountError{}

type shortAccountError struct{}

func (shortAccountError) Error() string { return "account data shorter than discriminator" }

// HasDiscriminator reports whether data begins with the given 8-byte Anchor
// discriminator. Returns false (never panics) if data is too short.
func HasDiscriminator(data []byte, want [DiscriminatorLen]byte) bool {
	if len(data) < DiscriminatorLen {
		return false
	}
	return bytes.Equal(data[:DiscriminatorLen], want[:])
}
