package solana

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Base58 text longer than this cannot encode a key of the given size,
// so it is rejected before any decoding work is done.
const (
	maxAddressTextLen   = 44
	maxSignatureTextLen = 88
)

var (
	// ErrInvalidAddress is returned when text is not a base58 encoded 32-byte key.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidSignature is returned when text is not a base58 encoded 64-byte signature.
	ErrInvalidSignature = errors.New("invalid signature")
)

// DecodeAddress parses base58 text into a 32-byte account address.
func DecodeAddress(text string) (solana.PublicKey, error) {
	if text == "" || len(text) > maxAddressTextLen {
		return solana.PublicKey{}, fmt.Errorf("%w: %q has invalid length", ErrInvalidAddress, truncate(text))
	}
	raw, err := base58.Decode(text)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w: decoded to %d bytes, want %d", ErrInvalidAddress, len(raw), solana.PublicKeyLength)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// EncodeAddress renders an address as base58 text.
func EncodeAddress(key solana.PublicKey) string {
	return base58.Encode(key[:])
}

// DecodeSignature parses base58 text into a 64-byte transaction signature.
func DecodeSignature(text string) (solana.Signature, error) {
	var sig solana.Signature
	if text == "" || len(text) > maxSignatureTextLen {
		return sig, fmt.Errorf("%w: %q has invalid length", ErrInvalidSignature, truncate(text))
	}
	raw, err := base58.Decode(text)
	if err != nil {
		return sig, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != len(sig) {
		return sig, fmt.Errorf("%w: decoded to %d bytes, want %d", ErrInvalidSignature, len(raw), len(sig))
	}
	copy(sig[:], raw)
	return sig, nil
}

// EncodeSignature renders a signature as base58 text.
func EncodeSignature(sig solana.Signature) string {
	return base58.Encode(sig[:])
}

func truncate(s string) string {
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}
