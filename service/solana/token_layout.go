package solana

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Serialized sizes of the classic SPL token program accounts.
const (
	TokenAccountSize = 165
	MintSize         = 82
)

// DecodeErrorKind classifies why an account payload could not be decoded.
type DecodeErrorKind string

const (
	DecodeWrongSize    DecodeErrorKind = "wrong_size"
	DecodeInvalidState DecodeErrorKind = "invalid_state"
)

var (
	ErrWrongSize    = errors.New("account data has wrong size")
	ErrInvalidState = errors.New("account data has invalid state")
)

// DecodeError describes a failed token layout decode.
type DecodeError struct {
	Kind   DecodeErrorKind
	Layout string // "token_account" or "mint"
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s: %s", e.Layout, e.Kind, e.Detail)
}

// Is lets callers match on ErrWrongSize and ErrInvalidState.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrWrongSize:
		return e.Kind == DecodeWrongSize
	case ErrInvalidState:
		return e.Kind == DecodeInvalidState
	}
	return false
}

// DecodeTokenAccount decodes a 165-byte SPL token account.
//
//	[0,32)    mint
//	[32,64)   owner
//	[64,72)   amount               u64 LE
//	[72,108)  delegate             COption<Pubkey>
//	[108]     state                0 uninitialized, 1 initialized, 2 frozen
//	[109,121) is_native            COption<u64>
//	[121,129) delegated_amount     u64 LE
//	[129,165) close_authority      COption<Pubkey>
func DecodeTokenAccount(data []byte) (*TokenAccountRecord, error) {
	const layout = "token_account"
	if len(data) != TokenAccountSize {
		return nil, &DecodeError{
			Kind:   DecodeWrongSize,
			Layout: layout,
			Detail: fmt.Sprintf("got %d bytes, want %d", len(data), TokenAccountSize),
		}
	}

	r := layoutReader{dec: bin.NewBinDecoder(data), layout: layout}
	rec := &TokenAccountRecord{}
	rec.Mint = r.pubkey("mint")
	rec.Owner = r.pubkey("owner")
	rec.Amount = r.u64("amount")
	rec.Delegate = r.optionalPubkey("delegate")

	state := r.u8("state")
	if r.err == nil && state > uint8(AccountStateFrozen) {
		r.invalid("state discriminant %d", state)
	}
	rec.State = AccountState(state)

	nativeSet := r.optionTag("is_native")
	native := r.u64("is_native")
	if nativeSet && r.err == nil {
		rec.IsNative = &native
	}
	rec.DelegatedAmount = r.u64("delegated_amount")
	rec.CloseAuthority = r.optionalPubkey("close_authority")

	if r.err != nil {
		return nil, r.err
	}
	return rec, nil
}

// DecodeMint decodes an 82-byte SPL mint.
//
//	[0,36)   mint_authority    COption<Pubkey>
//	[36,44)  supply            u64 LE
//	[44]     decimals
//	[45]     is_initialized    bool
//	[46,82)  freeze_authority  COption<Pubkey>
func DecodeMint(data []byte) (*MintRecord, error) {
	const layout = "mint"
	if len(data) != MintSize {
		return nil, &DecodeError{
			Kind:   DecodeWrongSize,
			Layout: layout,
			Detail: fmt.Sprintf("got %d bytes, want %d", len(data), MintSize),
		}
	}

	r := layoutReader{dec: bin.NewBinDecoder(data), layout: layout}
	rec := &MintRecord{}
	rec.MintAuthority = r.optionalPubkey("mint_authority")
	rec.Supply = r.u64("supply")
	rec.Decimals = r.u8("decimals")

	initialized := r.u8("is_initialized")
	if r.err == nil && initialized > 1 {
		r.invalid("is_initialized byte %d", initialized)
	}
	rec.IsInitialized = initialized == 1
	rec.FreezeAuthority = r.optionalPubkey("freeze_authority")

	if r.err != nil {
		return nil, r.err
	}
	return rec, nil
}

// layoutReader walks a fixed layout and keeps the first error, so field
// reads can be written as a straight sequence.
type layoutReader struct {
	dec    *bin.Decoder
	layout string
	err    error
}

func (r *layoutReader) fail(field string, err error) {
	if r.err == nil {
		r.err = &DecodeError{Kind: DecodeWrongSize, Layout: r.layout, Detail: fmt.Sprintf("%s: %v", field, err)}
	}
}

func (r *layoutReader) invalid(format string, args ...interface{}) {
	if r.err == nil {
		r.err = &DecodeError{Kind: DecodeInvalidState, Layout: r.layout, Detail: fmt.Sprintf(format, args...)}
	}
}

func (r *layoutReader) pubkey(field string) solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.fail(field, err)
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *layoutReader) u64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(bin.LE)
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *layoutReader) u8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

// optionTag reads a u32 COption tag. Any value other than 0 or 1 is invalid.
func (r *layoutReader) optionTag(field string) bool {
	if r.err != nil {
		return false
	}
	tag, err := r.dec.ReadUint32(bin.LE)
	if err != nil {
		r.fail(field, err)
		return false
	}
	switch tag {
	case 0:
		return false
	case 1:
		return true
	default:
		r.invalid("%s option tag %d", field, tag)
		return false
	}
}

// optionalPubkey reads a COption<Pubkey>. The key bytes are always present
// in the layout and are skipped when the tag is 0.
func (r *layoutReader) optionalPubkey(field string) *solana.PublicKey {
	present := r.optionTag(field)
	key := r.pubkey(field)
	if r.err != nil || !present {
		return nil
	}
	return &key
}
