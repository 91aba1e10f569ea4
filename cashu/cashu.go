// Package cashu contains the wire types and pure functions that define
// the Cashu protocol's data model: blinded messages and signatures,
// proofs, the power-of-two denomination algebra, and the error
// taxonomy the wallet engine raises.
package cashu

import "errors"

// Unit is the currency denomination a keyset and its proofs are in.
// This module only ever deals in satoshis (spec §3 supplemental).
type Unit int

const Sat Unit = iota

func (u Unit) String() string {
	if u == Sat {
		return "sat"
	}
	return "unknown"
}

// Error taxonomy (spec §7). Sentinel values for conditions the engine
// itself detects; MintError below carries what the mint reports.
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidKeyset     = errors.New("amount has no key in the active keyset")
	ErrCryptoError       = errors.New("hash-to-curve exhausted retries")
	ErrCancelled         = errors.New("operation cancelled")
)

// MintError is an application-level error returned by the mint (spec
// §7), e.g. ProofsInvalid, InvoiceNotPaid, PaymentFailed.
type MintError struct {
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail"`
}

func (e *MintError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Detail
}

// BlindedMessage is what the wallet sends the mint to be signed: an
// amount and a blinded point B_ = Y + rG (spec §3). Amount 0 marks a
// blank output used to receive Lightning fee change (spec §4.2).
type BlindedMessage struct {
	Amount uint64 `json:"amount"`
	B_     string `json:"B_"`
	Id     string `json:"id"`
}

type BlindedMessages []BlindedMessage

// Amount returns the sum of all message amounts.
func (bm BlindedMessages) Amount() uint64 {
	var total uint64
	for _, m := range bm {
		total += m.Amount
	}
	return total
}

// BlindedSignature (a.k.a. Promise) is the mint's reply to a
// BlindedMessage, C_ = kB_, prior to unblinding (spec §3).
type BlindedSignature struct {
	Amount uint64 `json:"amount"`
	C_     string `json:"C_"`
	Id     string `json:"id"`
}

type BlindedSignatures []BlindedSignature

func (bs BlindedSignatures) Amount() uint64 {
	var total uint64
	for _, s := range bs {
		total += s.Amount
	}
	return total
}

// Proof is a bearer object: whoever holds it can spend it at the mint
// that issued it (spec §3). It is never mutated once constructed.
type Proof struct {
	Amount uint64 `json:"amount"`
	Secret string `json:"secret"`
	C      string `json:"C"`
	Id     string `json:"id"`
}

type Proofs []Proof

// Amount returns the total value of a set of proofs.
func (proofs Proofs) Amount() uint64 {
	var total uint64
	for _, p := range proofs {
		total += p.Amount
	}
	return total
}

// CheckDuplicateProofs reports whether any two proofs in the slice are
// identical, which would indicate a double-counted input.
func CheckDuplicateProofs(proofs Proofs) bool {
	seen := make(map[Proof]bool, len(proofs))
	for _, p := range proofs {
		if seen[p] {
			return true
		}
		seen[p] = true
	}
	return false
}

// SplitAmount decomposes a positive integer amount into its ascending
// binary representation, e.g. 13 -> [1, 4, 8] (spec §4.2). This fixes
// the output amounts for any issuance or split. SplitAmount(0) returns
// an empty slice - this is relied on by receive's one-sided split
// (spec §9 Open Question) and must not be special-cased.
func SplitAmount(amount uint64) []uint64 {
	amounts := make([]uint64, 0)
	for position := 0; amount > 0; position++ {
		if amount&1 == 1 {
			amounts = append(amounts, uint64(1)<<position)
		}
		amount >>= 1
	}
	return amounts
}

// BlankOutputCount returns the number of blank (amount=0) outputs a
// melt should carry to receive change, ceil(log2(feeReserve)) (spec
// §4.2). BlankOutputCount(0) is 0.
//
// BlankOutputCount(1) is also 0 (ceil(log2(1)) == 0): a 1-sat fee
// reserve gets no change outputs at all. Spec §9 asks this be mirrored
// exactly rather than "fixed," so it is - flagged here for protocol
// review, not patched.
func BlankOutputCount(feeReserve uint64) int {
	if feeReserve == 0 {
		return 0
	}
	count := 0
	for v := feeReserve - 1; v > 0; v >>= 1 {
		count++
	}
	return count
}
