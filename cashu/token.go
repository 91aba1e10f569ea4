package cashu

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// tokenPrefix marks the wire encoding of a Token (spec §4.4): the
// literal string "cashuA" followed by base64url(JSON), no padding.
const tokenPrefix = "cashuA"

// TokenEntry groups the proofs redeemable at a single mint. A Token
// can span more than one mint, one TokenEntry per mint (spec §4.4).
type TokenEntry struct {
	Mint   string `json:"mint"`
	Proofs Proofs `json:"proofs"`
}

// Token is the serialized form a wallet hands another party to pay
// them, or that a wallet receives to redeem (spec §4.4).
type Token struct {
	Token []TokenEntry `json:"token"`
	Unit  string       `json:"unit,omitempty"`
	Memo  string       `json:"memo,omitempty"`
}

// Amount returns the total value across every mint entry in the token.
func (t Token) Amount() uint64 {
	var total uint64
	for _, entry := range t.Token {
		total += entry.Proofs.Amount()
	}
	return total
}

// Encode serializes a Token to its wire form: "cashuA" followed by the
// unpadded base64url encoding of the token's JSON representation.
func Encode(token Token) string {
	raw, _ := json.Marshal(token)
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a wire-encoded token string back into a Token. It
// accepts both unpadded and padded base64url, since tokens are often
// copy-pasted through channels that don't preserve padding exactly.
func Decode(encoded string) (Token, error) {
	if !strings.HasPrefix(encoded, tokenPrefix) {
		return Token{}, fmt.Errorf("%w: missing cashuA prefix", ErrMalformedToken)
	}

	payload := strings.TrimPrefix(encoded, tokenPrefix)
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	var token Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(token.Token) == 0 {
		return Token{}, fmt.Errorf("%w: no token entries", ErrMalformedToken)
	}
	for _, entry := range token.Token {
		if entry.Mint == "" {
			return Token{}, fmt.Errorf("%w: token entry missing mint url", ErrMalformedToken)
		}
	}

	return token, nil
}

// Clean merges token entries that share a mint URL and, within each
// resulting entry, drops any proof whose secret and C match a proof
// already kept in that same entry - the
// way tokens accumulated from multiple sources need normalizing
// before use (spec §4.4). Dedup is scoped per entry, not across the
// whole token: the same (secret, C) tuple appearing under two
// different mints is kept in both.
func Clean(token Token) Token {
	type proofKey struct{ secret, c string }

	order := make([]string, 0, len(token.Token))
	byMint := make(map[string]*TokenEntry, len(token.Token))
	seenByMint := make(map[string]map[proofKey]bool, len(token.Token))

	for _, entry := range token.Token {
		existing, ok := byMint[entry.Mint]
		if !ok {
			existing = &TokenEntry{Mint: entry.Mint}
			byMint[entry.Mint] = existing
			seenByMint[entry.Mint] = make(map[proofKey]bool)
			order = append(order, entry.Mint)
		}
		seen := seenByMint[entry.Mint]
		for _, proof := range entry.Proofs {
			key := proofKey{secret: proof.Secret, c: proof.C}
			if seen[key] {
				continue
			}
			seen[key] = true
			existing.Proofs = append(existing.Proofs, proof)
		}
	}

	cleaned := Token{Unit: token.Unit, Memo: token.Memo}
	for _, mint := range order {
		entry := byMint[mint]
		if len(entry.Proofs) == 0 {
			continue
		}
		cleaned.Token = append(cleaned.Token, *entry)
	}
	return cleaned
}
