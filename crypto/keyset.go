package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// maxOrder bounds the denominations a generated keyset covers:
// 2^0 .. 2^(maxOrder-1).
const maxOrder = 32

// Keyset is a mint's public keyset as the wallet sees it: the
// authenticated mapping from denomination to public key (spec §3
// MintKeySet) plus the identifiers the wallet tags proofs with.
type Keyset struct {
	Id      string
	MintURL string
	Unit    string
	Active  bool
	Keys    map[uint64]*secp256k1.PublicKey
}

// Key looks up the mint's public key for a denomination. A missing
// amount means the keyset can't back that denomination (spec §7
// ErrInvalidKeyset) - every amount a wallet uses must be a key in
// this mapping (spec §3).
func (ks Keyset) Key(amount uint64) (*secp256k1.PublicKey, bool) {
	k, ok := ks.Keys[amount]
	return k, ok
}

// MapPubKeys parses a wire keyset (amount -> compressed hex pubkey, as
// returned by the mint's keys endpoint) into a Keyset.Keys map.
func MapPubKeys(wire map[uint64]string) (map[uint64]*secp256k1.PublicKey, error) {
	keys := make(map[uint64]*secp256k1.PublicKey, len(wire))
	for amount, hexKey := range wire {
		raw, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey for amount %d: %v", amount, err)
		}
		pubkey, err := secp256k1.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey for amount %d: %v", amount, err)
		}
		keys[amount] = pubkey
	}
	return keys, nil
}

// DeriveKeysetId computes the short opaque keyset identifier from the
// set of public keys, sorted by amount: "00" followed by the first 14
// hex characters of sha256 over the concatenated compressed pubkeys.
func DeriveKeysetId(keys map[uint64]*secp256k1.PublicKey) string {
	amounts := make([]uint64, 0, len(keys))
	for amount := range keys {
		amounts = append(amounts, amount)
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })

	hash := sha256.New()
	for _, amount := range amounts {
		hash.Write(keys[amount].SerializeCompressed())
	}

	return "00" + hex.EncodeToString(hash.Sum(nil))[:14]
}

// MintKeyPair is one denomination's private/public key pair, held only
// by a mint (or, in this module, the test mint double).
type MintKeyPair struct {
	Amount     uint64
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
}

// MintKeyset is the mint-side counterpart to Keyset: it also knows the
// private keys needed to sign blinded messages. Nothing in the wallet
// engine ever holds one; it exists for internal/mockmint.
type MintKeyset struct {
	Id       string
	Unit     string
	KeyPairs []MintKeyPair
}

// GenerateMintKeyset deterministically derives a full keyset (one
// keypair per power-of-two denomination up to maxOrder) from a seed
// and derivation path, the way a mint provisions its signing keys.
func GenerateMintKeyset(seed, derivationPath string) *MintKeyset {
	pairs := make([]MintKeyPair, maxOrder)
	pubkeys := make(map[uint64]*secp256k1.PublicKey, maxOrder)

	for i := 0; i < maxOrder; i++ {
		amount := uint64(math.Pow(2, float64(i)))
		digest := sha256.Sum256([]byte(seed + derivationPath + strconv.FormatUint(amount, 10)))
		priv, pub := btcec.PrivKeyFromBytes(digest[:])
		pairs[i] = MintKeyPair{Amount: amount, PrivateKey: priv, PublicKey: pub}
		pubkeys[amount] = pub
	}

	return &MintKeyset{Id: DeriveKeysetId(pubkeys), Unit: "sat", KeyPairs: pairs}
}

// Key returns the private key for a denomination, used by the test
// mint double to sign a blinded message of that amount.
func (mk *MintKeyset) Key(amount uint64) (*secp256k1.PrivateKey, bool) {
	for _, pair := range mk.KeyPairs {
		if pair.Amount == amount {
			return pair.PrivateKey, true
		}
	}
	return nil, false
}

// PublicKeys returns the wire form (amount -> hex pubkey) a mint
// serves from its keys endpoint.
func (mk *MintKeyset) PublicKeys() map[uint64]string {
	wire := make(map[uint64]string, len(mk.KeyPairs))
	for _, pair := range mk.KeyPairs {
		wire[pair.Amount] = hex.EncodeToString(pair.PublicKey.SerializeCompressed())
	}
	return wire
}
