// Package wallet implements the blind-signature wallet engine: it
// orchestrates the curve primitives and denomination algebra into
// request-tokens, send, receive, pay-invoice, and check-spent flows
// against a mint, reached only through the MintClient capability.
package wallet

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cashukit/walletcore/cashu"
	"github.com/cashukit/walletcore/crypto"
)

// rawSecretEncoding is the canonical wire encoding of a wallet secret:
// base64url without padding of the raw 32 random bytes (spec §4.3,
// §6, §9).
var rawSecretEncoding = base64.RawURLEncoding

// Config configures a Wallet at construction (spec §6): a mint URL and
// its keyset. No environment variables or persisted state are owned
// by the engine itself.
type Config struct {
	MintURL string
	Keys    *crypto.Keyset
}

// Wallet is scoped to a single mint at construction; additional
// keysets for other mints are fetched on demand when receiving
// cross-mint tokens (spec §4.6).
type Wallet struct {
	mintURL string
	keys    *crypto.Keyset

	client    MintClient
	clientFor func(mintURL string) MintClient

	recovery RecoveryLog
	rand     io.Reader
}

// New constructs a Wallet. recovery may be nil, in which case an
// in-memory log is used; rand may be nil, in which case
// crypto/rand.Reader is used. clientFor resolves a MintClient for a
// mint other than cfg.MintURL - required only if Receive is called on
// tokens spanning multiple mints; a nil clientFor means any such entry
// is reported in tokensWithErrors rather than causing a panic.
func New(cfg Config, client MintClient, recovery RecoveryLog, rand io.Reader, clientFor func(mintURL string) MintClient) *Wallet {
	if rand == nil {
		rand = cryptorand.Reader
	}
	if recovery == nil {
		recovery = NewMemoryRecoveryLog()
	}
	return &Wallet{
		mintURL:   cfg.MintURL,
		keys:      cfg.Keys,
		client:    client,
		clientFor: clientFor,
		recovery:  recovery,
		rand:      rand,
	}
}

// Balance sums the value of a set of proofs. Pure arithmetic, no mint
// round-trip.
func (w *Wallet) Balance(proofs cashu.Proofs) uint64 {
	return proofs.Amount()
}

// MintURL returns the mint this wallet instance is scoped to (spec
// §4.6: "one mint URL and its keyset").
func (w *Wallet) MintURL() string {
	return w.mintURL
}

// RequestMintInvoice asks the mint for a Lightning invoice to fund
// amount sats; the returned hash is what Mint later redeems (spec
// §4.5 requestMint).
func (w *Wallet) RequestMintInvoice(ctx context.Context, amount uint64) (RequestMintResponse, error) {
	return w.client.RequestMint(ctx, amount)
}

// PayResult is the outcome of PayLnInvoice.
type PayResult struct {
	Paid     bool
	Preimage string
	Change   cashu.Proofs
}

// newOperationID produces an opaque identifier for a pending
// mint/split/melt call, used to key the recovery log.
func (w *Wallet) newOperationID() (string, error) {
	raw := make([]byte, 16)
	if _, err := io.ReadFull(w.rand, raw); err != nil {
		return "", fmt.Errorf("%w: %v", cashu.ErrCryptoError, err)
	}
	return hex.EncodeToString(raw), nil
}

// createRandomBlindedMessages samples a fresh secret and blinding
// factor per amount and blinds them against the given keyset id
// (spec §4.3). An empty amounts slice returns empty, zero-length
// results - relied on for the "split with amount1=0" case (spec §9).
func createRandomBlindedMessages(rand io.Reader, amounts []uint64, keysetId string) (cashu.BlindedMessages, []*secp256k1.PrivateKey, []string, error) {
	outputs := make(cashu.BlindedMessages, 0, len(amounts))
	rs := make([]*secp256k1.PrivateKey, 0, len(amounts))
	secrets := make([]string, 0, len(amounts))

	for _, amount := range amounts {
		secret, err := randomSecret(rand)
		if err != nil {
			return nil, nil, nil, err
		}

		blindingFactor := make([]byte, 32)
		if _, err := io.ReadFull(rand, blindingFactor); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", cashu.ErrCryptoError, err)
		}

		B_, r := crypto.Blind([]byte(secret), blindingFactor)

		outputs = append(outputs, cashu.BlindedMessage{
			Amount: amount,
			B_:     hex.EncodeToString(B_.SerializeCompressed()),
			Id:     keysetId,
		})
		rs = append(rs, r)
		secrets = append(secrets, secret)
	}

	return outputs, rs, secrets, nil
}

// randomSecret samples 32 random bytes and encodes them as base64url
// without padding - the canonical wire form a mint hashes (spec §4.3,
// §6, §9).
func randomSecret(rand io.Reader) (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand, raw); err != nil {
		return "", fmt.Errorf("%w: %v", cashu.ErrCryptoError, err)
	}
	return rawSecretEncoding.EncodeToString(raw), nil
}

// constructProofs positionally zips promises, rs, and secrets into
// proofs, unblinding each signature with the keyset's public key for
// its denomination (spec §4.3).
func constructProofs(promises cashu.BlindedSignatures, rs []*secp256k1.PrivateKey, secrets []string, keys *crypto.Keyset) (cashu.Proofs, error) {
	if len(promises) != len(rs) || len(rs) != len(secrets) {
		return nil, fmt.Errorf("promises/rs/secrets length mismatch: %d/%d/%d", len(promises), len(rs), len(secrets))
	}

	proofs := make(cashu.Proofs, len(promises))
	for i, promise := range promises {
		K, ok := keys.Key(promise.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: amount %d", cashu.ErrInvalidKeyset, promise.Amount)
		}

		C_, err := parseCompressedPoint(promise.C_)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cashu.ErrCryptoError, err)
		}

		C := crypto.Unblind(C_, rs[i], K)
		proofs[i] = cashu.Proof{
			Amount: promise.Amount,
			Secret: secrets[i],
			C:      hex.EncodeToString(C.SerializeCompressed()),
			Id:     promise.Id,
		}
	}

	return proofs, nil
}

func parseCompressedPoint(hexStr string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, err
	}
	return secp256k1.ParsePubKey(raw)
}

// Mint requests signatures for the outputs that will represent amount
// once the invoice identified by hash has been paid (spec §4.6
// requestTokens).
func (w *Wallet) Mint(ctx context.Context, amount uint64, hash string) (cashu.Proofs, error) {
	amounts := cashu.SplitAmount(amount)
	outputs, rs, secrets, err := createRandomBlindedMessages(w.rand, amounts, w.keys.Id)
	if err != nil {
		return nil, err
	}

	opID, err := w.newOperationID()
	if err != nil {
		return nil, err
	}
	if err := w.recovery.Record(opID, outputs, rs, secrets); err != nil {
		return nil, fmt.Errorf("recording pending mint: %v", err)
	}

	promises, err := w.client.Mint(ctx, outputs, hash)
	if err != nil {
		return nil, err
	}

	proofs, err := constructProofs(promises, rs, secrets, w.keys)
	if err != nil {
		return nil, err
	}

	if err := w.recovery.Clear(opID); err != nil {
		return nil, fmt.Errorf("clearing pending mint: %v", err)
	}

	return proofs, nil
}

// Send selects proofs covering amount from the input order, splitting
// via the mint only when no exact-sum prefix exists (spec §4.6).
func (w *Wallet) Send(ctx context.Context, amount uint64, proofs cashu.Proofs) (send cashu.Proofs, returnChange cashu.Proofs, err error) {
	var proofsToSend cashu.Proofs
	var sum uint64

	i := 0
	for ; i < len(proofs); i++ {
		if sum >= amount {
			break
		}
		proofsToSend = append(proofsToSend, proofs[i])
		sum += proofs[i].Amount
	}
	change := append(cashu.Proofs{}, proofs[i:]...)

	if sum < amount {
		return nil, nil, cashu.ErrInsufficientFunds
	}

	if sum == amount {
		return proofsToSend, change, nil
	}

	amount1 := sum - amount
	amount2 := amount
	kept, sent, err := w.split(ctx, w.client, proofsToSend, amount1, amount2, w.keys)
	if err != nil {
		return nil, nil, err
	}

	returnChange = append(kept, change...)
	return sent, returnChange, nil
}

// split is the internal split sub-protocol (spec §4.6): proofsToSend
// is exchanged for two freshly blinded bundles, amount1 kept and
// amount2 sent. The outputs sent to the mint are ordered
// [amount1-outputs..., amount2-outputs...] - this ordering is load
// bearing, not cosmetic (spec §5, §8 invariant 6).
func (w *Wallet) split(ctx context.Context, client MintClient, proofsToSend cashu.Proofs, amount1, amount2 uint64, keys *crypto.Keyset) (kept cashu.Proofs, sent cashu.Proofs, err error) {
	amounts1 := cashu.SplitAmount(amount1)
	amounts2 := cashu.SplitAmount(amount2)

	outputs1, rs1, secrets1, err := createRandomBlindedMessages(w.rand, amounts1, keys.Id)
	if err != nil {
		return nil, nil, err
	}
	outputs2, rs2, secrets2, err := createRandomBlindedMessages(w.rand, amounts2, keys.Id)
	if err != nil {
		return nil, nil, err
	}

	outputs := make(cashu.BlindedMessages, 0, len(outputs1)+len(outputs2))
	outputs = append(outputs, outputs1...)
	outputs = append(outputs, outputs2...)

	rs := make([]*secp256k1.PrivateKey, 0, len(rs1)+len(rs2))
	rs = append(rs, rs1...)
	rs = append(rs, rs2...)

	secrets := make([]string, 0, len(secrets1)+len(secrets2))
	secrets = append(secrets, secrets1...)
	secrets = append(secrets, secrets2...)

	opID, err := w.newOperationID()
	if err != nil {
		return nil, nil, err
	}
	if err := w.recovery.Record(opID, outputs, rs, secrets); err != nil {
		return nil, nil, fmt.Errorf("recording pending split: %v", err)
	}

	resp, err := client.Split(ctx, SplitRequest{Proofs: proofsToSend, Amount: amount2, Outputs: outputs})
	if err != nil {
		return nil, nil, err
	}

	kept, err = constructProofs(resp.Fst, rs1, secrets1, keys)
	if err != nil {
		return nil, nil, err
	}
	sent, err = constructProofs(resp.Snd, rs2, secrets2, keys)
	if err != nil {
		return nil, nil, err
	}

	if err := w.recovery.Clear(opID); err != nil {
		return nil, nil, fmt.Errorf("clearing pending split: %v", err)
	}

	return kept, sent, nil
}

// Receive decodes and cleans an encoded token, then reissues each
// mint's entry under fresh blinding. Partial success is first-class:
// an entry whose mint errors, or that fails for any other reason,
// never aborts its siblings - it is returned verbatim as part of
// tokensWithErrors instead (spec §4.6, §7).
func (w *Wallet) Receive(ctx context.Context, encodedToken string) (received cashu.Proofs, tokensWithErrors *cashu.Token, err error) {
	token, err := cashu.Decode(encodedToken)
	if err != nil {
		return nil, nil, err
	}
	token = cashu.Clean(token)

	keysetCache := map[string]*crypto.Keyset{w.mintURL: w.keys}
	var errored []cashu.TokenEntry

	for _, entry := range token.Token {
		if len(entry.Proofs) == 0 {
			continue
		}

		keys, ok := keysetCache[entry.Mint]
		if !ok {
			keys, err = w.fetchMintKeys(ctx, entry.Mint)
			if err != nil {
				errored = append(errored, entry)
				continue
			}
			keysetCache[entry.Mint] = keys
		}

		proofs, err := w.receiveTokenEntry(ctx, entry, keys)
		if err != nil {
			errored = append(errored, entry)
			continue
		}
		received = append(received, proofs...)
	}

	if len(errored) > 0 {
		tokensWithErrors = &cashu.Token{Token: errored, Unit: token.Unit, Memo: token.Memo}
	}

	return received, tokensWithErrors, nil
}

// receiveTokenEntry performs a split with amount1=0, amount2=total,
// directing all value into the sent side - effectively reissuing the
// entry's proofs under fresh blinding (spec §4.6).
func (w *Wallet) receiveTokenEntry(ctx context.Context, entry cashu.TokenEntry, keys *crypto.Keyset) (cashu.Proofs, error) {
	client, err := w.mintClientFor(entry.Mint)
	if err != nil {
		return nil, err
	}

	total := entry.Proofs.Amount()
	_, sent, err := w.split(ctx, client, entry.Proofs, 0, total, keys)
	if err != nil {
		return nil, err
	}
	return sent, nil
}

func (w *Wallet) fetchMintKeys(ctx context.Context, mintURL string) (*crypto.Keyset, error) {
	client, err := w.mintClientFor(mintURL)
	if err != nil {
		return nil, err
	}
	return client.GetKeys(ctx)
}

func (w *Wallet) mintClientFor(mintURL string) (MintClient, error) {
	if mintURL == w.mintURL {
		return w.client, nil
	}
	if w.clientFor == nil {
		return nil, fmt.Errorf("no mint client configured for %s", mintURL)
	}
	return w.clientFor(mintURL), nil
}

// PayLnInvoice pays a Lightning invoice by melting proofsToSend. If
// feeReserve is nil, CheckFees is called first. Blank outputs carry
// possible change back from the mint (spec §4.6).
func (w *Wallet) PayLnInvoice(ctx context.Context, invoice string, proofsToSend cashu.Proofs, feeReserve *uint64) (PayResult, error) {
	var reserve uint64
	if feeReserve != nil {
		reserve = *feeReserve
	} else {
		fee, err := w.client.CheckFees(ctx, invoice)
		if err != nil {
			return PayResult{}, err
		}
		reserve = fee
	}

	blankAmounts := make([]uint64, cashu.BlankOutputCount(reserve))
	outputs, rs, secrets, err := createRandomBlindedMessages(w.rand, blankAmounts, w.keys.Id)
	if err != nil {
		return PayResult{}, err
	}

	opID, err := w.newOperationID()
	if err != nil {
		return PayResult{}, err
	}
	if err := w.recovery.Record(opID, outputs, rs, secrets); err != nil {
		return PayResult{}, fmt.Errorf("recording pending melt: %v", err)
	}

	resp, err := w.client.Melt(ctx, MeltRequest{Invoice: invoice, Proofs: proofsToSend, Outputs: outputs})
	if err != nil {
		return PayResult{}, err
	}

	// The mint may sign only some of the blank outputs; each change
	// signature pairs with the blank output at the same position.
	var change cashu.Proofs
	if len(resp.Change) > 0 {
		n := min(len(resp.Change), len(rs))
		change, err = constructProofs(resp.Change, rs[:n], secrets[:n], w.keys)
		if err != nil {
			return PayResult{}, err
		}
	}

	if err := w.recovery.Clear(opID); err != nil {
		return PayResult{}, fmt.Errorf("clearing pending melt: %v", err)
	}

	return PayResult{Paid: resp.Paid, Preimage: resp.Preimage, Change: change}, nil
}

// CheckProofsSpent reports which of the given proofs are already
// spent, sending the mint only their secrets (never C) and returning
// the subset for which spendable is false (spec §4.6, §8 invariant 7).
func (w *Wallet) CheckProofsSpent(ctx context.Context, proofs cashu.Proofs) (cashu.Proofs, error) {
	secrets := make([]string, len(proofs))
	for i, p := range proofs {
		secrets[i] = p.Secret
	}

	spendable, err := w.client.Check(ctx, secrets)
	if err != nil {
		return nil, err
	}
	if len(spendable) != len(proofs) {
		return nil, fmt.Errorf("check response length mismatch: got %d, want %d", len(spendable), len(proofs))
	}

	var spent cashu.Proofs
	for i, ok := range spendable {
		if !ok {
			spent = append(spent, proofs[i])
		}
	}
	return spent, nil
}
