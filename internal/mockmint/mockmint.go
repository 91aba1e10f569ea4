// Package mockmint is a test-only mint HTTP double: it implements the
// 7 endpoints spec §6 names, signing with a single generated keyset,
// so wallet/httpclient.Client has a real listener to round-trip
// against in integration tests. It owns none of a production mint's
// persistence, Lightning backend, or NUT surface beyond that.
package mockmint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gorilla/mux"

	"github.com/cashukit/walletcore/cashu"
	"github.com/cashukit/walletcore/crypto"
)

// Mint is an in-process mint double backed by one generated keyset.
type Mint struct {
	keyset *crypto.MintKeyset
	logger *slog.Logger

	mu     sync.Mutex
	spent  map[string]bool
	quotes map[string]uint64

	server *httptest.Server
}

// New generates a fresh keyset and starts an httptest.Server exposing
// the mint's HTTP contract.
func New() *Mint {
	m := &Mint{
		keyset: crypto.GenerateMintKeyset("mockmint-seed", "0/0/0"),
		logger: slog.Default(),
		spent:  make(map[string]bool),
		quotes: make(map[string]uint64),
	}

	router := mux.NewRouter()
	router.HandleFunc("/keys", m.handleKeys).Methods(http.MethodGet)
	router.HandleFunc("/mint", m.handleRequestMint).Methods(http.MethodGet)
	router.HandleFunc("/mint", m.handleMint).Methods(http.MethodPost)
	router.HandleFunc("/split", m.handleSplit).Methods(http.MethodPost)
	router.HandleFunc("/melt", m.handleMelt).Methods(http.MethodPost)
	router.HandleFunc("/checkfees", m.handleCheckFees).Methods(http.MethodPost)
	router.HandleFunc("/check", m.handleCheck).Methods(http.MethodPost)

	m.server = httptest.NewServer(router)
	return m
}

// URL returns the mint's base URL, suitable for httpclient.New.
func (m *Mint) URL() string {
	return m.server.URL
}

// Close shuts down the underlying test server.
func (m *Mint) Close() {
	m.server.Close()
}

func (m *Mint) sign(outputs cashu.BlindedMessages) (cashu.BlindedSignatures, error) {
	signed := make(cashu.BlindedSignatures, len(outputs))
	for i, out := range outputs {
		raw, err := hex.DecodeString(out.B_)
		if err != nil {
			return nil, fmt.Errorf("invalid B_: %v", err)
		}
		B_, err := secp256k1.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid B_: %v", err)
		}

		k, ok := m.keyset.Key(out.Amount)
		if !ok {
			return nil, fmt.Errorf("no key for amount %d", out.Amount)
		}

		C_ := crypto.SignBlindedMessage(B_, k)
		signed[i] = cashu.BlindedSignature{Amount: out.Amount, C_: hex.EncodeToString(C_.SerializeCompressed()), Id: m.keyset.Id}
	}
	return signed, nil
}

func (m *Mint) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Id   string            `json:"id"`
		Unit string            `json:"unit"`
		Keys map[uint64]string `json:"keys"`
	}{Id: m.keyset.Id, Unit: m.keyset.Unit, Keys: m.keyset.PublicKeys()})
}

func (m *Mint) handleRequestMint(w http.ResponseWriter, r *http.Request) {
	amountStr := r.URL.Query().Get("amount")
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		writeMintError(w, "invalid amount")
		return
	}

	hash := fmt.Sprintf("quote-%d-%d", amount, len(m.quotes))
	m.mu.Lock()
	m.quotes[hash] = amount
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Pr   string `json:"pr"`
		Hash string `json:"hash"`
	}{Pr: "lnbcmock" + hash, Hash: hash})
}

func (m *Mint) handleMint(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")

	var body struct {
		Outputs cashu.BlindedMessages `json:"outputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMintError(w, "malformed request body")
		return
	}

	m.mu.Lock()
	_, known := m.quotes[hash]
	m.mu.Unlock()
	if !known {
		writeMintError(w, "unknown mint quote")
		return
	}

	promises, err := m.sign(body.Outputs)
	if err != nil {
		writeMintError(w, err.Error())
		return
	}

	m.logger.Info("minted", "hash", hash, "amount", promises.Amount())
	writeJSON(w, http.StatusOK, struct {
		Promises cashu.BlindedSignatures `json:"promises"`
	}{Promises: promises})
}

func (m *Mint) handleSplit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Proofs  cashu.Proofs          `json:"proofs"`
		Amount  uint64                `json:"amount"`
		Outputs cashu.BlindedMessages `json:"outputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMintError(w, "malformed request body")
		return
	}

	if cashu.CheckDuplicateProofs(body.Proofs) {
		writeMintError(w, "duplicate proofs")
		return
	}

	m.mu.Lock()
	for _, p := range body.Proofs {
		if m.spent[p.Secret] {
			m.mu.Unlock()
			writeMintError(w, "proofs already spent")
			return
		}
	}
	for _, p := range body.Proofs {
		m.spent[p.Secret] = true
	}
	m.mu.Unlock()

	amount2Count := len(cashu.SplitAmount(body.Amount))
	boundary := len(body.Outputs) - amount2Count
	if boundary < 0 {
		writeMintError(w, "outputs shorter than amount2 decomposition")
		return
	}

	fst, err := m.sign(body.Outputs[:boundary])
	if err != nil {
		writeMintError(w, err.Error())
		return
	}
	snd, err := m.sign(body.Outputs[boundary:])
	if err != nil {
		writeMintError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Fst cashu.BlindedSignatures `json:"fst"`
		Snd cashu.BlindedSignatures `json:"snd"`
	}{Fst: fst, Snd: snd})
}

func (m *Mint) handleMelt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pr      string                `json:"pr"`
		Proofs  cashu.Proofs          `json:"proofs"`
		Outputs cashu.BlindedMessages `json:"outputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMintError(w, "malformed request body")
		return
	}

	m.mu.Lock()
	for _, p := range body.Proofs {
		m.spent[p.Secret] = true
	}
	m.mu.Unlock()

	var change cashu.BlindedSignatures
	if len(body.Outputs) > 0 {
		signed, err := m.sign(body.Outputs)
		if err != nil {
			writeMintError(w, err.Error())
			return
		}
		change = signed
	}

	m.logger.Info("melted", "invoice", body.Pr, "change", len(change))
	writeJSON(w, http.StatusOK, struct {
		Paid     bool                    `json:"paid"`
		Preimage string                  `json:"preimage"`
		Change   cashu.BlindedSignatures `json:"change"`
	}{Paid: true, Preimage: "0000000000000000", Change: change})
}

func (m *Mint) handleCheckFees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Fee uint64 `json:"fee"`
	}{Fee: 2})
}

func (m *Mint) handleCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Proofs []struct {
			Secret string `json:"secret"`
		} `json:"proofs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMintError(w, "malformed request body")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	spendable := make([]bool, len(body.Proofs))
	for i, p := range body.Proofs {
		spendable[i] = !m.spent[p.Secret]
	}

	writeJSON(w, http.StatusOK, struct {
		Spendable []bool `json:"spendable"`
	}{Spendable: spendable})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMintError(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(cashu.MintError{Detail: detail})
}
