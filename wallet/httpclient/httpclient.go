// Package httpclient implements wallet.MintClient as a thin RPC client
// over the mint's HTTP surface (spec §6): one method per endpoint,
// JSON request/response bodies, no retry or connection-pooling logic
// beyond what net/http already gives for free.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cashukit/walletcore/cashu"
	"github.com/cashukit/walletcore/crypto"
	"github.com/cashukit/walletcore/wallet"
)

// Client is a wallet.MintClient backed by plain net/http, scoped to a
// single mint URL.
type Client struct {
	mintURL    string
	httpClient *http.Client
}

// New returns a Client for mintURL. If httpClient is nil,
// http.DefaultClient is used.
func New(mintURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{mintURL: mintURL, httpClient: httpClient}
}

type keysWire struct {
	Id   string            `json:"id"`
	Unit string            `json:"unit"`
	Keys map[uint64]string `json:"keys"`
}

func (c *Client) GetKeys(ctx context.Context) (*crypto.Keyset, error) {
	resp, err := c.get(ctx, "/keys")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire keysWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("error reading response from mint: %v", err)
	}

	keys, err := crypto.MapPubKeys(wire.Keys)
	if err != nil {
		return nil, fmt.Errorf("error reading response from mint: %v", err)
	}

	return &crypto.Keyset{
		Id:      wire.Id,
		MintURL: c.mintURL,
		Unit:    wire.Unit,
		Active:  true,
		Keys:    keys,
	}, nil
}

type requestMintWire struct {
	Pr   string `json:"pr"`
	Hash string `json:"hash"`
}

func (c *Client) RequestMint(ctx context.Context, amount uint64) (wallet.RequestMintResponse, error) {
	resp, err := c.get(ctx, "/mint?amount="+strconv.FormatUint(amount, 10))
	if err != nil {
		return wallet.RequestMintResponse{}, err
	}
	defer resp.Body.Close()

	var wire requestMintWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return wallet.RequestMintResponse{}, fmt.Errorf("error reading response from mint: %v", err)
	}

	return wallet.RequestMintResponse{Invoice: wire.Pr, Hash: wire.Hash}, nil
}

type mintRequestWire struct {
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type mintResponseWire struct {
	Promises cashu.BlindedSignatures `json:"promises"`
}

func (c *Client) Mint(ctx context.Context, outputs cashu.BlindedMessages, hash string) (cashu.BlindedSignatures, error) {
	resp, err := c.post(ctx, "/mint?hash="+url.QueryEscape(hash), mintRequestWire{Outputs: outputs})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire mintResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("error reading response from mint: %v", err)
	}

	return wire.Promises, nil
}

type splitRequestWire struct {
	Proofs  cashu.Proofs          `json:"proofs"`
	Amount  uint64                `json:"amount"`
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type splitResponseWire struct {
	Fst cashu.BlindedSignatures `json:"fst"`
	Snd cashu.BlindedSignatures `json:"snd"`
}

func (c *Client) Split(ctx context.Context, req wallet.SplitRequest) (wallet.SplitResponse, error) {
	resp, err := c.post(ctx, "/split", splitRequestWire{Proofs: req.Proofs, Amount: req.Amount, Outputs: req.Outputs})
	if err != nil {
		return wallet.SplitResponse{}, err
	}
	defer resp.Body.Close()

	var wire splitResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return wallet.SplitResponse{}, fmt.Errorf("error reading response from mint: %v", err)
	}

	return wallet.SplitResponse{Fst: wire.Fst, Snd: wire.Snd}, nil
}

type meltRequestWire struct {
	Pr      string                `json:"pr"`
	Proofs  cashu.Proofs          `json:"proofs"`
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type meltResponseWire struct {
	Paid     bool                    `json:"paid"`
	Preimage string                  `json:"preimage"`
	Change   cashu.BlindedSignatures `json:"change"`
}

func (c *Client) Melt(ctx context.Context, req wallet.MeltRequest) (wallet.MeltResponse, error) {
	resp, err := c.post(ctx, "/melt", meltRequestWire{Pr: req.Invoice, Proofs: req.Proofs, Outputs: req.Outputs})
	if err != nil {
		return wallet.MeltResponse{}, err
	}
	defer resp.Body.Close()

	var wire meltResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return wallet.MeltResponse{}, fmt.Errorf("error reading response from mint: %v", err)
	}

	return wallet.MeltResponse{Paid: wire.Paid, Preimage: wire.Preimage, Change: wire.Change}, nil
}

type checkFeesRequestWire struct {
	Pr string `json:"pr"`
}

type checkFeesResponseWire struct {
	Fee uint64 `json:"fee"`
}

func (c *Client) CheckFees(ctx context.Context, invoice string) (uint64, error) {
	resp, err := c.post(ctx, "/checkfees", checkFeesRequestWire{Pr: invoice})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var wire checkFeesResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return 0, fmt.Errorf("error reading response from mint: %v", err)
	}

	return wire.Fee, nil
}

type checkSecret struct {
	Secret string `json:"secret"`
}

type checkRequestWire struct {
	Proofs []checkSecret `json:"proofs"`
}

type checkResponseWire struct {
	Spendable []bool `json:"spendable"`
}

func (c *Client) Check(ctx context.Context, secrets []string) ([]bool, error) {
	proofs := make([]checkSecret, len(secrets))
	for i, s := range secrets {
		proofs[i] = checkSecret{Secret: s}
	}

	resp, err := c.post(ctx, "/check", checkRequestWire{Proofs: proofs})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire checkResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("error reading response from mint: %v", err)
	}

	return wire.Spendable, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mintURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, requestErr(ctx, err)
	}
	return parse(resp)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mintURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, requestErr(ctx, err)
	}
	return parse(resp)
}

// requestErr classifies a failed RPC (spec §5, §7): cancellation or a
// deadline expiring aborts the outstanding request and must surface
// as cashu.ErrCancelled, not the generic network-error sentinel.
func requestErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", cashu.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %v", wallet.ErrNetworkError, err)
}

func parse(response *http.Response) (*http.Response, error) {
	if response.StatusCode == http.StatusBadRequest {
		var mintErr cashu.MintError
		if err := json.NewDecoder(response.Body).Decode(&mintErr); err != nil {
			return nil, fmt.Errorf("could not decode error response from mint: %v", err)
		}
		return nil, &mintErr
	}

	if response.StatusCode != http.StatusOK {
		body, err := io.ReadAll(response.Body)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", wallet.ErrNetworkError, body)
	}

	return response, nil
}
