package httpclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cashukit/walletcore/cashu"
	"github.com/cashukit/walletcore/internal/mockmint"
	"github.com/cashukit/walletcore/wallet"
	"github.com/cashukit/walletcore/wallet/httpclient"
)

// TestWalletAgainstMockMint exercises httpclient.Client end to end
// against a real local HTTP listener, covering mint, send (with a
// split), and check-spent.
func TestWalletAgainstMockMint(t *testing.T) {
	mint := mockmint.New()
	defer mint.Close()

	client := httpclient.New(mint.URL(), nil)

	ctx := context.Background()
	keys, err := client.GetKeys(ctx)
	if err != nil {
		t.Fatalf("GetKeys: %v", err)
	}

	quote, err := client.RequestMint(ctx, 10)
	if err != nil {
		t.Fatalf("RequestMint: %v", err)
	}

	w := wallet.New(wallet.Config{MintURL: mint.URL(), Keys: keys}, client, nil, nil, nil)

	proofs, err := w.Mint(ctx, 10, quote.Hash)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if w.Balance(proofs) != 10 {
		t.Fatalf("expected balance 10, got %d", w.Balance(proofs))
	}

	send, change, err := w.Send(ctx, 6, proofs)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if send.Amount() != 6 {
		t.Fatalf("expected sent amount 6, got %d", send.Amount())
	}
	if send.Amount()+change.Amount() != 10 {
		t.Fatalf("expected send+change to conserve total value, got %d+%d", send.Amount(), change.Amount())
	}

	spent, err := w.CheckProofsSpent(ctx, change)
	if err != nil {
		t.Fatalf("CheckProofsSpent: %v", err)
	}
	if len(spent) != 0 {
		t.Fatalf("expected no unspent change to be reported spent, got %+v", spent)
	}
}

// TestGetKeysCancelledContextReturnsCancelled covers spec §5/§7: an
// RPC aborted by context cancellation must surface as
// cashu.ErrCancelled, not the generic network-error sentinel.
func TestGetKeysCancelledContextReturnsCancelled(t *testing.T) {
	mint := mockmint.New()
	defer mint.Close()

	client := httpclient.New(mint.URL(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetKeys(ctx)
	if !errors.Is(err, cashu.ErrCancelled) {
		t.Fatalf("expected cashu.ErrCancelled, got %v", err)
	}
}

// TestCheckFeesCancelledContextReturnsCancelled covers the same
// behavior on the POST path.
func TestCheckFeesCancelledContextReturnsCancelled(t *testing.T) {
	mint := mockmint.New()
	defer mint.Close()

	client := httpclient.New(mint.URL(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CheckFees(ctx, "lnbc...")
	if !errors.Is(err, cashu.ErrCancelled) {
		t.Fatalf("expected cashu.ErrCancelled, got %v", err)
	}
}
