// Command nutwallet is a minimal CLI demonstrating the wallet engine
// against a real mint over HTTP (spec §6). It owns the one piece of
// state the core deliberately leaves external (spec §1: "persistent
// storage of proofs"): a single flat JSON file of proofs under
// ~/.nutwallet, shared by whichever mint is configured, loaded before
// a command runs and rewritten after.
package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/cashukit/walletcore/cashu"
	"github.com/cashukit/walletcore/invoice"
	"github.com/cashukit/walletcore/wallet"
	"github.com/cashukit/walletcore/wallet/httpclient"
)

var nutw *wallet.Wallet
var store *proofStore

func main() {
	app := &cli.App{
		Name:  "nutwallet",
		Usage: "cashu cli wallet",
		Commands: []*cli.Command{
			balanceCmd,
			mintCmd,
			sendCmd,
			receiveCmd,
			payCmd,
			checkSpentCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// walletPath returns (and creates) the ~/.nutwallet data directory
// this CLI keeps its proof store, recovery log and optional .env
// under. The same directory is used whichever mint is configured.
func walletPath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(homedir, ".nutwallet")
	if err := os.MkdirAll(path, 0700); err != nil {
		log.Fatal(err)
	}
	return path
}

// mintURL resolves the configured mint, preferring a .env-loaded
// MINT_URL, then MINT_HOST/MINT_PORT, then a localhost default - the
// same precedence the teacher's CLI applies.
func mintURL(path string) string {
	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err == nil {
		_ = godotenv.Load(envPath)
	}

	if u := os.Getenv("MINT_URL"); u != "" {
		return u
	}

	host, port := os.Getenv("MINT_HOST"), os.Getenv("MINT_PORT")
	if host == "" || port == "" {
		return "http://127.0.0.1:3338"
	}
	return (&url.URL{Scheme: "http", Host: host + ":" + port}).String()
}

// setupWallet runs Before every command: it resolves the mint, fetches
// its current keyset, opens the recovery log, and loads this CLI's
// proof store. Keys aren't cached to disk - crypto.Keyset holds live
// secp256k1 points, not a serialization-friendly shape, and a fresh
// fetch is cheap and always authoritative (spec §3: keys must come
// from an authenticated keyset fetch).
func setupWallet(ctx *cli.Context) error {
	path := walletPath()
	mint := mintURL(path)
	client := httpclient.New(mint, nil)

	recovery, err := wallet.NewBoltRecoveryLog(filepath.Join(path, "recovery.db"))
	if err != nil {
		return fmt.Errorf("opening recovery log: %v", err)
	}

	keys, err := client.GetKeys(ctx.Context)
	if err != nil {
		return fmt.Errorf("fetching mint keys: %v", err)
	}

	nutw = wallet.New(wallet.Config{MintURL: mint, Keys: keys}, client, recovery, nil, nil)

	store, err = loadProofStore(filepath.Join(path, "proofs.json"))
	if err != nil {
		return fmt.Errorf("loading proof store: %v", err)
	}
	return nil
}

var balanceCmd = &cli.Command{
	Name:   "balance",
	Usage:  "show the wallet's current balance in sats",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		fmt.Printf("%d sats\n", nutw.Balance(store.proofs))
		return nil
	},
}

const invoiceFlag = "invoice"

var mintCmd = &cli.Command{
	Name:  "mint",
	Usage: "request an invoice to fund new tokens, or redeem one already paid",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: invoiceFlag, Usage: "hash of a previously requested, now-paid invoice to redeem"},
	},
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		if ctx.IsSet(invoiceFlag) {
			return redeemMint(ctx, ctx.String(invoiceFlag))
		}

		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("specify an amount to mint")
		}
		amount, err := strconv.ParseUint(args.First(), 10, 64)
		if err != nil {
			return errors.New("invalid amount")
		}

		resp, err := nutw.RequestMintInvoice(ctx.Context, amount)
		if err != nil {
			return err
		}
		store.pendingHashes[resp.Hash] = amount
		if err := store.save(); err != nil {
			return err
		}

		fmt.Printf("invoice: %s\n\n", resp.Invoice)
		fmt.Println("after paying it, redeem with: nutwallet mint --invoice " + resp.Hash)
		return nil
	},
}

func redeemMint(ctx *cli.Context, hash string) error {
	amount, ok := store.pendingHashes[hash]
	if !ok {
		return errors.New("no pending mint request for that hash")
	}

	proofs, err := nutw.Mint(ctx.Context, amount, hash)
	if err != nil {
		return err
	}

	store.add(proofs)
	delete(store.pendingHashes, hash)
	if err := store.save(); err != nil {
		return err
	}

	fmt.Printf("%d sats minted\n", proofs.Amount())
	return nil
}

var sendCmd = &cli.Command{
	Name:   "send",
	Usage:  "produce a token worth an amount, to hand to another party",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("specify an amount to send")
		}
		amount, err := strconv.ParseUint(args.First(), 10, 64)
		if err != nil {
			return errors.New("invalid amount")
		}

		send, change, err := nutw.Send(ctx.Context, amount, store.proofs)
		if err != nil {
			return err
		}

		store.proofs = change
		if err := store.save(); err != nil {
			return err
		}

		token := cashu.Token{Token: []cashu.TokenEntry{{Mint: nutw.MintURL(), Proofs: send}}}
		fmt.Println(cashu.Encode(token))
		return nil
	},
}

var receiveCmd = &cli.Command{
	Name:   "receive",
	Usage:  "redeem a token string received from another party",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("cashu token not provided")
		}

		received, errored, err := nutw.Receive(ctx.Context, args.First())
		if err != nil {
			return err
		}

		store.add(received)
		if err := store.save(); err != nil {
			return err
		}

		fmt.Printf("%d sats received\n", received.Amount())
		if errored != nil {
			fmt.Printf("%d sats could not be redeemed (mint unreachable or rejected)\n", errored.Amount())
		}
		return nil
	},
}

var payCmd = &cli.Command{
	Name:   "pay",
	Usage:  "pay a lightning invoice by melting proofs",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("specify a lightning invoice to pay")
		}
		bolt11 := args.First()

		amount, err := invoice.AmountSats(bolt11)
		if err != nil {
			return err
		}

		send, change, err := nutw.Send(ctx.Context, amount, store.proofs)
		if err != nil {
			return err
		}

		result, err := nutw.PayLnInvoice(ctx.Context, bolt11, send, nil)
		if err != nil {
			return err
		}

		store.proofs = append(change, result.Change...)
		if err := store.save(); err != nil {
			return err
		}

		fmt.Printf("invoice paid: %v\n", result.Paid)
		if result.Preimage != "" {
			fmt.Printf("preimage: %s\n", result.Preimage)
		}
		return nil
	},
}

var checkSpentCmd = &cli.Command{
	Name:   "check-spent",
	Usage:  "drop any proofs the mint reports already spent",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		spent, err := nutw.CheckProofsSpent(ctx.Context, store.proofs)
		if err != nil {
			return err
		}
		if len(spent) == 0 {
			fmt.Println("no spent proofs found")
			return nil
		}

		spentSecrets := make(map[string]bool, len(spent))
		for _, p := range spent {
			spentSecrets[p.Secret] = true
		}

		var kept cashu.Proofs
		for _, p := range store.proofs {
			if !spentSecrets[p.Secret] {
				kept = append(kept, p)
			}
		}
		store.proofs = kept
		if err := store.save(); err != nil {
			return err
		}

		fmt.Printf("dropped %d sats worth of already-spent proofs\n", spent.Amount())
		return nil
	},
}
