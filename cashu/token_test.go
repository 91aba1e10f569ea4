package cashu

import (
	"strings"
	"testing"
)

func sampleToken() Token {
	return Token{
		Token: []TokenEntry{
			{
				Mint: "https://mint.example.com",
				Proofs: Proofs{
					{Amount: 1, Secret: "secret1", C: "c1", Id: "00ad268c4d1f5826"},
					{Amount: 4, Secret: "secret2", C: "c2", Id: "00ad268c4d1f5826"},
				},
			},
		},
		Unit: "sat",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token := sampleToken()
	encoded := Encode(token)

	if !strings.HasPrefix(encoded, tokenPrefix) {
		t.Fatalf("encoded token missing prefix: %v", encoded)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Amount() != token.Amount() {
		t.Errorf("amount mismatch: got %d, want %d", decoded.Amount(), token.Amount())
	}
	if len(decoded.Token) != 1 || decoded.Token[0].Mint != token.Token[0].Mint {
		t.Errorf("token entry mismatch: got %+v", decoded.Token)
	}
}

func TestDecodeRejectsMissingPrefix(t *testing.T) {
	_, err := Decode("eyJ0b2tlbiI6W119")
	if err == nil {
		t.Fatal("expected error for missing cashuA prefix")
	}
}

func TestDecodeRejectsEmptyEntries(t *testing.T) {
	encoded := Encode(Token{Token: []TokenEntry{}})
	_, err := Decode(encoded)
	if err == nil {
		t.Fatal("expected error for token with no entries")
	}
}

func TestDecodeRejectsMissingMint(t *testing.T) {
	token := Token{Token: []TokenEntry{{Proofs: Proofs{{Amount: 1, Secret: "s", C: "c", Id: "id"}}}}}
	encoded := Encode(token)
	_, err := Decode(encoded)
	if err == nil {
		t.Fatal("expected error for token entry missing mint")
	}
}

func TestCleanMergesSameMintEntries(t *testing.T) {
	token := Token{
		Token: []TokenEntry{
			{Mint: "https://mint.a", Proofs: Proofs{{Amount: 1, Secret: "s1", C: "c1", Id: "id"}}},
			{Mint: "https://mint.a", Proofs: Proofs{{Amount: 2, Secret: "s2", C: "c2", Id: "id"}}},
			{Mint: "https://mint.b", Proofs: Proofs{{Amount: 4, Secret: "s3", C: "c3", Id: "id"}}},
		},
	}

	cleaned := Clean(token)
	if len(cleaned.Token) != 2 {
		t.Fatalf("expected 2 merged entries, got %d", len(cleaned.Token))
	}
	if cleaned.Token[0].Mint != "https://mint.a" || len(cleaned.Token[0].Proofs) != 2 {
		t.Errorf("expected mint.a entry to merge 2 proofs, got %+v", cleaned.Token[0])
	}
	if cleaned.Token[1].Mint != "https://mint.b" || len(cleaned.Token[1].Proofs) != 1 {
		t.Errorf("expected mint.b entry untouched, got %+v", cleaned.Token[1])
	}
}

func TestCleanDropsDuplicateProofs(t *testing.T) {
	dupe := Proof{Amount: 1, Secret: "s1", C: "c1", Id: "id"}
	token := Token{
		Token: []TokenEntry{
			{Mint: "https://mint.a", Proofs: Proofs{dupe}},
			{Mint: "https://mint.a", Proofs: Proofs{dupe, {Amount: 2, Secret: "s2", C: "c2", Id: "id"}}},
		},
	}

	cleaned := Clean(token)
	if len(cleaned.Token) != 1 {
		t.Fatalf("expected 1 merged entry, got %d", len(cleaned.Token))
	}
	if len(cleaned.Token[0].Proofs) != 2 {
		t.Errorf("expected duplicate proof dropped, got %d proofs", len(cleaned.Token[0].Proofs))
	}
}

func TestCleanDedupIsPerMintNotGlobal(t *testing.T) {
	shared := Proof{Amount: 1, Secret: "s1", C: "c1", Id: "id"}
	token := Token{
		Token: []TokenEntry{
			{Mint: "https://mint.a", Proofs: Proofs{shared}},
			{Mint: "https://mint.b", Proofs: Proofs{shared}},
		},
	}

	cleaned := Clean(token)
	if len(cleaned.Token) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cleaned.Token))
	}
	if len(cleaned.Token[0].Proofs) != 1 || cleaned.Token[0].Proofs[0] != shared {
		t.Errorf("expected mint.a to keep its copy of the shared proof, got %+v", cleaned.Token[0])
	}
	if len(cleaned.Token[1].Proofs) != 1 || cleaned.Token[1].Proofs[0] != shared {
		t.Errorf("expected mint.b to keep its own copy of the same proof, got %+v", cleaned.Token[1])
	}
}
