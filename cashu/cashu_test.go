package cashu

import (
	"reflect"
	"testing"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		amount   uint64
		expected []uint64
	}{
		{0, []uint64{}},
		{1, []uint64{1}},
		{13, []uint64{1, 4, 8}},
		{64, []uint64{64}},
		{255, []uint64{1, 2, 4, 8, 16, 32, 64, 128}},
	}

	for _, test := range tests {
		got := SplitAmount(test.amount)
		if !reflect.DeepEqual(got, test.expected) {
			t.Errorf("SplitAmount(%d) = %v, want %v", test.amount, got, test.expected)
		}
	}
}

func TestBlankOutputCount(t *testing.T) {
	tests := []struct {
		feeReserve uint64
		expected   int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{1000, 10},
	}

	for _, test := range tests {
		got := BlankOutputCount(test.feeReserve)
		if got != test.expected {
			t.Errorf("BlankOutputCount(%d) = %d, want %d", test.feeReserve, got, test.expected)
		}
	}
}

func TestCheckDuplicateProofs(t *testing.T) {
	unique := Proofs{
		{Amount: 1, Secret: "a", C: "c1", Id: "id"},
		{Amount: 2, Secret: "b", C: "c2", Id: "id"},
	}
	if CheckDuplicateProofs(unique) {
		t.Error("expected no duplicates")
	}

	withDupe := Proofs{
		{Amount: 1, Secret: "a", C: "c1", Id: "id"},
		{Amount: 1, Secret: "a", C: "c1", Id: "id"},
	}
	if !CheckDuplicateProofs(withDupe) {
		t.Error("expected duplicate to be detected")
	}
}

func TestProofsAmount(t *testing.T) {
	proofs := Proofs{
		{Amount: 1, Secret: "a", C: "c1", Id: "id"},
		{Amount: 4, Secret: "b", C: "c2", Id: "id"},
		{Amount: 8, Secret: "c", C: "c3", Id: "id"},
	}
	if got := proofs.Amount(); got != 13 {
		t.Errorf("expected amount 13, got %d", got)
	}
}

func TestMintErrorError(t *testing.T) {
	err := &MintError{Code: "INVOICE_NOT_PAID", Detail: "invoice has not been paid"}
	want := "INVOICE_NOT_PAID: invoice has not been paid"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	bare := &MintError{Detail: "something went wrong"}
	if bare.Error() != "something went wrong" {
		t.Errorf("got %q, want %q", bare.Error(), "something went wrong")
	}
}
