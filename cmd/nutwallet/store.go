package main

import (
	"encoding/json"
	"os"

	"github.com/cashukit/walletcore/cashu"
)

// proofStore is this CLI's flat-file stand-in for the persistent
// proof storage spec §1 treats as an external collaborator: a single
// JSON document holding unspent proofs and any mint requests still
// awaiting payment.
type proofStore struct {
	path          string
	proofs        cashu.Proofs
	pendingHashes map[string]uint64
}

type proofStoreWire struct {
	Proofs        cashu.Proofs      `json:"proofs"`
	PendingHashes map[string]uint64 `json:"pending_hashes"`
}

func loadProofStore(path string) (*proofStore, error) {
	store := &proofStore{path: path, pendingHashes: make(map[string]uint64)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}

	var wire proofStoreWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	store.proofs = wire.Proofs
	if wire.PendingHashes != nil {
		store.pendingHashes = wire.PendingHashes
	}
	return store, nil
}

func (s *proofStore) add(proofs cashu.Proofs) {
	s.proofs = append(s.proofs, proofs...)
}

func (s *proofStore) save() error {
	raw, err := json.MarshalIndent(proofStoreWire{Proofs: s.proofs, PendingHashes: s.pendingHashes}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0600)
}
