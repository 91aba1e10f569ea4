package wallet

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"go.etcd.io/bbolt"

	"github.com/cashukit/walletcore/cashu"
)

// RecoveryLog is the persistence hook spec §7 requires to exist for
// the hazardous window in mint/split/melt: if the mint commits
// server-side but the response is lost, (outputs, rs, secrets) must
// already be durable so a caller can replay the request and recover.
// This spec mandates the hook, not a specific backing store - hence
// two implementations below.
type RecoveryLog interface {
	// Record persists the inputs of an in-flight mint/split/melt call,
	// keyed by an opaque operation id, before the RPC is dispatched.
	Record(operationID string, outputs cashu.BlindedMessages, rs []*secp256k1.PrivateKey, secrets []string) error
	// Clear removes a previously recorded operation once its reply has
	// been consumed into proofs.
	Clear(operationID string) error
}

// pendingOperation is the durable record for one in-flight operation.
type pendingOperation struct {
	Outputs cashu.BlindedMessages `json:"outputs"`
	Rs      []string              `json:"rs"`
	Secrets []string              `json:"secrets"`
}

func encodePending(outputs cashu.BlindedMessages, rs []*secp256k1.PrivateKey, secrets []string) pendingOperation {
	rsHex := make([]string, len(rs))
	for i, r := range rs {
		rsHex[i] = fmt.Sprintf("%x", r.Serialize())
	}
	return pendingOperation{Outputs: outputs, Rs: rsHex, Secrets: secrets}
}

// pendingOperationsBucket is the single bbolt bucket this module uses,
// keyed by operation id - the teacher's storage splits keysets and
// proofs into their own buckets (wallet/storage/bolt.go); a recovery
// log has only the one concern, so it gets only the one bucket.
var pendingOperationsBucket = []byte("pendingoperations")

// BoltRecoveryLog persists pending operations to a bbolt file, the way
// the teacher persists keysets and proofs.
type BoltRecoveryLog struct {
	db *bbolt.DB
}

// NewBoltRecoveryLog opens (creating if necessary) a bbolt-backed
// recovery log at path.
func NewBoltRecoveryLog(path string) (*BoltRecoveryLog, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening recovery log: %v", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingOperationsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating recovery bucket: %v", err)
	}

	return &BoltRecoveryLog{db: db}, nil
}

func (b *BoltRecoveryLog) Record(operationID string, outputs cashu.BlindedMessages, rs []*secp256k1.PrivateKey, secrets []string) error {
	record := encodePending(outputs, rs, secrets)
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling pending operation: %v", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingOperationsBucket).Put([]byte(operationID), raw)
	})
}

func (b *BoltRecoveryLog) Clear(operationID string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingOperationsBucket).Delete([]byte(operationID))
	})
}

// Close releases the underlying bbolt file handle.
func (b *BoltRecoveryLog) Close() error {
	return b.db.Close()
}

// MemoryRecoveryLog is an in-process RecoveryLog backed by a map. It
// satisfies spec §7's requirement that the hook exist without
// committing a caller to durable storage across restarts - suitable
// for tests and for callers that accept losing recovery on crash.
type MemoryRecoveryLog struct {
	mu      sync.Mutex
	pending map[string]pendingOperation
}

// NewMemoryRecoveryLog returns an empty in-memory recovery log.
func NewMemoryRecoveryLog() *MemoryRecoveryLog {
	return &MemoryRecoveryLog{pending: make(map[string]pendingOperation)}
}

func (m *MemoryRecoveryLog) Record(operationID string, outputs cashu.BlindedMessages, rs []*secp256k1.PrivateKey, secrets []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[operationID] = encodePending(outputs, rs, secrets)
	return nil
}

func (m *MemoryRecoveryLog) Clear(operationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, operationID)
	return nil
}

// Pending reports how many operations are currently recorded, without
// exposing their contents - used by tests to check what Record and
// Clear leave behind.
func (m *MemoryRecoveryLog) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
