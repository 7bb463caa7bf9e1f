// Package audit implements the hash-chained, HMAC-signed audit log. Each
// record hashes its own payload together with the previous record's hash,
// so any mutation of a stored record breaks every link after it.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenesisHash is the previous-hash value of the first record in a chain.
var GenesisHash = strings.Repeat("0", 64)

// Record is one signed entry in the audit chain. Data holds the entry
// payload as the exact JSON string that was hashed; re-encoding it would
// invalidate the signature.
type Record struct {
	ID        string `json:"id,omitempty"`
	Action    string `json:"action"`
	Data      string `json:"data"`
	Timestamp string `json:"timestamp"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	PrevHash  string `json:"prev_hash"`
}

func payload(action, data, timestamp, prevHash string) []byte {
	return []byte(action + data + timestamp + prevHash)
}

// HashEntry returns the SHA-256 chain hash for an entry.
func HashEntry(action, data, timestamp, prevHash string) string {
	sum := sha256.Sum256(payload(action, data, timestamp, prevHash))
	return hex.EncodeToString(sum[:])
}

// Sign returns the hex HMAC-SHA256 signature of an entry under secret.
func Sign(secret, action, data, timestamp, prevHash string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload(action, data, timestamp, prevHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewRecord builds a hashed, signed record linked to prevHash.
func NewRecord(secret, action, data, timestamp, prevHash string) Record {
	return Record{
		Action:    action,
		Data:      data,
		Timestamp: timestamp,
		Hash:      HashEntry(action, data, timestamp, prevHash),
		Signature: Sign(secret, action, data, timestamp, prevHash),
		PrevHash:  prevHash,
	}
}

// VerifyChain walks records in append order and checks, per record, the
// chain linkage, the stored hash, and the HMAC signature. It reports the
// first violation found.
func VerifyChain(secret string, records []Record) (bool, string) {
	if len(records) == 0 {
		return true, "No entries to verify"
	}
	for i, rec := range records {
		if i > 0 && rec.PrevHash != records[i-1].Hash {
			return false, fmt.Sprintf("Chain broken at entry %d", i)
		}
		if rec.Hash != HashEntry(rec.Action, rec.Data, rec.Timestamp, rec.PrevHash) {
			return false, fmt.Sprintf("Hash mismatch at entry %d", i)
		}
		want := Sign(secret, rec.Action, rec.Data, rec.Timestamp, rec.PrevHash)
		if !hmac.Equal([]byte(rec.Signature), []byte(want)) {
			return false, fmt.Sprintf("Invalid signature at entry %d", i)
		}
	}
	return true, fmt.Sprintf("All %d entries verified", len(records))
}
