package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Entry is the only shape an audit event ever takes: a sanitized,
// structure-only payload plus the signature and chain-linking hashes that
// make the log tamper-evident. Ported from SPEC_FULL §3's AuditEntry; the
// teacher's own `computeAuditHash` only hashes a single entry's fields and
// never links to a previous entry, so PrevHash/ChainHash generalize it into
// a genuine chain.
type Entry struct {
	EntryID          string
	TraceID          string
	Seq              int64
	RecordedAtMS     int64
	SanitizedPayload map[string]interface{}
	Signature        string
	PrevHash         string
	ChainHash        string
}

// Chain is an append-only, in-memory audit log. Persistence is layered on
// top by the caller (e.g. writing each Entry to Postgres as it's appended);
// Chain itself only owns the linking and verification logic.
type Chain struct {
	entries []Entry
}

func NewChain() *Chain {
	return &Chain{}
}

// Append sanitizes payload, computes its signature, links it to the
// previous entry's chain hash, and appends it. Returns the finished entry.
func (c *Chain) Append(traceID string, seq int64, recordedAtMS int64, payload map[string]interface{}) Entry {
	sanitized := SanitizeRecord(payload)
	sig := Signature(sanitized)

	prevHash := genesisHash
	if len(c.entries) > 0 {
		prevHash = c.entries[len(c.entries)-1].ChainHash
	}

	entry := Entry{
		EntryID:          deterministicEntryID(traceID, seq),
		TraceID:          traceID,
		Seq:              seq,
		RecordedAtMS:     recordedAtMS,
		SanitizedPayload: sanitized,
		Signature:        sig,
		PrevHash:         prevHash,
		ChainHash:        computeChainHash(prevHash, sig),
	}
	c.entries = append(c.entries, entry)
	return entry
}

func (c *Chain) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// TailHash returns the chain_hash of the last appended entry, or the
// genesis hash if the chain is empty.
func (c *Chain) TailHash() string {
	if len(c.entries) == 0 {
		return genesisHash
	}
	return c.entries[len(c.entries)-1].ChainHash
}

// genesisHash is the fixed prev_hash for the first entry in any chain: 32
// zero bytes hex-encoded, the same width as a SHA-256 digest.
var genesisHash = strings.Repeat("0", 64)

func computeChainHash(prevHash, signature string) string {
	sum := sha256.Sum256([]byte(prevHash + "|" + signature))
	return hex.EncodeToString(sum[:])
}

func deterministicEntryID(traceID string, seq int64) string {
	material := traceID + "|" + itoa64Chain(seq)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(material)).String()
}

func itoa64Chain(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}

// VerifyChain recomputes every chain_hash from scratch and compares against
// the stored values; a mismatch anywhere means tampering occurred between
// that entry and the tail.
func VerifyChain(entries []Entry) bool {
	prevHash := genesisHash
	for _, e := range entries {
		if e.PrevHash != prevHash {
			return false
		}
		if computeChainHash(e.PrevHash, e.Signature) != e.ChainHash {
			return false
		}
		prevHash = e.ChainHash
	}
	return true
}
