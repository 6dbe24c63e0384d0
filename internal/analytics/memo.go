package analytics

import (
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"
	"time"

	"kitchenledger/internal/cache"
	"kitchenledger/internal/core"
)

// Memo caches Aggregate results keyed by the content of the list, so an
// unchanged list is never aggregated twice.
type Memo struct {
	cache *cache.LRUCache[Report]
}

// NewMemo keeps up to size reports for ttl each; a zero ttl never expires.
func NewMemo(size int, ttl time.Duration) *Memo {
	return &Memo{cache: cache.NewLRUCache[Report](size, ttl)}
}

// Cache exposes the backing LRU so it can be registered with a cache.Manager.
func (m *Memo) Cache() *cache.LRUCache[Report] {
	return m.cache
}

func (m *Memo) Aggregate(txs []core.Transaction) Report {
	key := Fingerprint(txs)
	if rep, ok := m.cache.Get(key); ok {
		return rep
	}
	rep := Aggregate(txs)
	m.cache.Set(key, rep)
	return rep
}

// Fingerprint hashes the fields Aggregate reads, in order.
func Fingerprint(txs []core.Transaction) string {
	h := fnv.New64a()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(txs)))
	h.Write(n[:])
	for _, tx := range txs {
		for _, field := range []string{tx.ID, string(tx.Kind), tx.CategorySource, tx.Amount.String()} {
			h.Write([]byte(field))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
