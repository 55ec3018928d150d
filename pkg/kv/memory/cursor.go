package memory

import (
	"bytes"
	"sort"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// cursor walks a snapshot of a Storage's sorted key slice between
// façade-resolved bounds. Grounded on sharksfin's memory::Iterator, which
// lazily advances via Storage::next/next_neighbor; here the façade has
// already resolved PREFIXED_* endpoints into plain inclusive/exclusive
// bounds (see pkg/kv/iterator.go), so the cursor only needs a binary range
// walk over the snapshot.
type cursor struct {
	st    *Storage
	keys  []string
	idx   int // next index to consider
	limit int
	count int
	reverse bool

	curKey   string
	curValue []byte
	opened   bool
}

func newCursor(st *Storage, beginKey []byte, beginKind kv.EndPointKind, endKey []byte, endKind kv.EndPointKind, limit int, reverse bool) *cursor {
	keys := st.snapshotKeys()

	lo := 0
	hi := len(keys)
	if beginKind != kv.EndPointUnbound {
		lo = sort.SearchStrings(keys, string(beginKey))
		if beginKind == kv.EndPointExclusive && lo < len(keys) && keys[lo] == string(beginKey) {
			lo++
		}
	}
	if endKind != kv.EndPointUnbound {
		hi = sort.SearchStrings(keys, string(endKey))
		if endKind == kv.EndPointInclusive && hi < len(keys) && keys[hi] == string(endKey) {
			hi++
		}
	}
	if lo > hi {
		lo = hi
	}
	window := append([]string(nil), keys[lo:hi]...)

	c := &cursor{st: st, keys: window, limit: limit, reverse: reverse}
	if reverse {
		c.idx = len(window) - 1
	}
	return c
}

func (c *cursor) Next() kv.StatusCode {
	if c.limit > 0 && c.count >= c.limit {
		return kv.StatusNotFound
	}
	for {
		var key string
		if c.reverse {
			if c.idx < 0 {
				return kv.StatusNotFound
			}
			key = c.keys[c.idx]
			c.idx--
		} else {
			if c.idx >= len(c.keys) {
				return kv.StatusNotFound
			}
			key = c.keys[c.idx]
			c.idx++
		}
		value, ok := c.st.get(key)
		if !ok {
			// concurrently removed since the snapshot was taken; skip it.
			continue
		}
		c.curKey = key
		c.curValue = value
		c.count++
		c.opened = true
		return kv.StatusOK
	}
}

func (c *cursor) Key() []byte {
	if !c.opened {
		return nil
	}
	return []byte(c.curKey)
}

func (c *cursor) Value() []byte {
	if !c.opened {
		return nil
	}
	return bytes.Clone(c.curValue)
}

func (c *cursor) Close() {}
