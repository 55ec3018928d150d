package cc

import (
	"bytes"
	"sort"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// cursor walks a merged view of the FSM's committed entries for one storage
// and this session's own buffered-but-uncommitted writes, so a scan sees a
// transaction's own pending puts/deletes exactly like CheckExist/Get do.
// Grounded on the same lazily-advancing window-over-a-sorted-snapshot shape
// as pkg/kv/memory's cursor, since the FSM's storageState keeps the same
// sorted-key-slice-plus-map layout as the in-process backend's Storage.
type cursor struct {
	keys     []string
	values   map[string][]byte
	idx      int
	limit    int
	count    int
	reverse  bool
	curKey   string
	curValue []byte
	opened   bool
}

func newCursor(s *Session, storageName string, beginKey []byte, beginKind kv.EndPointKind, endKey []byte, endKind kv.EndPointKind, limit int, reverse bool) *cursor {
	f := s.db.fsm
	f.mu.RLock()
	var baseKeys []string
	values := map[string][]byte{}
	if st, ok := f.storages[storageName]; ok {
		baseKeys = append(baseKeys, st.keys...)
		for k, e := range st.entries {
			values[k] = e.value
		}
	}
	f.mu.RUnlock()

	s.mu.Lock()
	present := map[string]struct{}{}
	for _, k := range baseKeys {
		present[k] = struct{}{}
	}
	for _, wk := range s.writeKO {
		w := s.writes[wk]
		if w.storage != storageName {
			continue
		}
		key := string(w.key)
		if w.delete {
			delete(values, key)
			delete(present, key)
			continue
		}
		values[key] = w.value
		present[key] = struct{}{}
	}
	s.mu.Unlock()

	keys := make([]string, 0, len(present))
	for k := range present {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lo, hi := 0, len(keys)
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

	c := &cursor{keys: window, values: values, limit: limit, reverse: reverse}
	if reverse {
		c.idx = len(window) - 1
	}
	return c
}

func (c *cursor) Next() kv.StatusCode {
	if c.limit > 0 && c.count >= c.limit {
		return kv.StatusNotFound
	}
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
	c.curKey = key
	c.curValue = c.values[key]
	c.count++
	c.opened = true
	return kv.StatusOK
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
