package lsm

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// cursor adapts a bbolt *bolt.Cursor to the façade's Cursor contract. The
// façade has already resolved PREFIXED_* endpoints into plain
// inclusive/exclusive bounds (pkg/kv/iterator.go); this type only needs to
// walk bbolt's own ordered B+tree cursor between those bounds.
type cursor struct {
	c *bolt.Cursor

	hasHi bool
	hiKey []byte
	hiIncl bool

	reverse bool
	started bool
	limit   int
	count   int

	curKey, curValue []byte
	done             bool
}

func newCursor(b *bolt.Bucket, beginKey []byte, beginKind kv.EndPointKind, endKey []byte, endKind kv.EndPointKind, limit int, reverse bool) *cursor {
	c := &cursor{c: b.Cursor(), reverse: reverse, limit: limit}

	if !reverse {
		c.hasHi = endKind != kv.EndPointUnbound
		c.hiKey = endKey
		c.hiIncl = endKind == kv.EndPointInclusive
		c.seedForward(beginKey, beginKind)
	} else {
		c.hasHi = beginKind != kv.EndPointUnbound // lower bound becomes the reverse scan's stopping point
		c.hiKey = beginKey
		c.hiIncl = beginKind == kv.EndPointInclusive
		c.seedReverse(endKey, endKind)
	}
	return c
}

func (c *cursor) seedForward(beginKey []byte, beginKind kv.EndPointKind) {
	switch beginKind {
	case kv.EndPointUnbound:
		c.curKey, c.curValue = c.c.First()
	case kv.EndPointInclusive:
		c.curKey, c.curValue = c.c.Seek(beginKey)
	case kv.EndPointExclusive:
		c.curKey, c.curValue = c.c.Seek(beginKey)
		if c.curKey != nil && bytes.Equal(c.curKey, beginKey) {
			c.curKey, c.curValue = c.c.Next()
		}
	}
}

func (c *cursor) seedReverse(endKey []byte, endKind kv.EndPointKind) {
	switch endKind {
	case kv.EndPointUnbound:
		c.curKey, c.curValue = c.c.Last()
	case kv.EndPointInclusive, kv.EndPointExclusive:
		k, v := c.c.Seek(endKey)
		if k == nil {
			c.curKey, c.curValue = c.c.Last()
		} else if bytes.Equal(k, endKey) {
			if endKind == kv.EndPointExclusive {
				c.curKey, c.curValue = c.c.Prev()
			} else {
				c.curKey, c.curValue = k, v
			}
		} else {
			// Seek landed past endKey (no exact match); step back once.
			c.curKey, c.curValue = c.c.Prev()
		}
	}
}

func (c *cursor) inRange(key []byte) bool {
	if !c.hasHi {
		return true
	}
	cmp := bytes.Compare(key, c.hiKey)
	if c.reverse {
		if c.hiIncl {
			return cmp >= 0
		}
		return cmp > 0
	}
	if c.hiIncl {
		return cmp <= 0
	}
	return cmp < 0
}

func (c *cursor) Next() kv.StatusCode {
	if c.done {
		return kv.StatusNotFound
	}
	if c.limit > 0 && c.count >= c.limit {
		c.done = true
		return kv.StatusNotFound
	}

	if c.started {
		if c.reverse {
			c.curKey, c.curValue = c.c.Prev()
		} else {
			c.curKey, c.curValue = c.c.Next()
		}
	}
	c.started = true

	if c.curKey == nil || !c.inRange(c.curKey) {
		c.done = true
		c.curKey, c.curValue = nil, nil
		return kv.StatusNotFound
	}
	c.count++
	return kv.StatusOK
}

func (c *cursor) Key() []byte   { return append([]byte(nil), c.curKey...) }
func (c *cursor) Value() []byte { return append([]byte(nil), c.curValue...) }
func (c *cursor) Close()        {}
