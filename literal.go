package groundeval

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IndexLit is the canonical form of a value usable as an exact array key.
// Only naturals and bit-vectors have one.
type IndexLit struct {
	kind  TypeKind
	width uint
	value *big.Int
}

func IndexLitOf(v Value) (IndexLit, bool) {
	switch v := v.(type) {
	case *NatValue:
		return IndexLit{kind: KIND_NAT, value: v.value}, true
	case *BVValue:
		return IndexLit{kind: KIND_BV, width: v.size, value: v.value}, true
	}
	return IndexLit{}, false
}

func (l IndexLit) Equal(o IndexLit) bool {
	return l.kind == o.kind && l.width == o.width && l.value.Cmp(o.value) == 0
}

func (l IndexLit) String() string {
	if l.kind == KIND_BV {
		return fmt.Sprintf("0x%x:%d", l.value, l.width)
	}
	return l.value.String()
}

type IndexKey []IndexLit

// IndexKeyOf fails when any component has no literal form.
func IndexKeyOf(vals []Value) (IndexKey, bool) {
	key := make(IndexKey, 0, len(vals))
	for _, v := range vals {
		l, ok := IndexLitOf(v)
		if !ok {
			return nil, false
		}
		key = append(key, l)
	}
	return key, true
}

func (k IndexKey) hash() uint64 {
	h := xxhash.New()
	raw := make([]byte, 8)
	for _, l := range k {
		h.Write([]byte{byte(l.kind)})
		binary.BigEndian.PutUint64(raw, uint64(l.width))
		h.Write(raw)
		b := l.value.Bytes()
		binary.BigEndian.PutUint64(raw, uint64(len(b)))
		h.Write(raw)
		h.Write(b)
	}
	return h.Sum64()
}

func (k IndexKey) Equal(o IndexKey) bool {
	if len(k) != len(o) {
		return false
	}
	for i := 0; i < len(k); i++ {
		if !k[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (k IndexKey) String() string {
	b := strings.Builder{}
	b.WriteString("[")
	for i, l := range k {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.String())
	}
	b.WriteString("]")
	return b.String()
}

type indexEntry[V any] struct {
	key IndexKey
	val V
}

// indexTable maps literal index tuples to values. Buckets are keyed by the
// xxhash of the canonical key; insertion order is preserved for iteration.
type indexTable[V any] struct {
	buckets map[uint64][]int
	entries []indexEntry[V]
}

func newIndexTable[V any]() *indexTable[V] {
	return &indexTable[V]{buckets: map[uint64][]int{}}
}

func (t *indexTable[V]) find(key IndexKey) (uint64, int) {
	h := key.hash()
	for _, i := range t.buckets[h] {
		if t.entries[i].key.Equal(key) {
			return h, i
		}
	}
	return h, -1
}

// insert overwrites any previous binding of key.
func (t *indexTable[V]) insert(key IndexKey, val V) {
	h, i := t.find(key)
	if i >= 0 {
		t.entries[i].val = val
		return
	}
	t.buckets[h] = append(t.buckets[h], len(t.entries))
	t.entries = append(t.entries, indexEntry[V]{key: key, val: val})
}

func (t *indexTable[V]) lookup(key IndexKey) (V, bool) {
	_, i := t.find(key)
	if i < 0 {
		var v V
		return v, false
	}
	return t.entries[i].val, true
}

func (t *indexTable[V]) len() int {
	return len(t.entries)
}
