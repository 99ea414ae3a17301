package groundeval

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// UnaryBV is a bit-vector kept in unary form. Grounding it is delegated to
// the implementation, which receives a grounder for its boolean predicates.
type UnaryBV interface {
	Width() uint
	Predicates() []Expr
	Evaluate(ground func(Expr) (bool, bool, error)) (*big.Int, bool, error)
	String() string
}

// UnaryRange encodes a value x through thresholds: x <= bounds[i] holds
// exactly when preds[i] holds. Bounds are strictly increasing.
type UnaryRange struct {
	width  uint
	bounds []*big.Int
	preds  []Expr
}

func NewUnaryRange(width uint, bounds []*big.Int, preds []Expr) (*UnaryRange, error) {
	if width == 0 {
		return nil, fmt.Errorf("NewUnaryRange(): invalid width")
	}
	if len(bounds) == 0 || len(bounds) != len(preds) {
		return nil, fmt.Errorf("NewUnaryRange(): %d bounds for %d predicates", len(bounds), len(preds))
	}
	if !sort.SliceIsSorted(bounds, func(i, j int) bool { return bounds[i].Cmp(bounds[j]) < 0 }) {
		return nil, fmt.Errorf("NewUnaryRange(): bounds are not sorted")
	}
	for _, p := range preds {
		if p.Type().Kind() != KIND_BOOL {
			return nil, fmt.Errorf("NewUnaryRange(): predicate %s is not boolean", p)
		}
	}
	bs := make([]*big.Int, len(bounds))
	for i := range bounds {
		bs[i] = new(big.Int).Set(bounds[i])
	}
	ps := make([]Expr, len(preds))
	copy(ps, preds)
	return &UnaryRange{width: width, bounds: bs, preds: ps}, nil
}

func (u *UnaryRange) Width() uint {
	return u.width
}

func (u *UnaryRange) Predicates() []Expr {
	return u.preds
}

// Evaluate returns the first bound whose predicate holds. When none holds
// the largest bound is returned.
func (u *UnaryRange) Evaluate(ground func(Expr) (bool, bool, error)) (*big.Int, bool, error) {
	for i, p := range u.preds {
		holds, ok, err := ground(p)
		if !ok {
			return nil, false, err
		}
		if holds {
			return new(big.Int).Set(u.bounds[i]), true, nil
		}
	}
	return new(big.Int).Set(u.bounds[len(u.bounds)-1]), true, nil
}

func (u *UnaryRange) String() string {
	b := strings.Builder{}
	for i := range u.bounds {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s -> %s", u.bounds[i], u.preds[i]))
	}
	return b.String()
}
