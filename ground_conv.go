package groundeval

import (
	"math/big"
)

func floorRat(r *big.Rat) *big.Int {
	// the denominator is always positive, so Euclidean division floors
	q, m := new(big.Int), new(big.Int)
	q.DivMod(r.Num(), r.Denom(), m)
	return q
}

func ceilRat(r *big.Rat) *big.Int {
	q := floorRat(new(big.Rat).Neg(r))
	return q.Neg(q)
}

// roundRat rounds to the nearest integer, ties away from zero.
func roundRat(r *big.Rat) *big.Int {
	abs := new(big.Rat).Abs(r)
	abs.Add(abs, big.NewRat(1, 2))
	q := floorRat(abs)
	if r.Sign() < 0 {
		q.Neg(q)
	}
	return q
}

// roundEvenRat rounds to the nearest integer, ties to even.
func roundEvenRat(r *big.Rat) *big.Int {
	q := floorRat(r)
	frac := new(big.Rat).Sub(r, new(big.Rat).SetInt(q))
	switch frac.Cmp(big.NewRat(1, 2)) {
	case 1:
		q.Add(q, one)
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, one)
		}
	}
	return q
}

func clampInt(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}
	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}
	return new(big.Int).Set(v)
}

func groundConvApp(g Grounder, e *AppExpr) (Value, bool, error) {
	switch e.op {
	case OP_BV_TO_NAT, OP_BV_TO_INT, OP_SBV_TO_INT:
		x, ok, err := bvOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		switch e.op {
		case OP_BV_TO_NAT:
			return &NatValue{value: x.Unsigned()}, true, nil
		case OP_BV_TO_INT:
			return &IntValue{value: x.Unsigned()}, true, nil
		}
		return &IntValue{value: x.Signed()}, true, nil

	case OP_REAL_ROUND, OP_REAL_ROUND_EVEN, OP_REAL_FLOOR, OP_REAL_CEIL, OP_REAL_TO_INT:
		x, ok, err := realOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		switch e.op {
		case OP_REAL_ROUND:
			return &IntValue{value: roundRat(x)}, true, nil
		case OP_REAL_ROUND_EVEN:
			return &IntValue{value: roundEvenRat(x)}, true, nil
		case OP_REAL_CEIL:
			return &IntValue{value: ceilRat(x)}, true, nil
		}
		// floor, and the truncating conversion which floors as well
		return &IntValue{value: floorRat(x)}, true, nil
	}

	x, ok, err := intOperand(g, e.args[0])
	if !ok {
		return nil, false, err
	}
	switch e.op {
	case OP_NAT_TO_INT:
		return &IntValue{value: new(big.Int).Set(x)}, true, nil
	case OP_INT_TO_REAL:
		return &RealValue{value: new(big.Rat).SetInt(x)}, true, nil
	case OP_INT_TO_NAT:
		if x.Sign() < 0 {
			return MakeNat(0), true, nil
		}
		return &NatValue{value: new(big.Int).Set(x)}, true, nil
	case OP_INT_TO_SBV:
		w := e.typ.Width()
		hi := new(big.Int).Lsh(one, w-1)
		lo := new(big.Int).Neg(hi)
		hi.Sub(hi, one)
		return MakeBVFromBigint(clampInt(x, lo, hi), w), true, nil
	case OP_INT_TO_BV:
		w := e.typ.Width()
		return MakeBVFromBigint(clampInt(x, zero, makeMask(w)), w), true, nil
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}
