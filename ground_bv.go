package groundeval

import (
	"math/big"
)

var bvBinaryOps = map[Op]func(*BVValue, *BVValue) (*BVValue, error){
	OP_BV_ADD:  (*BVValue).Add,
	OP_BV_SUB:  (*BVValue).Sub,
	OP_BV_MUL:  (*BVValue).Mul,
	OP_BV_UDIV: (*BVValue).UDiv,
	OP_BV_UREM: (*BVValue).URem,
	OP_BV_SDIV: (*BVValue).SDiv,
	OP_BV_SREM: (*BVValue).SRem,
	OP_BV_AND:  (*BVValue).And,
	OP_BV_OR:   (*BVValue).Or,
	OP_BV_XOR:  (*BVValue).Xor,
}

var bvCompareOps = map[Op]func(*BVValue, *BVValue) (BoolValue, error){
	OP_BV_ULT: (*BVValue).Ult,
	OP_BV_ULE: (*BVValue).Ule,
	OP_BV_SLT: (*BVValue).SLt,
	OP_BV_SLE: (*BVValue).SLe,
}

var bvUnaryOps = map[Op]func(*BVValue) *BVValue{
	OP_BV_NEG:      (*BVValue).Neg,
	OP_BV_NOT:      (*BVValue).Not,
	OP_BV_POPCOUNT: (*BVValue).PopCount,
	OP_BV_CLZ:      (*BVValue).CountLeadingZeros,
	OP_BV_CTZ:      (*BVValue).CountTrailingZeros,
}

var bvShiftOps = map[Op]func(*BVValue, uint) *BVValue{
	OP_BV_SHL:  (*BVValue).Shl,
	OP_BV_LSHR: (*BVValue).LShr,
	OP_BV_ASHR: (*BVValue).AShr,
	OP_BV_ROL:  (*BVValue).RotL,
	OP_BV_ROR:  (*BVValue).RotR,
}

// shiftAmount reads the amount as an unsigned integer. Shifts saturate at
// the width, rotations wrap around it.
func shiftAmount(op Op, x, amount *BVValue) uint {
	n := amount.Unsigned()
	w := new(big.Int).SetUint64(uint64(x.size))
	if op == OP_BV_ROL || op == OP_BV_ROR {
		n.Mod(n, w)
	} else if n.Cmp(w) > 0 {
		n = w
	}
	return uint(n.Uint64())
}

func groundBVApp(g Grounder, e *AppExpr) (Value, bool, error) {
	xs := make([]*BVValue, 0, len(e.args))
	for _, arg := range e.args {
		x, ok, err := bvOperand(g, arg)
		if !ok {
			return nil, false, err
		}
		xs = append(xs, x)
	}

	if fn, ok := bvBinaryOps[e.op]; ok {
		res := xs[0]
		for i := 1; i < len(xs); i++ {
			var err error
			res, err = fn(res, xs[i])
			if err != nil {
				return nil, false, hardFailure(e, ErrTypeMismatch, "%s", err)
			}
		}
		return res, true, nil
	}
	if fn, ok := bvCompareOps[e.op]; ok {
		res, err := fn(xs[0], xs[1])
		if err != nil {
			return nil, false, hardFailure(e, ErrTypeMismatch, "%s", err)
		}
		return res, true, nil
	}
	if fn, ok := bvUnaryOps[e.op]; ok {
		return fn(xs[0]), true, nil
	}
	if fn, ok := bvShiftOps[e.op]; ok {
		return fn(xs[0], shiftAmount(e.op, xs[0], xs[1])), true, nil
	}

	var res *BVValue
	var err error
	switch e.op {
	case OP_BV_TEST_BIT:
		i := e.params[0]
		if i >= xs[0].size {
			return nil, false, hardFailure(e, ErrBadWidth, "bit %d of a %d-bit value", i, xs[0].size)
		}
		return MakeBool(xs[0].Bit(i)), true, nil
	case OP_BV_CONCAT:
		res = xs[0]
		for i := 1; i < len(xs); i++ {
			res = res.Concat(xs[i])
		}
		return res, true, nil
	case OP_BV_SELECT:
		res, err = xs[0].Select(e.params[0], e.params[1])
	case OP_BV_ZEXT:
		res, err = xs[0].ZExt(e.params[0])
	case OP_BV_SEXT:
		if e.params[0] <= xs[0].size {
			return nil, false, hardFailure(e, ErrBadWidth, "sign extension from %d to %d bits", xs[0].size, e.params[0])
		}
		res, err = xs[0].SExt(e.params[0])
	case OP_BV_TRUNC:
		res, err = xs[0].Trunc(e.params[0])
	default:
		return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
	}
	if err != nil {
		return nil, false, hardFailure(e, ErrBadWidth, "%s", err)
	}
	return res, true, nil
}

// groundBVUnary hands the predicates of the unary encoding to its own
// evaluator.
func groundBVUnary(g Grounder, e *BVUnaryExpr) (Value, bool, error) {
	ground := func(p Expr) (bool, bool, error) {
		return boolOperand(g, p)
	}
	v, ok, err := e.u.Evaluate(ground)
	if !ok {
		return nil, false, err
	}
	return MakeBVFromBigint(v, e.u.Width()), true, nil
}
