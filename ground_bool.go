package groundeval

import (
	"math"
	"math/big"
)

func groundBoolApp(g Grounder, e *AppExpr) (Value, bool, error) {
	switch e.op {
	case OP_NOT:
		b, ok, err := boolOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		return MakeBool(!b), true, nil
	case OP_AND:
		for _, arg := range e.args {
			b, ok, err := boolOperand(g, arg)
			if !ok {
				return nil, false, err
			}
			if !b {
				return BoolFalse(), true, nil
			}
		}
		return BoolTrue(), true, nil
	case OP_OR:
		for _, arg := range e.args {
			b, ok, err := boolOperand(g, arg)
			if !ok {
				return nil, false, err
			}
			if b {
				return BoolTrue(), true, nil
			}
		}
		return BoolFalse(), true, nil
	case OP_XOR:
		res := BoolFalse()
		for _, arg := range e.args {
			b, ok, err := boolOperand(g, arg)
			if !ok {
				return nil, false, err
			}
			res = res.Xor(MakeBool(b))
		}
		return res, true, nil
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}

// mkInteger builds a value of the integer-like type typ.
func mkInteger(e Expr, typ *Type, v *big.Int) (Value, bool, error) {
	if typ.Kind() == KIND_NAT {
		n, err := MakeNatFromBigint(v)
		if err != nil {
			return nil, false, hardFailure(e, ErrTypeMismatch, "negative natural %s", v)
		}
		return n, true, nil
	}
	return &IntValue{value: v}, true, nil
}

func groundIntApp(g Grounder, e *AppExpr) (Value, bool, error) {
	if e.op == OP_INT_DIVISIBLE {
		x, ok, err := intOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		k := new(big.Int).SetUint64(uint64(e.params[0]))
		if k.Sign() == 0 {
			return MakeBool(x.Sign() == 0), true, nil
		}
		return MakeBool(new(big.Int).Mod(x, k).Sign() == 0), true, nil
	}

	xs := make([]*big.Int, 0, len(e.args))
	for _, arg := range e.args {
		x, ok, err := intOperand(g, arg)
		if !ok {
			return nil, false, err
		}
		xs = append(xs, x)
	}

	switch e.op {
	case OP_INT_LE:
		return MakeBool(xs[0].Cmp(xs[1]) <= 0), true, nil
	case OP_INT_ADD:
		res := new(big.Int)
		for _, x := range xs {
			res.Add(res, x)
		}
		return mkInteger(e, e.typ, res)
	case OP_INT_MUL:
		res := big.NewInt(1)
		for _, x := range xs {
			res.Mul(res, x)
		}
		return mkInteger(e, e.typ, res)
	case OP_INT_NEG:
		return mkInteger(e, e.typ, new(big.Int).Neg(xs[0]))
	case OP_INT_ABS:
		return mkInteger(e, e.typ, new(big.Int).Abs(xs[0]))
	case OP_INT_DIV, OP_INT_MOD:
		// Euclidean division; a zero divisor gives quotient 0 and
		// remainder equal to the dividend
		q, m := new(big.Int), new(big.Int).Set(xs[0])
		if xs[1].Sign() != 0 {
			q.DivMod(xs[0], xs[1], m)
		}
		if e.op == OP_INT_DIV {
			return mkInteger(e, e.typ, q)
		}
		return mkInteger(e, e.typ, m)
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}

func groundWeightedSum(g Grounder, e *WeightedSumExpr) (Value, bool, error) {
	res := new(big.Rat).Set(e.offset)
	for _, t := range e.terms {
		x, ok, err := realOperand(g, t.Term)
		if !ok {
			return nil, false, err
		}
		res.Add(res, new(big.Rat).Mul(t.Coeff, x))
	}
	return &RealValue{value: res}, true, nil
}

func ratToFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

// floatResult brings a float64 back into the rationals. Everything computed
// this way is only as precise as a double.
func floatResult(e Expr, f float64) (Value, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false, hardFailure(e, ErrNonFinite, "%v", f)
	}
	return &RealValue{value: new(big.Rat).SetFloat64(f)}, true, nil
}

var realFloatOps = map[Op]func(float64) float64{
	OP_REAL_SIN:  math.Sin,
	OP_REAL_COS:  math.Cos,
	OP_REAL_SINH: math.Sinh,
	OP_REAL_COSH: math.Cosh,
	OP_REAL_EXP:  math.Exp,
	OP_REAL_LOG:  math.Log,
}

func groundRealApp(g Grounder, e *AppExpr) (Value, bool, error) {
	switch e.op {
	case OP_PI:
		return floatResult(e, math.Pi)
	case OP_COMPLEX:
		re, ok, err := realOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		im, ok, err := realOperand(g, e.args[1])
		if !ok {
			return nil, false, err
		}
		return MakeComplex(re, im), true, nil
	case OP_REAL_PART, OP_IMAG_PART:
		c, ok, err := complexOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		if e.op == OP_REAL_PART {
			return &RealValue{value: c.Real()}, true, nil
		}
		return &RealValue{value: c.Imag()}, true, nil
	}

	xs := make([]*big.Rat, 0, len(e.args))
	for _, arg := range e.args {
		x, ok, err := realOperand(g, arg)
		if !ok {
			return nil, false, err
		}
		xs = append(xs, x)
	}

	switch e.op {
	case OP_REAL_LE:
		return MakeBool(xs[0].Cmp(xs[1]) <= 0), true, nil
	case OP_REAL_IS_INT:
		return MakeBool(xs[0].IsInt()), true, nil
	case OP_REAL_MUL:
		res := big.NewRat(1, 1)
		for _, x := range xs {
			res.Mul(res, x)
		}
		return &RealValue{value: res}, true, nil
	case OP_REAL_DIV:
		if xs[1].Sign() == 0 {
			return MakeReal(0, 1), true, nil
		}
		return &RealValue{value: new(big.Rat).Quo(xs[0], xs[1])}, true, nil
	case OP_REAL_SQRT:
		if xs[0].Sign() < 0 {
			return nil, false, hardFailure(e, ErrNegativeSqrt, "sqrt(%s)", xs[0].RatString())
		}
		return floatResult(e, math.Sqrt(ratToFloat(xs[0])))
	case OP_REAL_ATAN2:
		return floatResult(e, math.Atan2(ratToFloat(xs[0]), ratToFloat(xs[1])))
	}
	if fn, ok := realFloatOps[e.op]; ok {
		return floatResult(e, fn(ratToFloat(xs[0])))
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}
