package groundeval

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/aclements/go-z3/z3"
)

var errUnsat = errors.New("constraints are unsatisfiable")

type z3symbol struct {
	v *BoundVar
	z z3.Value
}

type z3backend struct {
	ctx    *z3.Context
	cfg    *z3.Config
	solver *z3.Solver

	lastSymbols map[string]z3symbol
}

func newZ3Backend() *z3backend {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &z3backend{
		ctx:    ctx,
		cfg:    cfg,
		solver: z3.NewSolver(ctx),
	}
}

func (s *z3backend) clone() solverBackend {
	return newZ3Backend()
}

func (s *z3backend) assertAll(constraints []Expr, cache map[uintptr]z3.Value) error {
	for _, c := range constraints {
		z3c, err := s.convert(c, cache)
		if err != nil {
			return err
		}
		s.solver.Assert(z3c.(z3.Bool))
	}
	return nil
}

func (s *z3backend) reset() map[uintptr]z3.Value {
	s.solver.Reset()
	s.lastSymbols = make(map[string]z3symbol)
	return make(map[uintptr]z3.Value)
}

func (s *z3backend) check(constraints []Expr) (int, error) {
	cache := s.reset()
	if err := s.assertAll(constraints, cache); err != nil {
		return RESULT_ERROR, err
	}

	r, err := s.solver.Check()
	if err != nil {
		return RESULT_UNKNOWN, nil
	}
	if r {
		return RESULT_SAT, nil
	}
	return RESULT_UNSAT, nil
}

func (s *z3backend) model() (*Model, error) {
	m := s.solver.Model()
	if m == nil {
		return nil, fmt.Errorf("no model available")
	}

	res := NewModel()
	for name, sym := range s.lastSymbols {
		v, err := s.convertZ3Const(sym.v.typ, m.Eval(sym.z, true), m)
		if err != nil {
			return nil, err
		}
		res.Set(name, v)
	}
	return res, nil
}

// solve asserts constraints and returns the model value of e, together with
// the model it was read from.
func (s *z3backend) solve(e Expr, constraints []Expr) (z3.Value, *z3.Model, error) {
	cache := s.reset()
	z3e, err := s.convert(e, cache)
	if err != nil {
		return nil, nil, err
	}
	if err := s.assertAll(constraints, cache); err != nil {
		return nil, nil, err
	}

	r, err := s.solver.Check()
	if err != nil {
		return nil, nil, err
	}
	if !r {
		return nil, nil, errUnsat
	}
	m := s.solver.Model()
	if m == nil {
		return nil, nil, fmt.Errorf("no model available")
	}
	return m.Eval(z3e, true), m, nil
}

func (s *z3backend) eval(e Expr, constraints []Expr) (Value, error) {
	v, m, err := s.solve(e, constraints)
	if err != nil {
		return nil, err
	}
	return s.convertZ3Const(e.Type(), v, m)
}

func (s *z3backend) realRange(e Expr, constraints []Expr, precision int) (*big.Rat, *big.Rat, error) {
	v, _, err := s.solve(e, constraints)
	if err != nil {
		return nil, nil, err
	}
	r := v.(z3.Real)
	if exact, isLit := r.AsBigRat(); isLit {
		return exact, new(big.Rat).Set(exact), nil
	}
	lower, upper, ok := r.Approx(precision)
	if !ok {
		return nil, nil, fmt.Errorf("cannot approximate %s", r)
	}
	lo, isLit := lower.AsBigRat()
	if !isLit {
		return nil, nil, fmt.Errorf("cannot approximate %s", r)
	}
	hi, isLit := upper.AsBigRat()
	if !isLit {
		return nil, nil, fmt.Errorf("cannot approximate %s", r)
	}
	return lo, hi, nil
}

// convertZ3Const reads a model value back. Arrays stay lazy: every select
// is evaluated in m on demand.
func (s *z3backend) convertZ3Const(typ *Type, v z3.Value, m *z3.Model) (Value, error) {
	switch typ.Kind() {
	case KIND_BOOL:
		b, isLit := v.(z3.Bool).AsBool()
		if isLit {
			return MakeBool(b), nil
		}
	case KIND_INT:
		i, isLit := v.(z3.Int).AsBigInt()
		if isLit {
			return MakeIntFromBigint(i), nil
		}
	case KIND_NAT:
		i, isLit := v.(z3.Int).AsBigInt()
		if isLit {
			return MakeNatFromBigint(i)
		}
	case KIND_REAL:
		r, isLit := v.(z3.Real).AsBigRat()
		if isLit {
			return MakeRealFromRat(r), nil
		}
	case KIND_BV:
		bv, isLit := v.(z3.BV).AsBigUnsigned()
		if isLit {
			return MakeBVFromBigint(bv, typ.Width()), nil
		}
	case KIND_ARRAY:
		arr := v.(z3.Array)
		a, err := NewArrayValue(typ, func(index []Value) (Value, error) {
			idx, err := s.literal(index[0])
			if err != nil {
				return nil, err
			}
			return s.convertZ3Const(typ.Result(), m.Eval(arr.Select(idx), true), m)
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: no solver values of type %s", ErrUnsupported, typ)
	}
	return nil, fmt.Errorf("not a constant: %s", v)
}

func (s *z3backend) sort(typ *Type) (z3.Sort, error) {
	switch typ.Kind() {
	case KIND_BOOL:
		return s.ctx.BoolSort(), nil
	case KIND_INT, KIND_NAT:
		return s.ctx.IntSort(), nil
	case KIND_REAL:
		return s.ctx.RealSort(), nil
	case KIND_BV:
		return s.ctx.BVSort(int(typ.Width())), nil
	case KIND_ARRAY:
		if len(typ.Index()) != 1 {
			break
		}
		dom, err := s.sort(typ.Index()[0])
		if err != nil {
			return z3.Sort{}, err
		}
		rng, err := s.sort(typ.Result())
		if err != nil {
			return z3.Sort{}, err
		}
		return s.ctx.ArraySort(dom, rng), nil
	}
	return z3.Sort{}, fmt.Errorf("%w: no solver sort for %s", ErrUnsupported, typ)
}

func (s *z3backend) literal(v Value) (z3.Value, error) {
	switch v := v.(type) {
	case BoolValue:
		return s.ctx.FromBool(v.Value), nil
	case *IntValue:
		return s.ctx.FromBigInt(v.value, s.ctx.IntSort()), nil
	case *NatValue:
		return s.ctx.FromBigInt(v.value, s.ctx.IntSort()), nil
	case *RealValue:
		num := s.ctx.FromBigInt(v.value.Num(), s.ctx.RealSort()).(z3.Real)
		den := s.ctx.FromBigInt(v.value.Denom(), s.ctx.RealSort()).(z3.Real)
		return num.Div(den), nil
	case *BVValue:
		return s.ctx.FromBigInt(v.value, s.ctx.BVSort(int(v.size))), nil
	}
	return nil, fmt.Errorf("%w: no solver literal for %s", ErrUnsupported, v.Type())
}

func eqZ3(lhs, rhs z3.Value) (z3.Bool, error) {
	switch lhs := lhs.(type) {
	case z3.Bool:
		return lhs.Eq(rhs.(z3.Bool)), nil
	case z3.Int:
		return lhs.Eq(rhs.(z3.Int)), nil
	case z3.Real:
		return lhs.Eq(rhs.(z3.Real)), nil
	case z3.BV:
		return lhs.Eq(rhs.(z3.BV)), nil
	case z3.Array:
		return lhs.Eq(rhs.(z3.Array)), nil
	}
	return z3.Bool{}, fmt.Errorf("%w: equality on %v", ErrUnsupported, lhs)
}

func (s *z3backend) convertAll(es []Expr, cache map[uintptr]z3.Value) ([]z3.Value, error) {
	res := make([]z3.Value, 0, len(es))
	for _, e := range es {
		v, err := s.convert(e, cache)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

func (s *z3backend) convert(e Expr, cache map[uintptr]z3.Value) (z3.Value, error) {
	if v, ok := cache[e.Id()]; ok {
		return v, nil
	}

	var result z3.Value
	var err error
	switch e := e.(type) {
	case *Literal:
		result, err = s.literal(e.val)
	case *BoundVar:
		result, err = s.convertVar(e)
	case *WeightedSumExpr:
		result, err = s.convertSum(e, cache)
	case *NonceApp:
		if e.kind != NONCE_ANNOTATION {
			return nil, fmt.Errorf("%w: %s in solver queries", ErrUnsupported, e.kind)
		}
		result, err = s.convert(e.args[0], cache)
	case *AppExpr:
		result, err = s.convertApp(e, cache)
	default:
		return nil, fmt.Errorf("%w: %s in solver queries", ErrUnsupported, e)
	}
	if err != nil {
		return nil, err
	}

	cache[e.Id()] = result
	return result, nil
}

func (s *z3backend) convertVar(v *BoundVar) (z3.Value, error) {
	if v.binding == BIND_QUANTIFIER {
		return nil, fmt.Errorf("%w: variable %s", ErrQuantifiedVar, v.name)
	}
	if sym, ok := s.lastSymbols[v.name]; ok {
		return sym.z, nil
	}
	sort, err := s.sort(v.typ)
	if err != nil {
		return nil, err
	}
	z := s.ctx.Const(v.name, sort)
	if v.typ.Kind() == KIND_NAT {
		s.solver.Assert(z.(z3.Int).GE(s.ctx.FromInt(0, s.ctx.IntSort()).(z3.Int)))
	}
	s.lastSymbols[v.name] = z3symbol{v: v, z: z}
	return z, nil
}

func (s *z3backend) convertSum(e *WeightedSumExpr, cache map[uintptr]z3.Value) (z3.Value, error) {
	off, err := s.literal(MakeRealFromRat(e.offset))
	if err != nil {
		return nil, err
	}
	res := off.(z3.Real)
	for _, t := range e.terms {
		c, err := s.literal(MakeRealFromRat(t.Coeff))
		if err != nil {
			return nil, err
		}
		term, err := s.convert(t.Term, cache)
		if err != nil {
			return nil, err
		}
		res = res.Add(c.(z3.Real).Mul(term.(z3.Real)))
	}
	return res, nil
}

func (s *z3backend) convertApp(e *AppExpr, cache map[uintptr]z3.Value) (z3.Value, error) {
	args, err := s.convertAll(e.args, cache)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case OP_ITE:
		return args[0].(z3.Bool).IfThenElse(args[1], args[2]), nil
	case OP_EQ:
		return eqZ3(args[0], args[1])
	case OP_NOT:
		return args[0].(z3.Bool).Not(), nil
	case OP_AND, OP_OR, OP_XOR:
		res := args[0].(z3.Bool)
		for i := 1; i < len(args); i++ {
			child := args[i].(z3.Bool)
			switch e.op {
			case OP_AND:
				res = res.And(child)
			case OP_OR:
				res = res.Or(child)
			default:
				res = res.Xor(child)
			}
		}
		return res, nil

	case OP_INT_LE:
		return args[0].(z3.Int).LE(args[1].(z3.Int)), nil
	case OP_INT_ADD:
		res := args[0].(z3.Int)
		for i := 1; i < len(args); i++ {
			res = res.Add(args[i].(z3.Int))
		}
		return res, nil
	case OP_INT_MUL:
		res := args[0].(z3.Int)
		for i := 1; i < len(args); i++ {
			res = res.Mul(args[i].(z3.Int))
		}
		return res, nil
	case OP_INT_NEG:
		return args[0].(z3.Int).Neg(), nil
	case OP_INT_DIV:
		return args[0].(z3.Int).Div(args[1].(z3.Int)), nil
	case OP_INT_MOD:
		return args[0].(z3.Int).Mod(args[1].(z3.Int)), nil

	case OP_REAL_LE:
		return args[0].(z3.Real).LE(args[1].(z3.Real)), nil
	case OP_REAL_MUL:
		res := args[0].(z3.Real)
		for i := 1; i < len(args); i++ {
			res = res.Mul(args[i].(z3.Real))
		}
		return res, nil
	case OP_REAL_DIV:
		return args[0].(z3.Real).Div(args[1].(z3.Real)), nil
	case OP_REAL_IS_INT:
		return args[0].(z3.Real).IsInt(), nil

	case OP_NAT_TO_INT:
		return args[0], nil
	case OP_INT_TO_REAL:
		return args[0].(z3.Int).ToReal(), nil
	case OP_REAL_FLOOR, OP_REAL_TO_INT:
		return args[0].(z3.Real).ToInt(), nil
	case OP_BV_TO_NAT, OP_BV_TO_INT:
		return args[0].(z3.BV).UToInt(), nil
	case OP_SBV_TO_INT:
		return args[0].(z3.BV).SToInt(), nil

	case OP_CONST_ARRAY:
		if len(e.typ.Index()) != 1 {
			break
		}
		dom, err := s.sort(e.typ.Index()[0])
		if err != nil {
			return nil, err
		}
		return s.ctx.ConstArray(dom, args[0]), nil
	case OP_SELECT:
		if len(args) != 2 {
			break
		}
		return args[0].(z3.Array).Select(args[1]), nil
	case OP_UPDATE:
		if len(args) != 3 {
			break
		}
		return args[0].(z3.Array).Store(args[1], args[2]), nil
	}

	if e.op.inFamily(opBVBegin, opBVEnd) {
		return s.convertBVApp(e, args)
	}
	return nil, fmt.Errorf("%w: operator %s in solver queries", ErrUnsupported, e.op)
}

func (s *z3backend) convertBVApp(e *AppExpr, args []z3.Value) (z3.Value, error) {
	bvs := make([]z3.BV, len(args))
	for i := range args {
		bvs[i] = args[i].(z3.BV)
	}

	switch e.op {
	case OP_BV_ULT:
		return bvs[0].ULT(bvs[1]), nil
	case OP_BV_ULE:
		return bvs[0].ULE(bvs[1]), nil
	case OP_BV_SLT:
		return bvs[0].SLT(bvs[1]), nil
	case OP_BV_SLE:
		return bvs[0].SLE(bvs[1]), nil
	case OP_BV_TEST_BIT:
		i := int(e.params[0])
		return bvs[0].Extract(i, i).Eq(s.ctx.FromInt(1, s.ctx.BVSort(1)).(z3.BV)), nil
	case OP_BV_NEG:
		return bvs[0].Neg(), nil
	case OP_BV_NOT:
		return bvs[0].Not(), nil
	case OP_BV_SHL:
		return bvs[0].Lsh(bvs[1]), nil
	case OP_BV_LSHR:
		return bvs[0].URsh(bvs[1]), nil
	case OP_BV_ASHR:
		return bvs[0].SRsh(bvs[1]), nil
	case OP_BV_UDIV:
		return bvs[0].UDiv(bvs[1]), nil
	case OP_BV_UREM:
		return bvs[0].URem(bvs[1]), nil
	case OP_BV_SDIV:
		return bvs[0].SDiv(bvs[1]), nil
	case OP_BV_SREM:
		return bvs[0].SRem(bvs[1]), nil
	case OP_BV_SELECT:
		start, count := int(e.params[0]), int(e.params[1])
		return bvs[0].Extract(start+count-1, start), nil
	case OP_BV_TRUNC:
		return bvs[0].Extract(int(e.params[0])-1, 0), nil
	case OP_BV_ZEXT:
		return bvs[0].ZeroExtend(int(e.params[0] - e.args[0].Type().Width())), nil
	case OP_BV_SEXT:
		return bvs[0].SignExtend(int(e.params[0] - e.args[0].Type().Width())), nil
	case OP_BV_ADD, OP_BV_SUB, OP_BV_MUL, OP_BV_AND, OP_BV_OR, OP_BV_XOR, OP_BV_CONCAT:
		res := bvs[0]
		for i := 1; i < len(bvs); i++ {
			switch e.op {
			case OP_BV_ADD:
				res = res.Add(bvs[i])
			case OP_BV_SUB:
				res = res.Sub(bvs[i])
			case OP_BV_MUL:
				res = res.Mul(bvs[i])
			case OP_BV_AND:
				res = res.And(bvs[i])
			case OP_BV_OR:
				res = res.Or(bvs[i])
			case OP_BV_XOR:
				res = res.Xor(bvs[i])
			default:
				res = res.Concat(bvs[i])
			}
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: operator %s in solver queries", ErrUnsupported, e.op)
}
