package groundeval

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

type countingGrounder struct {
	counts map[uintptr]int
}

func newCountingGrounder() *countingGrounder {
	return &countingGrounder{counts: map[uintptr]int{}}
}

func (c *countingGrounder) GroundExpr(e Expr) (Value, bool, error) {
	c.counts[e.Id()] += 1
	return TryGround(c, e)
}

func mustGround(t *testing.T, e Expr) Value {
	t.Helper()
	v, err := Ground(Recursive(), e)
	if err != nil {
		t.Fatalf("unable to ground %s: %s", e, err)
	}
	return v
}

// exprOf returns a helper unwrapping builder results.
func exprOf(t *testing.T) func(Expr, error) Expr {
	return func(e Expr, err error) Expr {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return e
	}
}

func TestBVAddScenario(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	e := must(eb.BVAdd(eb.BVV(15, 4), eb.BVV(2, 4)))
	v := mustGround(t, e).(*BVValue)
	if v.AsULong() != 1 {
		t.Errorf("15 + 2 should wrap to 1, got %s", v)
	}
}

func TestBVSRemScenario(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	e := must(eb.BVSRem(eb.BVV(-8, 4), eb.BVV(3, 4)))
	v := mustGround(t, e).(*BVValue)
	if v.AsULong() != 14 || v.AsLong() != -2 {
		t.Errorf("-8 srem 3 should be -2, got %s", v)
	}
}

func TestBVResultsInRange(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	for w := uint(1); w <= 9; w++ {
		limit := uint64(1) << w
		for _, a := range []int64{-3, -1, 0, 1, 2, 7, 255, 1000} {
			for _, b := range []int64{-2, 0, 1, 5, 128} {
				x, y := eb.BVV(a, w), eb.BVV(b, w)
				exprs := []Expr{
					must(eb.BVAdd(x, y)),
					must(eb.BVMul(x, y)),
					must(eb.BVNeg(x)),
				}
				for _, e := range exprs {
					v := mustGround(t, e).(*BVValue)
					if v.Size() != w || v.AsULong() >= limit {
						t.Errorf("%s out of range: %s", e, v)
					}
				}
			}
		}
	}
}

func TestBVDivByZero(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	x, z := eb.BVV(-7, 8), eb.BVV(0, 8)
	cases := []struct {
		e   Expr
		res uint64
	}{
		{must(eb.BVUDiv(x, z)), 0},
		{must(eb.BVURem(x, z)), 0xf9},
		{must(eb.BVSDiv(x, z)), 0},
		{must(eb.BVSRem(x, z)), 0xf9},
	}
	for _, c := range cases {
		v := mustGround(t, c.e).(*BVValue)
		if v.AsULong() != c.res {
			t.Errorf("%s: expected 0x%x, got %s", c.e, c.res, v)
		}
	}
}

func TestBVShifts(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	x := eb.BVV(0x81, 8)
	cases := []struct {
		e   Expr
		res uint64
	}{
		{must(eb.BVShl(x, eb.BVV(1, 8))), 0x02},
		{must(eb.BVShl(x, eb.BVV(200, 8))), 0},
		{must(eb.BVLShr(x, eb.BVV(7, 8))), 0x01},
		{must(eb.BVAShr(x, eb.BVV(200, 8))), 0xff},
		{must(eb.BVRol(x, eb.BVV(9, 8))), 0x03},
		{must(eb.BVRor(x, eb.BVV(1, 8))), 0xc0},
	}
	for _, c := range cases {
		v := mustGround(t, c.e).(*BVValue)
		if v.AsULong() != c.res {
			t.Errorf("%s: expected 0x%x, got %s", c.e, c.res, v)
		}
	}
}

func TestBVWidthChanges(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	x := eb.BVV(0xf0, 8)
	s := mustGround(t, must(eb.BVSext(x, 16))).(*BVValue)
	if s.AsULong() != 0xfff0 {
		t.Errorf("invalid sext %s", s)
	}
	z := mustGround(t, must(eb.BVZext(x, 16))).(*BVValue)
	if z.AsULong() != 0xf0 {
		t.Errorf("invalid zext %s", z)
	}
	tr := mustGround(t, must(eb.BVTrunc(x, 4))).(*BVValue)
	if tr.AsULong() != 0 || tr.Size() != 4 {
		t.Errorf("invalid trunc %s", tr)
	}
	b := mustGround(t, must(eb.BVTestBit(x, 7))).(BoolValue)
	if !b.Value {
		t.Error("bit 7 should be set")
	}

	// a malformed node reaching the evaluator is a hard failure
	bad := &AppExpr{op: OP_BV_SEXT, typ: BVType(8), args: []Expr{x}, params: []uint{8}}
	_, _, err := TryGround(Recursive(), bad)
	if !errors.Is(err, ErrBadWidth) {
		t.Errorf("expected a width failure, got %v", err)
	}
}

func TestIntArithmetic(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	cases := []struct {
		e   Expr
		res int64
	}{
		{must(eb.IntDiv(eb.IntVal(-7), eb.IntVal(2))), -4},
		{must(eb.IntMod(eb.IntVal(-7), eb.IntVal(2))), 1},
		{must(eb.IntDiv(eb.IntVal(7), eb.IntVal(-2))), -3},
		{must(eb.IntMod(eb.IntVal(7), eb.IntVal(-2))), 1},
		{must(eb.IntDiv(eb.IntVal(7), eb.IntVal(0))), 0},
		{must(eb.IntMod(eb.IntVal(7), eb.IntVal(0))), 7},
		{must(eb.IntAbs(eb.IntVal(-9))), 9},
		{must(eb.IntNeg(eb.IntVal(9))), -9},
		{must(eb.IntMul(eb.IntVal(-3), eb.IntVal(4))), -12},
	}
	for _, c := range cases {
		v := mustGround(t, c.e).(*IntValue)
		if v.Int().Cmp(big.NewInt(c.res)) != 0 {
			t.Errorf("%s: expected %d, got %s", c.e, c.res, v)
		}
	}

	d := mustGround(t, must(eb.IntDivisible(eb.IntVal(12), 4))).(BoolValue)
	if !d.Value {
		t.Error("12 is divisible by 4")
	}
	d = mustGround(t, must(eb.IntDivisible(eb.IntVal(13), 4))).(BoolValue)
	if d.Value {
		t.Error("13 is not divisible by 4")
	}

	n := mustGround(t, must(eb.IntAdd(eb.NatVal(3), eb.NatVal(4))))
	if nv, ok := n.(*NatValue); !ok || nv.Int().Int64() != 7 {
		t.Errorf("nat addition should stay natural, got %s", n)
	}
}

func TestRealArithmetic(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	v := mustGround(t, must(eb.RealDiv(eb.RealVal(1, 1), eb.RealVal(0, 1)))).(*RealValue)
	if v.Rat().Sign() != 0 {
		t.Errorf("division by zero should be 0, got %s", v)
	}

	v = mustGround(t, must(eb.RealDiv(eb.RealVal(1, 1), eb.RealVal(3, 1)))).(*RealValue)
	if v.Rat().Cmp(big.NewRat(1, 3)) != 0 {
		t.Errorf("expected 1/3, got %s", v)
	}

	sum := must(eb.RealSum(big.NewRat(1, 2),
		SumTerm{Coeff: big.NewRat(2, 1), Term: eb.RealVal(1, 4)},
		SumTerm{Coeff: big.NewRat(-1, 1), Term: eb.RealVal(3, 1)}))
	v = mustGround(t, sum).(*RealValue)
	if v.Rat().Cmp(big.NewRat(-2, 1)) != 0 {
		t.Errorf("expected -2, got %s", v)
	}

	v = mustGround(t, must(eb.RealSqrt(eb.RealVal(2, 1)))).(*RealValue)
	f, _ := v.Rat().Float64()
	if math.Abs(f-math.Sqrt2) > 1e-12 {
		t.Errorf("sqrt(2) too far from the true root: %v", f)
	}

	_, err := Ground(Recursive(), must(eb.RealSqrt(eb.RealVal(-1, 1))))
	if !errors.Is(err, ErrNegativeSqrt) {
		t.Errorf("expected a negative sqrt failure, got %v", err)
	}

	_, err = Ground(Recursive(), must(eb.RealLog(eb.RealVal(0, 1))))
	if !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected a non-finite failure, got %v", err)
	}

	b := mustGround(t, must(eb.RealIsInteger(eb.RealVal(4, 2)))).(BoolValue)
	if !b.Value {
		t.Error("4/2 is an integer")
	}
}

func TestComplex(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	c := must(eb.Complex(eb.RealVal(1, 2), eb.RealVal(-3, 1)))
	re := mustGround(t, must(eb.RealPart(c))).(*RealValue)
	im := mustGround(t, must(eb.ImagPart(c))).(*RealValue)
	if re.Rat().Cmp(big.NewRat(1, 2)) != 0 || im.Rat().Cmp(big.NewRat(-3, 1)) != 0 {
		t.Errorf("invalid parts %s %s", re, im)
	}
}

func TestShortCircuit(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	// grounding the function application would be a hard failure
	fn := eb.FnApp("f", BoolType(), eb.IntVal(1))

	e := must(eb.And(eb.BoolVal(false), fn))
	if mustGround(t, e).(BoolValue).Value {
		t.Error("and with a false operand should be false")
	}
	e = must(eb.Or(eb.BoolVal(true), fn))
	if !mustGround(t, e).(BoolValue).Value {
		t.Error("or with a true operand should be true")
	}
	e = must(eb.And(eb.BoolVal(true), fn))
	if _, err := Ground(Recursive(), e); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected an unsupported failure, got %v", err)
	}

	fnInt := eb.FnApp("g", IntType())
	g := newCountingGrounder()
	ite := must(eb.Ite(eb.BoolVal(true), eb.IntVal(1), fnInt))
	if _, _, err := TryGround(g, ite); err != nil {
		t.Error(err)
	}
	if g.counts[fnInt.Id()] != 0 {
		t.Error("the branch not taken should not be grounded")
	}
}

func TestArrayScenario(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	idx := []*Type{BVType(8)}
	arr := eb.ConstantArray(idx, eb.IntVal(5))
	for _, i := range []int64{0, 3, 4, 255} {
		v := mustGround(t, must(eb.Select(arr, eb.BVV(i, 8)))).(*IntValue)
		if v.Int().Int64() != 5 {
			t.Errorf("select %d should be 5, got %s", i, v)
		}
	}

	upd := must(eb.Update(arr, []Expr{eb.BVV(3, 8)}, eb.IntVal(9)))
	v := mustGround(t, must(eb.Select(upd, eb.BVV(3, 8)))).(*IntValue)
	if v.Int().Int64() != 9 {
		t.Errorf("updated index should be 9, got %s", v)
	}
	v = mustGround(t, must(eb.Select(upd, eb.BVV(4, 8)))).(*IntValue)
	if v.Int().Int64() != 5 {
		t.Errorf("other indices should be 5, got %s", v)
	}
}

func TestPointUpdateLaw(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	idx := []*Type{NatType(), BVType(4)}
	base := mustGround(t, eb.Var("a", ArrayType(idx, BVType(8)))).(*ArrayValue)
	baseExpr := eb.Var("a", ArrayType(idx, BVType(8)))

	at := []Expr{eb.NatVal(2), eb.BVV(7, 4)}
	upd := must(eb.Update(baseExpr, at, eb.BVV(0xaa, 8)))
	updated := mustGround(t, upd).(*ArrayValue)

	v, err := updated.Select([]Value{MakeNat(2), MakeBV(7, 4)})
	if isErr(t, err) {
		return
	}
	if v.(*BVValue).AsULong() != 0xaa {
		t.Errorf("updated index should hold the new value, got %s", v)
	}

	for _, j := range [][]Value{
		{MakeNat(2), MakeBV(6, 4)},
		{MakeNat(3), MakeBV(7, 4)},
		{MakeNat(0), MakeBV(0, 4)},
	} {
		got, err := updated.Select(j)
		if isErr(t, err) {
			return
		}
		want, _ := base.Select(j)
		if eq, _ := valuesEqual(got, want); !eq {
			t.Errorf("index %v: expected %s, got %s", j, want, got)
		}
	}
}

func TestUpdateNonLiteralIndex(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	arr := eb.ConstantArray([]*Type{IntType()}, eb.BoolVal(false))
	upd := must(eb.Update(arr, []Expr{eb.IntVal(1)}, eb.BoolVal(true)))

	// building the function succeeds, querying it does not
	v := mustGround(t, upd).(*ArrayValue)
	_, err := v.Select([]Value{MakeInt(1)})
	if !errors.Is(err, ErrNonLiteralIndex) {
		t.Errorf("expected a non-literal index failure, got %v", err)
	}

	sel := must(eb.Select(upd, eb.IntVal(1)))
	if _, err := Ground(Recursive(), sel); !errors.Is(err, ErrNonLiteralIndex) {
		t.Errorf("expected a non-literal index failure, got %v", err)
	}
}

func TestArrayMapOverlay(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	dflt := eb.ConstantArray([]*Type{BVType(8)}, eb.IntVal(-1))
	m := must(eb.ArrayMap(dflt, []MapEntry{
		{Index: []Value{MakeBV(1, 8)}, Value: eb.IntVal(10)},
		{Index: []Value{MakeBV(2, 8)}, Value: eb.IntVal(20)},
	}))

	cases := map[int64]int64{1: 10, 2: 20, 3: -1}
	for i, res := range cases {
		v := mustGround(t, must(eb.Select(m, eb.BVV(i, 8)))).(*IntValue)
		if v.Int().Int64() != res {
			t.Errorf("select %d: expected %d, got %s", i, res, v)
		}
	}
}

func TestArrayEqualityIsSoft(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	typ := ArrayType([]*Type{BVType(8)}, BoolType())
	a := eb.ConstantArray([]*Type{BVType(8)}, eb.BoolVal(true))
	b := eb.Var("b", typ)
	fn := must(eb.ArrayFromFn("f", typ))

	for _, rhs := range []Expr{a, b, fn} {
		e := must(eb.Eq(a, rhs))
		v, ok, err := TryGround(Recursive(), e)
		if v != nil || ok || err != nil {
			t.Errorf("%s should not be grounded offline", e)
		}
		_, err = Ground(Recursive(), e)
		var cge *CannotGroundError
		if !errors.Is(err, ErrCannotGround) || !errors.As(err, &cge) {
			t.Errorf("expected a cannot-ground error, got %v", err)
		}
	}

	st := eb.Struct(a, eb.IntVal(1))
	e := must(eb.Eq(st, st))
	if _, ok, err := TryGround(Recursive(), e); ok || err != nil {
		t.Error("structs holding arrays should not be compared offline")
	}
}

func TestMuxSelectsOnce(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	idx := []*Type{BVType(8)}
	cond := eb.Var("c", BoolType())
	mux := must(eb.Ite(cond, eb.ConstantArray(idx, eb.IntVal(1)), eb.ConstantArray(idx, eb.IntVal(2))))

	g := newCountingGrounder()
	v, ok, err := TryGround(g, mux)
	if !ok || err != nil {
		t.Fatal("unable to ground the mux")
	}
	arr := v.(*ArrayValue)
	for i := int64(0); i < 10; i++ {
		r, err := arr.Select([]Value{MakeBV(i, 8)})
		if isErr(t, err) {
			return
		}
		if r.(*IntValue).Int().Int64() != 2 {
			t.Errorf("unexpected value %s", r)
		}
	}
	if g.counts[cond.Id()] != 1 {
		t.Errorf("the condition was grounded %d times", g.counts[cond.Id()])
	}
}

func TestStructs(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	s := eb.Struct(eb.BoolVal(true), eb.BVV(7, 8))
	f := mustGround(t, must(eb.Field(s, 1))).(*BVValue)
	if f.AsULong() != 7 {
		t.Errorf("unexpected field %s", f)
	}
	e := must(eb.Eq(s, eb.Struct(eb.BoolVal(true), eb.BVV(7, 8))))
	if !mustGround(t, e).(BoolValue).Value {
		t.Error("structs should be equal")
	}
}

func TestVariables(t *testing.T) {
	eb := NewExprBuilder()

	l := mustGround(t, eb.Latch("l", IntType())).(*IntValue)
	if l.Int().Sign() != 0 {
		t.Errorf("unconstrained latch should default to 0, got %s", l)
	}

	q := eb.QuantVar("q", IntType())
	_, err := Ground(Recursive(), q)
	if !errors.Is(err, ErrQuantifiedVar) {
		t.Errorf("expected a quantified variable failure, got %v", err)
	}
	var ge *GroundError
	if !errors.As(err, &ge) || ge.Expr.Id() != q.Id() {
		t.Error("the failure should point to the variable")
	}
}

func TestNonceNodes(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	q := eb.QuantVar("q", IntType())
	body := must(eb.IntLe(q, eb.IntVal(3)))
	typ := ArrayType([]*Type{BVType(8)}, BoolType())
	arr := eb.Var("arr", typ)

	nodes := []Expr{
		must(eb.Forall(q, body)),
		must(eb.Exists(q, body)),
		eb.FnApp("f", IntType(), eb.IntVal(1)),
		must(eb.ArrayFromFn("g", typ)),
		must(eb.MapOverArrays("not", typ, arr)),
		must(eb.ArrayTrueOnEntries("p", arr)),
	}
	for _, n := range nodes {
		_, err := Ground(Recursive(), n)
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: expected an unsupported failure, got %v", n, err)
		}
	}

	a := eb.Annotate(eb.IntVal(42))
	if mustGround(t, a).(*IntValue).Int().Int64() != 42 {
		t.Error("annotations should be transparent")
	}
}

func TestUnaryBV(t *testing.T) {
	eb := NewExprBuilder()

	preds := []Expr{eb.BoolVal(false), eb.BoolVal(true), eb.BoolVal(true)}
	bounds := []*big.Int{big.NewInt(1), big.NewInt(5), big.NewInt(10)}
	u, err := NewUnaryRange(8, bounds, preds)
	if isErr(t, err) {
		return
	}
	v := mustGround(t, eb.BVUnary(u)).(*BVValue)
	if v.AsULong() != 5 {
		t.Errorf("expected 5, got %s", v)
	}

	none := []Expr{eb.BoolVal(false), eb.BoolVal(false), eb.BoolVal(false)}
	u, _ = NewUnaryRange(8, bounds, none)
	v = mustGround(t, eb.BVUnary(u)).(*BVValue)
	if v.AsULong() != 10 {
		t.Errorf("expected the largest bound, got %s", v)
	}

	if _, err := NewUnaryRange(8, []*big.Int{big.NewInt(3), big.NewInt(1)}, preds[:2]); err == nil {
		t.Error("unsorted bounds should be rejected")
	}
}

func TestGrounderTypeMismatch(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	x := eb.Var("x", BVType(8))
	e := must(eb.BVAdd(x, eb.BVV(1, 8)))
	lying := GrounderFunc(func(n Expr) (Value, bool, error) {
		if n.Id() == x.Id() {
			return MakeBV(1, 16), true, nil
		}
		return TryGround(Recursive(), n)
	})
	_, err := Ground(lying, e)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected a type mismatch, got %v", err)
	}

	soft := GrounderFunc(func(n Expr) (Value, bool, error) {
		if n.Id() == x.Id() {
			return nil, false, nil
		}
		return TryGround(Recursive(), n)
	})
	if _, ok, err := TryGround(soft, e); ok || err != nil {
		t.Error("a soft operand should make the node soft")
	}
}
