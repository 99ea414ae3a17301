package groundeval

import (
	"errors"
	"math/big"
	"testing"
)

func isErr(t *testing.T, err error) bool {
	if err != nil {
		t.Error(err)
		return true
	}
	return false
}

func getByte(t *testing.T, eb *ExprBuilder, expr Expr, i uint) Expr {
	b, err := eb.Extract(expr, (i+1)*8-1, i*8)
	if isErr(t, err) {
		return nil
	}
	return b
}

func TestCache1(t *testing.T) {
	eb := NewExprBuilder()

	s1 := eb.Var("s1", BVType(32))
	s2 := eb.Var("s2", BVType(32))
	e, err := eb.BVAdd(s1, s2)
	if isErr(t, err) {
		return
	}

	ss1 := eb.Var("s1", BVType(32))
	if s1.Id() != ss1.Id() {
		t.Error("should be the same object")
		return
	}
	ee, _ := eb.BVAdd(ss1, s2)
	if e.Id() != ee.Id() {
		t.Error("should be the same object")
		return
	}
	if eb.Stats.CacheHits != 2 {
		t.Errorf("unexpected number of hits %d", eb.Stats.CacheHits)
	}
}

func TestCache2(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.Var("a", BVType(32))
	b := eb.Var("a", BVType(64))
	if a.Id() == b.Id() {
		t.Error("variables of different types should differ")
		return
	}
	l := eb.Latch("a", BVType(32))
	if a.Id() == l.Id() {
		t.Error("latches and constants should differ")
		return
	}
	if eb.BVV(1, 8).Id() == eb.BVV(1, 16).Id() {
		t.Error("literals of different widths should differ")
		return
	}
	if eb.IntVal(3).Id() != eb.IntValBig(big.NewInt(3)).Id() {
		t.Error("should be the same object")
		return
	}
}

func TestCache3(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.Var("a", IntType())
	e1, _ := eb.IntDivisible(a, 3)
	e2, _ := eb.IntDivisible(a, 4)
	if e1.Id() == e2.Id() {
		t.Error("static arguments should be part of the node")
		return
	}

	x := eb.Annotate(a)
	y := eb.Annotate(a)
	if x.Id() == y.Id() {
		t.Error("annotations should be fresh")
		return
	}
}

func TestShift1(t *testing.T) {
	eb := NewExprBuilder()

	sym := eb.Var("sym", BVType(64))
	e, err := eb.BVAShr(sym, eb.BVV(16, 64))
	if isErr(t, err) {
		return
	}
	e, err = eb.BVShl(e, eb.BVV(8, 64))
	if isErr(t, err) {
		return
	}

	if e.String() != "(sym a>> 0x10) << 0x8" {
		t.Errorf("unexpected expression %s", e)
		return
	}
}

func TestBool1(t *testing.T) {
	eb := NewExprBuilder()

	a, err := eb.Eq(eb.Var("a", BVType(1)), eb.BVV(1, 1))
	if isErr(t, err) {
		return
	}
	b, err := eb.Eq(eb.Var("b", BVType(1)), eb.BVV(1, 1))
	if isErr(t, err) {
		return
	}

	e, err := eb.And(a, b)
	if isErr(t, err) {
		return
	}
	e, err = eb.Not(e)
	if isErr(t, err) {
		return
	}
	if e.String() != "not(and(a == 0x1, b == 0x1))" {
		t.Errorf("unexpected expression %s", e)
		return
	}
}

func TestBVCompare(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.Var("a", BVType(64))
	b := eb.Var("b", BVType(64))
	e, _ := eb.BVUle(a, b)
	if e.String() != "a u<= b" {
		t.Error("invalid expression")
		return
	}
	if !e.Type().Equal(BoolType()) {
		t.Error("comparisons should be boolean")
	}
}

func TestConcat1(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.Var("a", BVType(32))
	p1 := getByte(t, eb, a, 0)
	p2 := getByte(t, eb, a, 1)
	p3 := getByte(t, eb, a, 2)
	p4 := getByte(t, eb, a, 3)

	if p1 == nil || p2 == nil || p3 == nil || p4 == nil {
		return
	}

	c, err := eb.BVConcat(p4, p3)
	if isErr(t, err) {
		return
	}
	c, err = eb.BVConcat(c, p2)
	if isErr(t, err) {
		return
	}
	c, err = eb.BVConcat(c, p1)
	if isErr(t, err) {
		return
	}

	if c.Type().Width() != 32 {
		t.Error("invalid concat width")
		return
	}

	m := NewModel()
	m.Set("a", MakeBV(0x11223344, 32))
	v, err := NewModelEvaluator(m).Eval(c)
	if isErr(t, err) {
		return
	}
	if v.(*BVValue).AsULong() != 0x11223344 {
		t.Errorf("unexpected value %s", v)
	}
}

func TestBuilderTypeErrors(t *testing.T) {
	eb := NewExprBuilder()

	i := eb.Var("i", IntType())
	r := eb.Var("r", RealType())
	b8 := eb.Var("b8", BVType(8))
	b16 := eb.Var("b16", BVType(16))

	if _, err := eb.IntAdd(i, r); err == nil {
		t.Error("IntAdd should reject reals")
	}
	if _, err := eb.BVAdd(b8, b16); err == nil {
		t.Error("BVAdd should reject different widths")
	}
	if _, err := eb.Ite(eb.BoolVal(true), i, r); err == nil {
		t.Error("Ite should reject different branch types")
	}
	if _, err := eb.Not(i); err == nil {
		t.Error("Not should reject integers")
	}
	if _, err := eb.And(eb.BoolVal(true)); err == nil {
		t.Error("And should need two children")
	}
	if _, err := eb.BVSext(b16, 8); !errors.Is(err, ErrBadWidth) {
		t.Error("BVSext should reject narrowing")
	}
	if _, err := eb.BVTrunc(b8, 8); !errors.Is(err, ErrBadWidth) {
		t.Error("BVTrunc should reject equal widths")
	}
	if _, err := eb.BVTestBit(b8, 8); err == nil {
		t.Error("BVTestBit should reject out of range bits")
	}
	if _, err := eb.Forall(i, eb.BoolVal(true)); err == nil {
		t.Error("Forall should need a quantified variable")
	}
	if _, err := eb.IntegerToBV(i, 0); !errors.Is(err, ErrBadWidth) {
		t.Error("IntegerToBV should reject zero widths")
	}

	arr := eb.Var("arr", ArrayType([]*Type{IntType()}, BoolType()))
	if _, err := eb.Select(arr, r); err == nil {
		t.Error("Select should reject wrong index types")
	}
	if _, err := eb.Update(arr, []Expr{i}, i); err == nil {
		t.Error("Update should reject wrong value types")
	}
}

func TestInvolvedInputs(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.Var("a", IntType())
	b := eb.Latch("b", IntType())
	q := eb.QuantVar("q", IntType())

	e, _ := eb.IntAdd(a, b)
	e, _ = eb.IntMul(e, q)
	e, _ = eb.IntAdd(e, a)

	syms := eb.InvolvedInputs(e)
	if len(syms) != 2 {
		t.Errorf("expected 2 inputs, got %d", len(syms))
		return
	}
	names := map[string]bool{}
	for _, s := range syms {
		names[s.Name()] = true
	}
	if !names["a"] || !names["b"] {
		t.Error("missing input")
	}
}

func TestArrayMapBuilder(t *testing.T) {
	eb := NewExprBuilder()

	typ := ArrayType([]*Type{BVType(8)}, IntType())
	dflt := eb.ConstantArray([]*Type{BVType(8)}, eb.IntVal(0))
	e, err := eb.ArrayMap(dflt, []MapEntry{
		{Index: []Value{MakeBV(1, 8)}, Value: eb.IntVal(10)},
		{Index: []Value{MakeBV(1, 8)}, Value: eb.IntVal(20)},
	})
	if isErr(t, err) {
		return
	}
	if !e.Type().Equal(typ) {
		t.Error("invalid type")
	}
	if e.(*ArrayMapExpr).Len() != 1 {
		t.Error("entries with the same index should overwrite each other")
	}

	realIdx := eb.ConstantArray([]*Type{RealType()}, eb.IntVal(0))
	_, err = eb.ArrayMap(realIdx, []MapEntry{
		{Index: []Value{MakeReal(1, 2)}, Value: eb.IntVal(1)},
	})
	if !errors.Is(err, ErrNonLiteralIndex) {
		t.Error("real indices have no literal form")
	}
}

func panics(f func()) (res bool) {
	defer func() {
		if r := recover(); r != nil {
			res = true
		}
	}()
	f()
	return false
}

func TestZeroWidthTypes(t *testing.T) {
	eb := NewExprBuilder()

	bad := []*Type{
		BVType(0),
		ArrayType([]*Type{BVType(0)}, IntType()),
		ArrayType([]*Type{IntType()}, StructType(BoolType(), BVType(0))),
		StructType(IntType(), BVType(0)),
	}
	for _, typ := range bad {
		if !errors.Is(typ.Check(), ErrBadWidth) {
			t.Errorf("%s should be rejected", typ)
		}
		if !panics(func() { eb.Var("x", typ) }) {
			t.Errorf("Var() should reject %s", typ)
		}
		if !panics(func() { eb.Latch("l", typ) }) {
			t.Errorf("Latch() should reject %s", typ)
		}
		if !panics(func() { eb.QuantVar("q", typ) }) {
			t.Errorf("QuantVar() should reject %s", typ)
		}
		if !panics(func() { eb.FnApp("f", typ) }) {
			t.Errorf("FnApp() should reject %s", typ)
		}
		if !panics(func() { DefaultValue(typ) }) {
			t.Errorf("DefaultValue() should reject %s", typ)
		}
	}
	if !panics(func() { eb.ConstantArray([]*Type{BVType(0)}, eb.IntVal(1)) }) {
		t.Error("ConstantArray() should reject zero-width indices")
	}
	if _, err := eb.ArrayFromFn("f", bad[1]); !errors.Is(err, ErrBadWidth) {
		t.Errorf("ArrayFromFn() should reject %s, got %v", bad[1], err)
	}
	if _, err := eb.Lit(MakeBV(1, 0)); !errors.Is(err, ErrBadWidth) {
		t.Errorf("Lit() should reject zero-width values, got %v", err)
	}

	v, err := Ground(Recursive(), eb.Var("x", BVType(8)))
	if isErr(t, err) {
		return
	}
	if v.(*BVValue).Size() != 8 || !v.(*BVValue).IsZero() {
		t.Errorf("unexpected default %s", v)
	}
}

func TestHitRatio(t *testing.T) {
	if r := hitRatio(0, 0); r != 0 {
		t.Errorf("empty caches should report 0, got %f", r)
	}
	if r := hitRatio(1, 4); r != 25 {
		t.Errorf("expected 25, got %f", r)
	}

	// must not divide by zero on fresh objects
	NewExprBuilder().PrintStats()
	NewModelEvaluator(nil).PrintStats()
}
