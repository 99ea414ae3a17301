package groundeval

import (
	"math/big"
	"testing"
)

func TestRoundingScenario(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	cases := []struct {
		name string
		e    Expr
		res  int64
	}{
		{"round(2.5)", must(eb.RealRound(eb.RealVal(5, 2))), 3},
		{"round(-2.5)", must(eb.RealRound(eb.RealVal(-5, 2))), -3},
		{"round(2.4)", must(eb.RealRound(eb.RealVal(12, 5))), 2},
		{"floor(-2.5)", must(eb.RealFloor(eb.RealVal(-5, 2))), -3},
		{"ceil(-2.5)", must(eb.RealCeil(eb.RealVal(-5, 2))), -2},
		{"ceil(3)", must(eb.RealCeil(eb.RealVal(3, 1))), 3},
		{"roundEven(2.5)", must(eb.RealRoundEven(eb.RealVal(5, 2))), 2},
		{"roundEven(3.5)", must(eb.RealRoundEven(eb.RealVal(7, 2))), 4},
		{"roundEven(-2.5)", must(eb.RealRoundEven(eb.RealVal(-5, 2))), -2},
		{"roundEven(-2.6)", must(eb.RealRoundEven(eb.RealVal(-13, 5))), -3},
		{"realToInt(-2.5)", must(eb.RealToInteger(eb.RealVal(-5, 2))), -3},
	}
	for _, c := range cases {
		v := mustGround(t, c.e).(*IntValue)
		if v.Int().Cmp(big.NewInt(c.res)) != 0 {
			t.Errorf("%s: expected %d, got %s", c.name, c.res, v)
		}
	}
}

func TestIntegerConversions(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	v := mustGround(t, must(eb.SBVToInteger(eb.BVV(0xff, 8)))).(*IntValue)
	if v.Int().Int64() != -1 {
		t.Errorf("expected -1, got %s", v)
	}
	v = mustGround(t, must(eb.BVToInteger(eb.BVV(0xff, 8)))).(*IntValue)
	if v.Int().Int64() != 255 {
		t.Errorf("expected 255, got %s", v)
	}
	n := mustGround(t, must(eb.BVToNat(eb.BVV(0x80, 8)))).(*NatValue)
	if n.Int().Int64() != 128 {
		t.Errorf("expected 128, got %s", n)
	}
	n = mustGround(t, must(eb.IntegerToNat(eb.IntVal(-3)))).(*NatValue)
	if n.Int().Sign() != 0 {
		t.Errorf("negative integers should map to 0, got %s", n)
	}
	v = mustGround(t, must(eb.NatToInteger(eb.NatVal(12)))).(*IntValue)
	if v.Int().Int64() != 12 {
		t.Errorf("expected 12, got %s", v)
	}
	r := mustGround(t, must(eb.IntegerToReal(eb.IntVal(-4)))).(*RealValue)
	if r.Rat().Cmp(big.NewRat(-4, 1)) != 0 {
		t.Errorf("expected -4, got %s", r)
	}
}

func TestIntegerToBVClamps(t *testing.T) {
	eb := NewExprBuilder()
	must := exprOf(t)

	cases := []struct {
		name string
		e    Expr
		res  uint64
	}{
		{"bv(300)", must(eb.IntegerToBV(eb.IntVal(300), 8)), 0xff},
		{"bv(-5)", must(eb.IntegerToBV(eb.IntVal(-5), 8)), 0},
		{"bv(42)", must(eb.IntegerToBV(eb.IntVal(42), 8)), 42},
		{"sbv(-200)", must(eb.IntegerToSBV(eb.IntVal(-200), 8)), 0x80},
		{"sbv(200)", must(eb.IntegerToSBV(eb.IntVal(200), 8)), 0x7f},
		{"sbv(-1)", must(eb.IntegerToSBV(eb.IntVal(-1), 8)), 0xff},
	}
	for _, c := range cases {
		v := mustGround(t, c.e).(*BVValue)
		if v.Size() != 8 || v.AsULong() != c.res {
			t.Errorf("%s: expected 0x%x, got %s", c.name, c.res, v)
		}
	}
}
