package groundeval

import (
	"errors"
	"fmt"
	"math/big"
)

// Grounder grounds one expression node. The evaluator reaches every operand
// through it and makes no assumption about memoization or effects.
//
// A nil error with ok == false is the soft outcome: the node has no ground
// value offline and the caller may ask a solver instead. A non-nil error is a
// hard failure that aborts the evaluation.
type Grounder interface {
	GroundExpr(e Expr) (v Value, ok bool, err error)
}

type GrounderFunc func(e Expr) (Value, bool, error)

func (f GrounderFunc) GroundExpr(e Expr) (Value, bool, error) {
	return f(e)
}

// RangeBindings reports interval approximations of real-valued nodes, for
// solvers that do not produce exact models. A nil bound is unbounded.
type RangeBindings interface {
	RealRange(e Expr) (lo, hi *big.Rat, err error)
}

type recursive struct{}

func (r recursive) GroundExpr(e Expr) (Value, bool, error) {
	return TryGround(r, e)
}

// Recursive returns a Grounder that evaluates operands with TryGround
// itself. It is enough for closed expressions; free variables ground to the
// default value of their type.
func Recursive() Grounder {
	return recursive{}
}

// TryGround computes the ground value of e, grounding operands through g.
func TryGround(g Grounder, e Expr) (Value, bool, error) {
	switch e := e.(type) {
	case *Literal:
		return e.val, true, nil
	case *BoundVar:
		return groundBoundVar(e)
	case *NonceApp:
		return groundNonceApp(g, e)
	case *AppExpr:
		return groundApp(g, e)
	case *WeightedSumExpr:
		return groundWeightedSum(g, e)
	case *ArrayMapExpr:
		return groundArrayMap(g, e)
	case *BVUnaryExpr:
		return groundBVUnary(g, e)
	}
	return nil, false, fmt.Errorf("%w: unknown expression %T", ErrUnsupported, e)
}

// Ground is TryGround for callers that need an answer: the soft outcome
// becomes a *CannotGroundError.
func Ground(g Grounder, e Expr) (Value, error) {
	v, ok, err := TryGround(g, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CannotGroundError{Expr: e}
	}
	return v, nil
}

// groundRoot grounds e through g itself, so that a memoizing grounder also
// serves the root.
func groundRoot(g Grounder, e Expr) (Value, error) {
	v, ok, err := operand(g, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CannotGroundError{Expr: e}
	}
	return v, nil
}

func groundBoundVar(v *BoundVar) (Value, bool, error) {
	if v.binding == BIND_QUANTIFIER {
		return nil, false, hardFailure(v, ErrQuantifiedVar, "variable %s", v.name)
	}
	// latches and uninterpreted constants may be unconstrained by the model
	return DefaultValue(v.typ), true, nil
}

func groundNonceApp(g Grounder, e *NonceApp) (Value, bool, error) {
	switch e.kind {
	case NONCE_ANNOTATION:
		return operand(g, e.args[0])
	case NONCE_FORALL, NONCE_EXISTS:
		return nil, false, hardFailure(e, ErrUnsupported, "quantifiers")
	case NONCE_ARRAY_FROM_FN:
		return nil, false, hardFailure(e, ErrUnsupported, "arrays built from arbitrary functions")
	case NONCE_MAP_OVER_ARRAYS:
		return nil, false, hardFailure(e, ErrUnsupported, "mapping arbitrary functions over arrays")
	case NONCE_ARRAY_TRUE_ON_ENTRIES:
		return nil, false, hardFailure(e, ErrUnsupported, "arrays true on all entries")
	case NONCE_FN_APP:
		return nil, false, hardFailure(e, ErrUnsupported, "function application of %s", e.name)
	}
	return nil, false, hardFailure(e, ErrUnsupported, "nonce kind %s", e.kind)
}

func groundApp(g Grounder, e *AppExpr) (Value, bool, error) {
	switch {
	case e.op == OP_ITE:
		return groundIte(g, e)
	case e.op == OP_EQ:
		return groundEq(g, e)
	case e.op.inFamily(opBoolBegin, opBoolEnd):
		return groundBoolApp(g, e)
	case e.op.inFamily(opIntBegin, opIntEnd):
		return groundIntApp(g, e)
	case e.op.inFamily(opRealBegin, opRealEnd):
		return groundRealApp(g, e)
	case e.op.inFamily(opBVBegin, opBVEnd):
		return groundBVApp(g, e)
	case e.op.inFamily(opArrayBegin, opArrayEnd):
		return groundArrayApp(g, e)
	case e.op.inFamily(opStructBegin, opStructEnd):
		return groundStructApp(g, e)
	case e.op.inFamily(opConvBegin, opConvEnd):
		return groundConvApp(g, e)
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}

// groundIte grounds only the taken branch. At array type this selects one
// whole function once per evaluation.
func groundIte(g Grounder, e *AppExpr) (Value, bool, error) {
	c, ok, err := boolOperand(g, e.args[0])
	if !ok {
		return nil, false, err
	}
	if c {
		return operand(g, e.args[1])
	}
	return operand(g, e.args[2])
}

// groundEq is soft on anything holding an array, before grounding operands.
func groundEq(g Grounder, e *AppExpr) (Value, bool, error) {
	if e.args[0].Type().ContainsArray() {
		return nil, false, nil
	}
	lhs, ok, err := operand(g, e.args[0])
	if !ok {
		return nil, false, err
	}
	rhs, ok, err := operand(g, e.args[1])
	if !ok {
		return nil, false, err
	}
	eq, ok := valuesEqual(lhs, rhs)
	if !ok {
		return nil, false, nil
	}
	return MakeBool(eq), true, nil
}

/*
 *  Operand access
 */

func operand(g Grounder, e Expr) (Value, bool, error) {
	v, ok, err := g.GroundExpr(e)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if v == nil || !v.Type().Equal(e.Type()) {
		return nil, false, hardFailure(e, ErrTypeMismatch, "grounded to %v", v)
	}
	return v, true, nil
}

func operands(g Grounder, es []Expr) ([]Value, bool, error) {
	res := make([]Value, 0, len(es))
	for _, e := range es {
		v, ok, err := operand(g, e)
		if !ok {
			return nil, false, err
		}
		res = append(res, v)
	}
	return res, true, nil
}

func boolOperand(g Grounder, e Expr) (bool, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return false, false, err
	}
	b, isBool := v.(BoolValue)
	if !isBool {
		return false, false, hardFailure(e, ErrTypeMismatch, "%s is not a boolean", v)
	}
	return b.Value, true, nil
}

// intOperand accepts integers and naturals.
func intOperand(g Grounder, e Expr) (*big.Int, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return nil, false, err
	}
	switch v := v.(type) {
	case *IntValue:
		return v.value, true, nil
	case *NatValue:
		return v.value, true, nil
	}
	return nil, false, hardFailure(e, ErrTypeMismatch, "%s is not an integer", v)
}

func realOperand(g Grounder, e Expr) (*big.Rat, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return nil, false, err
	}
	r, isReal := v.(*RealValue)
	if !isReal {
		return nil, false, hardFailure(e, ErrTypeMismatch, "%s is not a real", v)
	}
	return r.value, true, nil
}

func complexOperand(g Grounder, e Expr) (*ComplexValue, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return nil, false, err
	}
	c, isComplex := v.(*ComplexValue)
	if !isComplex {
		return nil, false, hardFailure(e, ErrTypeMismatch, "%s is not a complex", v)
	}
	return c, true, nil
}

func bvOperand(g Grounder, e Expr) (*BVValue, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return nil, false, err
	}
	bv, isBV := v.(*BVValue)
	if !isBV {
		return nil, false, hardFailure(e, ErrTypeMismatch, "%s is not a bit-vector", v)
	}
	return bv, true, nil
}

func arrayOperand(g Grounder, e Expr) (*ArrayValue, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return nil, false, err
	}
	a, isArray := v.(*ArrayValue)
	if !isArray {
		return nil, false, hardFailure(e, ErrTypeMismatch, "%s is not an array", v)
	}
	return a, true, nil
}

func structOperand(g Grounder, e Expr) (*StructValue, bool, error) {
	v, ok, err := operand(g, e)
	if !ok {
		return nil, false, err
	}
	s, isStruct := v.(*StructValue)
	if !isStruct {
		return nil, false, hardFailure(e, ErrTypeMismatch, "%s is not a struct", v)
	}
	return s, true, nil
}

// asGroundError keeps hard failures raised deeper untouched and attributes
// anything else to e.
func asGroundError(e Expr, sentinel error, err error) error {
	var ge *GroundError
	if errors.As(err, &ge) {
		return err
	}
	return hardFailure(e, sentinel, "%s", err)
}
