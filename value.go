package groundeval

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is a ground value. The set of implementations is closed: BoolValue,
// *IntValue, *NatValue, *RealValue, *BVValue, *ComplexValue, *ArrayValue and
// *StructValue.
type Value interface {
	Type() *Type
	String() string

	isValue()
}

/*
 *  Int
 */

type IntValue struct {
	value *big.Int
}

func MakeInt(v int64) *IntValue {
	return &IntValue{value: big.NewInt(v)}
}

func MakeIntFromBigint(v *big.Int) *IntValue {
	return &IntValue{value: new(big.Int).Set(v)}
}

func (i *IntValue) Int() *big.Int {
	return new(big.Int).Set(i.value)
}

func (i *IntValue) Type() *Type {
	return intType
}

func (i *IntValue) String() string {
	return i.value.String()
}

func (i *IntValue) isValue() {}

/*
 *  Nat
 */

type NatValue struct {
	value *big.Int
}

func MakeNat(v uint64) *NatValue {
	return &NatValue{value: new(big.Int).SetUint64(v)}
}

func MakeNatFromBigint(v *big.Int) (*NatValue, error) {
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative natural %s", ErrTypeMismatch, v)
	}
	return &NatValue{value: new(big.Int).Set(v)}, nil
}

func (n *NatValue) Int() *big.Int {
	return new(big.Int).Set(n.value)
}

func (n *NatValue) Type() *Type {
	return natType
}

func (n *NatValue) String() string {
	return n.value.String()
}

func (n *NatValue) isValue() {}

/*
 *  Real
 */

type RealValue struct {
	value *big.Rat
}

func MakeReal(num, den int64) *RealValue {
	return &RealValue{value: big.NewRat(num, den)}
}

func MakeRealFromRat(v *big.Rat) *RealValue {
	return &RealValue{value: new(big.Rat).Set(v)}
}

func (r *RealValue) Rat() *big.Rat {
	return new(big.Rat).Set(r.value)
}

func (r *RealValue) Type() *Type {
	return realType
}

func (r *RealValue) String() string {
	return r.value.RatString()
}

func (r *RealValue) isValue() {}

/*
 *  Complex
 */

type ComplexValue struct {
	re, im *big.Rat
}

func MakeComplex(re, im *big.Rat) *ComplexValue {
	return &ComplexValue{re: new(big.Rat).Set(re), im: new(big.Rat).Set(im)}
}

func (c *ComplexValue) Real() *big.Rat {
	return new(big.Rat).Set(c.re)
}

func (c *ComplexValue) Imag() *big.Rat {
	return new(big.Rat).Set(c.im)
}

func (c *ComplexValue) Type() *Type {
	return complexType
}

func (c *ComplexValue) String() string {
	return fmt.Sprintf("%s + %si", c.re.RatString(), c.im.RatString())
}

func (c *ComplexValue) isValue() {}

/*
 *  Array
 */

// ArrayFunc maps an index tuple to a result. It may fail, but it must return
// the same result for the same index during one evaluation.
type ArrayFunc func(index []Value) (Value, error)

// ArrayValue is an array represented as a function from index tuples to
// results. It is never materialised as a table.
type ArrayValue struct {
	typ *Type
	fn  ArrayFunc
}

func NewArrayValue(typ *Type, fn ArrayFunc) (*ArrayValue, error) {
	if typ.Kind() != KIND_ARRAY {
		return nil, fmt.Errorf("%w: %s is not an array type", ErrTypeMismatch, typ)
	}
	return &ArrayValue{typ: typ, fn: fn}, nil
}

// Select applies the array to an index tuple. Both the index and the result
// are checked against the array type.
func (a *ArrayValue) Select(index []Value) (Value, error) {
	idxTypes := a.typ.Index()
	if len(index) != len(idxTypes) {
		return nil, fmt.Errorf("%w: %s indexed with %d values", ErrTypeMismatch, a.typ, len(index))
	}
	for i := 0; i < len(index); i++ {
		if err := CheckValue(idxTypes[i], index[i]); err != nil {
			return nil, err
		}
	}
	v, err := a.fn(index)
	if err != nil {
		return nil, err
	}
	if err := CheckValue(a.typ.Result(), v); err != nil {
		return nil, err
	}
	return v, nil
}

func (a *ArrayValue) Type() *Type {
	return a.typ
}

func (a *ArrayValue) String() string {
	return fmt.Sprintf("<%s fn>", a.typ)
}

func (a *ArrayValue) isValue() {}

/*
 *  Struct
 */

type StructValue struct {
	typ    *Type
	fields []Value
}

func NewStructValue(typ *Type, fields []Value) (*StructValue, error) {
	if typ.Kind() != KIND_STRUCT {
		return nil, fmt.Errorf("%w: %s is not a struct type", ErrTypeMismatch, typ)
	}
	if len(fields) != len(typ.Fields()) {
		return nil, fmt.Errorf("%w: %s built with %d fields", ErrTypeMismatch, typ, len(fields))
	}
	for i := 0; i < len(fields); i++ {
		if err := CheckValue(typ.Fields()[i], fields[i]); err != nil {
			return nil, err
		}
	}
	fs := make([]Value, len(fields))
	copy(fs, fields)
	return &StructValue{typ: typ, fields: fs}, nil
}

func (s *StructValue) Len() int {
	return len(s.fields)
}

func (s *StructValue) Field(i int) Value {
	return s.fields[i]
}

func (s *StructValue) Type() *Type {
	return s.typ
}

func (s *StructValue) String() string {
	b := strings.Builder{}
	b.WriteString("(")
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteString(")")
	return b.String()
}

func (s *StructValue) isValue() {}

// CheckValue verifies that the shape of v matches t.
func CheckValue(t *Type, v Value) error {
	if v == nil {
		return fmt.Errorf("%w: missing value of type %s", ErrTypeMismatch, t)
	}
	if !v.Type().Equal(t) {
		return fmt.Errorf("%w: %s has type %s, expected %s", ErrTypeMismatch, v, v.Type(), t)
	}
	return nil
}

// DefaultValue returns the canonical placeholder value of a type. It panics
// on types rejected by Check.
func DefaultValue(t *Type) Value {
	if err := t.Check(); err != nil {
		panic(fmt.Sprintf("DefaultValue(): %s", err))
	}
	switch t.Kind() {
	case KIND_BOOL:
		return BoolFalse()
	case KIND_INT:
		return MakeInt(0)
	case KIND_NAT:
		return MakeNat(0)
	case KIND_REAL:
		return MakeReal(0, 1)
	case KIND_BV:
		return MakeBV(0, t.Width())
	case KIND_COMPLEX:
		return MakeComplex(new(big.Rat), new(big.Rat))
	case KIND_ARRAY:
		res := DefaultValue(t.Result())
		return &ArrayValue{typ: t, fn: func([]Value) (Value, error) { return res, nil }}
	case KIND_STRUCT:
		fields := make([]Value, len(t.Fields()))
		for i, ft := range t.Fields() {
			fields[i] = DefaultValue(ft)
		}
		return &StructValue{typ: t, fields: fields}
	}
	panic("invalid type kind")
}

// valuesEqual compares two values of the same type. The second result is
// false when the comparison cannot be decided, i.e. when arrays are involved.
func valuesEqual(a, b Value) (bool, bool) {
	switch a := a.(type) {
	case BoolValue:
		return a.Value == b.(BoolValue).Value, true
	case *IntValue:
		return a.value.Cmp(b.(*IntValue).value) == 0, true
	case *NatValue:
		return a.value.Cmp(b.(*NatValue).value) == 0, true
	case *RealValue:
		return a.value.Cmp(b.(*RealValue).value) == 0, true
	case *BVValue:
		return a.Equal(b.(*BVValue)), true
	case *ComplexValue:
		o := b.(*ComplexValue)
		return a.re.Cmp(o.re) == 0 && a.im.Cmp(o.im) == 0, true
	case *StructValue:
		o := b.(*StructValue)
		res := true
		for i := 0; i < len(a.fields); i++ {
			eq, ok := valuesEqual(a.fields[i], o.fields[i])
			if !ok {
				return false, false
			}
			res = res && eq
		}
		return res, true
	}
	return false, false
}
