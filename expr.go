package groundeval

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Op is the operator of an application node. Operators are grouped in
// families delimited by the unexported begin/end markers.
type Op uint8

const (
	opBoolBegin Op = iota
	OP_NOT
	OP_AND
	OP_OR
	OP_XOR
	OP_ITE
	OP_EQ
	opBoolEnd

	opIntBegin
	OP_INT_LE
	OP_INT_ADD
	OP_INT_MUL
	OP_INT_NEG
	OP_INT_DIV
	OP_INT_MOD
	OP_INT_ABS
	OP_INT_DIVISIBLE
	opIntEnd

	opRealBegin
	OP_REAL_LE
	OP_REAL_MUL
	OP_REAL_DIV
	OP_REAL_IS_INT
	OP_REAL_SQRT
	OP_PI
	OP_REAL_SIN
	OP_REAL_COS
	OP_REAL_SINH
	OP_REAL_COSH
	OP_REAL_EXP
	OP_REAL_LOG
	OP_REAL_ATAN2
	OP_COMPLEX
	OP_REAL_PART
	OP_IMAG_PART
	opRealEnd

	opBVBegin
	OP_BV_ULT
	OP_BV_ULE
	OP_BV_SLT
	OP_BV_SLE
	OP_BV_TEST_BIT
	OP_BV_NEG
	OP_BV_NOT
	OP_BV_ADD
	OP_BV_SUB
	OP_BV_MUL
	OP_BV_UDIV
	OP_BV_UREM
	OP_BV_SDIV
	OP_BV_SREM
	OP_BV_AND
	OP_BV_OR
	OP_BV_XOR
	OP_BV_SHL
	OP_BV_LSHR
	OP_BV_ASHR
	OP_BV_ROL
	OP_BV_ROR
	OP_BV_CONCAT
	OP_BV_SELECT
	OP_BV_ZEXT
	OP_BV_SEXT
	OP_BV_TRUNC
	OP_BV_POPCOUNT
	OP_BV_CLZ
	OP_BV_CTZ
	opBVEnd

	opArrayBegin
	OP_CONST_ARRAY
	OP_SELECT
	OP_UPDATE
	opArrayEnd

	opStructBegin
	OP_STRUCT
	OP_FIELD
	opStructEnd

	opConvBegin
	OP_NAT_TO_INT
	OP_INT_TO_REAL
	OP_BV_TO_NAT
	OP_BV_TO_INT
	OP_SBV_TO_INT
	OP_REAL_ROUND
	OP_REAL_ROUND_EVEN
	OP_REAL_FLOOR
	OP_REAL_CEIL
	OP_REAL_TO_INT
	OP_INT_TO_NAT
	OP_INT_TO_SBV
	OP_INT_TO_BV
	opConvEnd
)

var opNames = [...]string{
	OP_NOT: "not", OP_AND: "and", OP_OR: "or", OP_XOR: "xor", OP_ITE: "ite", OP_EQ: "==",

	OP_INT_LE: "<=", OP_INT_ADD: "+", OP_INT_MUL: "*", OP_INT_NEG: "neg", OP_INT_DIV: "div",
	OP_INT_MOD: "mod", OP_INT_ABS: "abs", OP_INT_DIVISIBLE: "divisible",

	OP_REAL_LE: "<=", OP_REAL_MUL: "*", OP_REAL_DIV: "/", OP_REAL_IS_INT: "isInteger",
	OP_REAL_SQRT: "sqrt", OP_PI: "pi", OP_REAL_SIN: "sin", OP_REAL_COS: "cos",
	OP_REAL_SINH: "sinh", OP_REAL_COSH: "cosh", OP_REAL_EXP: "exp", OP_REAL_LOG: "log",
	OP_REAL_ATAN2: "atan2", OP_COMPLEX: "complex", OP_REAL_PART: "realPart",
	OP_IMAG_PART: "imagPart",

	OP_BV_ULT: "u<", OP_BV_ULE: "u<=", OP_BV_SLT: "s<", OP_BV_SLE: "s<=",
	OP_BV_TEST_BIT: "testBit", OP_BV_NEG: "-", OP_BV_NOT: "~", OP_BV_ADD: "+",
	OP_BV_SUB: "-", OP_BV_MUL: "*", OP_BV_UDIV: "u/", OP_BV_UREM: "u%",
	OP_BV_SDIV: "s/", OP_BV_SREM: "s%", OP_BV_AND: "&", OP_BV_OR: "|", OP_BV_XOR: "^",
	OP_BV_SHL: "<<", OP_BV_LSHR: "l>>", OP_BV_ASHR: "a>>", OP_BV_ROL: "rol", OP_BV_ROR: "ror",
	OP_BV_CONCAT: "..", OP_BV_SELECT: "select", OP_BV_ZEXT: "zext", OP_BV_SEXT: "sext",
	OP_BV_TRUNC: "trunc", OP_BV_POPCOUNT: "popcount", OP_BV_CLZ: "clz", OP_BV_CTZ: "ctz",

	OP_CONST_ARRAY: "constArray", OP_SELECT: "select", OP_UPDATE: "update",

	OP_STRUCT: "struct", OP_FIELD: "field",

	OP_NAT_TO_INT: "natToInt", OP_INT_TO_REAL: "intToReal", OP_BV_TO_NAT: "bvToNat",
	OP_BV_TO_INT: "bvToInt", OP_SBV_TO_INT: "sbvToInt", OP_REAL_ROUND: "round",
	OP_REAL_ROUND_EVEN: "roundEven", OP_REAL_FLOOR: "floor", OP_REAL_CEIL: "ceil",
	OP_REAL_TO_INT: "realToInt", OP_INT_TO_NAT: "intToNat", OP_INT_TO_SBV: "intToSBV",
	OP_INT_TO_BV: "intToBV",
}

var infixOps = map[Op]bool{
	OP_EQ: true, OP_INT_LE: true, OP_INT_ADD: true, OP_INT_MUL: true, OP_REAL_LE: true,
	OP_REAL_MUL: true, OP_REAL_DIV: true, OP_BV_ULT: true, OP_BV_ULE: true, OP_BV_SLT: true,
	OP_BV_SLE: true, OP_BV_ADD: true, OP_BV_SUB: true, OP_BV_MUL: true, OP_BV_UDIV: true,
	OP_BV_UREM: true, OP_BV_SDIV: true, OP_BV_SREM: true, OP_BV_AND: true, OP_BV_OR: true,
	OP_BV_XOR: true, OP_BV_SHL: true, OP_BV_LSHR: true, OP_BV_ASHR: true, OP_BV_CONCAT: true,
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op<%d>", uint8(op))
}

func (op Op) inFamily(begin, end Op) bool {
	return op > begin && op < end
}

// Expr is a node of the expression graph. Implementations are closed:
// *Literal, *BoundVar, *AppExpr, *WeightedSumExpr, *ArrayMapExpr,
// *BVUnaryExpr and *NonceApp.
type Expr interface {
	Type() *Type
	String() string
	Id() uintptr
	Children() []Expr
	IsLeaf() bool

	hash() uint64
	shallowEq(Expr) bool
}

func hashChildren(h *xxhash.Digest, children []Expr) {
	raw := make([]byte, 8)
	for _, c := range children {
		binary.BigEndian.PutUint64(raw, uint64(c.Id()))
		h.Write(raw)
	}
}

func sameChildren(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if a[i].Id() != b[i].Id() {
			return false
		}
	}
	return true
}

func wrapOperand(e Expr) string {
	if e.IsLeaf() {
		return e.String()
	}
	return fmt.Sprintf("(%s)", e.String())
}

/*
 *  Literal
 */

type Literal struct {
	val Value
}

func (l *Literal) Value() Value {
	return l.val
}

func (l *Literal) Type() *Type {
	return l.val.Type()
}

func (l *Literal) String() string {
	if bv, ok := l.val.(*BVValue); ok {
		return fmt.Sprintf("0x%x", bv.value)
	}
	return l.val.String()
}

func (l *Literal) Id() uintptr {
	return uintptr(unsafe.Pointer(l))
}

func (l *Literal) Children() []Expr {
	return nil
}

func (l *Literal) IsLeaf() bool {
	return true
}

func (l *Literal) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(l.val.Type().String()))
	h.Write([]byte(l.val.String()))
	return h.Sum64()
}

func (l *Literal) shallowEq(other Expr) bool {
	o, ok := other.(*Literal)
	if !ok || !o.Type().Equal(l.Type()) {
		return false
	}
	eq, ok := valuesEqual(l.val, o.val)
	return ok && eq
}

/*
 *  BoundVar
 */

type BindingKind uint8

const (
	BIND_UNINTERPRETED BindingKind = iota + 1
	BIND_LATCH
	BIND_QUANTIFIER
)

type BoundVar struct {
	name    string
	typ     *Type
	binding BindingKind
}

func (v *BoundVar) Name() string {
	return v.name
}

func (v *BoundVar) Binding() BindingKind {
	return v.binding
}

func (v *BoundVar) Type() *Type {
	return v.typ
}

func (v *BoundVar) String() string {
	return v.name
}

func (v *BoundVar) Id() uintptr {
	return uintptr(unsafe.Pointer(v))
}

func (v *BoundVar) Children() []Expr {
	return nil
}

func (v *BoundVar) IsLeaf() bool {
	return true
}

func (v *BoundVar) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(v.binding)})
	h.Write([]byte(v.name))
	return h.Sum64()
}

func (v *BoundVar) shallowEq(other Expr) bool {
	o, ok := other.(*BoundVar)
	return ok && o.name == v.name && o.binding == v.binding && o.typ.Equal(v.typ)
}

/*
 *  AppExpr
 */

// AppExpr applies an operator to operands. Static arguments (bit indices,
// widths, field numbers) are kept in params.
type AppExpr struct {
	op     Op
	typ    *Type
	args   []Expr
	params []uint
}

func (e *AppExpr) Op() Op {
	return e.op
}

func (e *AppExpr) Args() []Expr {
	return e.args
}

func (e *AppExpr) Param(i int) uint {
	return e.params[i]
}

func (e *AppExpr) Type() *Type {
	return e.typ
}

func (e *AppExpr) String() string {
	b := strings.Builder{}
	if infixOps[e.op] && len(e.args) >= 2 {
		b.WriteString(wrapOperand(e.args[0]))
		for i := 1; i < len(e.args); i++ {
			b.WriteString(fmt.Sprintf(" %s %s", e.op, wrapOperand(e.args[i])))
		}
		return b.String()
	}
	b.WriteString(e.op.String())
	b.WriteString("(")
	n := 0
	for _, p := range e.params {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%d", p))
		n++
	}
	for _, a := range e.args {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
		n++
	}
	b.WriteString(")")
	return b.String()
}

func (e *AppExpr) Id() uintptr {
	return uintptr(unsafe.Pointer(e))
}

func (e *AppExpr) Children() []Expr {
	return e.args
}

func (e *AppExpr) IsLeaf() bool {
	return len(e.args) == 0
}

func (e *AppExpr) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(e.op)})
	h.Write([]byte(e.typ.String()))
	raw := make([]byte, 8)
	for _, p := range e.params {
		binary.BigEndian.PutUint64(raw, uint64(p))
		h.Write(raw)
	}
	hashChildren(h, e.args)
	return h.Sum64()
}

func (e *AppExpr) shallowEq(other Expr) bool {
	o, ok := other.(*AppExpr)
	if !ok || o.op != e.op || !o.typ.Equal(e.typ) || len(o.params) != len(e.params) {
		return false
	}
	for i := 0; i < len(e.params); i++ {
		if e.params[i] != o.params[i] {
			return false
		}
	}
	return sameChildren(e.args, o.args)
}

/*
 *  WeightedSumExpr
 */

type SumTerm struct {
	Coeff *big.Rat
	Term  Expr
}

// WeightedSumExpr is the real linear combination offset + sum(coeff * term).
type WeightedSumExpr struct {
	offset *big.Rat
	terms  []SumTerm
}

func (e *WeightedSumExpr) Offset() *big.Rat {
	return new(big.Rat).Set(e.offset)
}

func (e *WeightedSumExpr) Terms() []SumTerm {
	return e.terms
}

func (e *WeightedSumExpr) Type() *Type {
	return realType
}

func (e *WeightedSumExpr) String() string {
	b := strings.Builder{}
	b.WriteString(e.offset.RatString())
	for _, t := range e.terms {
		b.WriteString(fmt.Sprintf(" + %s*%s", t.Coeff.RatString(), wrapOperand(t.Term)))
	}
	return b.String()
}

func (e *WeightedSumExpr) Id() uintptr {
	return uintptr(unsafe.Pointer(e))
}

func (e *WeightedSumExpr) Children() []Expr {
	res := make([]Expr, 0, len(e.terms))
	for _, t := range e.terms {
		res = append(res, t.Term)
	}
	return res
}

func (e *WeightedSumExpr) IsLeaf() bool {
	return false
}

func (e *WeightedSumExpr) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("wsum"))
	h.Write([]byte(e.offset.RatString()))
	for _, t := range e.terms {
		h.Write([]byte(t.Coeff.RatString()))
	}
	hashChildren(h, e.Children())
	return h.Sum64()
}

func (e *WeightedSumExpr) shallowEq(other Expr) bool {
	o, ok := other.(*WeightedSumExpr)
	if !ok || len(o.terms) != len(e.terms) || o.offset.Cmp(e.offset) != 0 {
		return false
	}
	for i := 0; i < len(e.terms); i++ {
		if e.terms[i].Coeff.Cmp(o.terms[i].Coeff) != 0 {
			return false
		}
	}
	return sameChildren(e.Children(), o.Children())
}

/*
 *  ArrayMapExpr
 */

// ArrayMapExpr overlays a finite map of literal index tuples on a default
// array.
type ArrayMapExpr struct {
	typ     *Type
	entries *indexTable[Expr]
	dflt    Expr
}

func (e *ArrayMapExpr) Default() Expr {
	return e.dflt
}

func (e *ArrayMapExpr) Len() int {
	return e.entries.len()
}

func (e *ArrayMapExpr) Type() *Type {
	return e.typ
}

func (e *ArrayMapExpr) String() string {
	b := strings.Builder{}
	b.WriteString("arrayMap({")
	for i, ent := range e.entries.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s: %s", ent.key, ent.val))
	}
	b.WriteString(fmt.Sprintf("}, %s)", e.dflt))
	return b.String()
}

func (e *ArrayMapExpr) Id() uintptr {
	return uintptr(unsafe.Pointer(e))
}

func (e *ArrayMapExpr) Children() []Expr {
	res := make([]Expr, 0, e.entries.len()+1)
	for _, ent := range e.entries.entries {
		res = append(res, ent.val)
	}
	return append(res, e.dflt)
}

func (e *ArrayMapExpr) IsLeaf() bool {
	return false
}

// Overlays are never hash-consed.
func (e *ArrayMapExpr) hash() uint64 {
	return uint64(e.Id())
}

func (e *ArrayMapExpr) shallowEq(other Expr) bool {
	return other.Id() == e.Id()
}

/*
 *  BVUnaryExpr
 */

type BVUnaryExpr struct {
	u UnaryBV
}

func (e *BVUnaryExpr) Unary() UnaryBV {
	return e.u
}

func (e *BVUnaryExpr) Type() *Type {
	return BVType(e.u.Width())
}

func (e *BVUnaryExpr) String() string {
	return fmt.Sprintf("unary(%s)", e.u)
}

func (e *BVUnaryExpr) Id() uintptr {
	return uintptr(unsafe.Pointer(e))
}

func (e *BVUnaryExpr) Children() []Expr {
	return e.u.Predicates()
}

func (e *BVUnaryExpr) IsLeaf() bool {
	return false
}

func (e *BVUnaryExpr) hash() uint64 {
	return uint64(e.Id())
}

func (e *BVUnaryExpr) shallowEq(other Expr) bool {
	return other.Id() == e.Id()
}

/*
 *  NonceApp
 */

type NonceKind uint8

const (
	NONCE_ANNOTATION NonceKind = iota + 1
	NONCE_FORALL
	NONCE_EXISTS
	NONCE_ARRAY_FROM_FN
	NONCE_MAP_OVER_ARRAYS
	NONCE_ARRAY_TRUE_ON_ENTRIES
	NONCE_FN_APP
)

func (k NonceKind) String() string {
	switch k {
	case NONCE_ANNOTATION:
		return "annotation"
	case NONCE_FORALL:
		return "forall"
	case NONCE_EXISTS:
		return "exists"
	case NONCE_ARRAY_FROM_FN:
		return "arrayFromFn"
	case NONCE_MAP_OVER_ARRAYS:
		return "mapOverArrays"
	case NONCE_ARRAY_TRUE_ON_ENTRIES:
		return "arrayTrueOnEntries"
	case NONCE_FN_APP:
		return "fnApp"
	}
	return fmt.Sprintf("Nonce<%d>", uint8(k))
}

// NonceApp is a node that is unique by construction: quantifiers, function
// symbols and annotations.
type NonceApp struct {
	kind NonceKind
	name string
	typ  *Type
	args []Expr
}

func (e *NonceApp) Kind() NonceKind {
	return e.kind
}

func (e *NonceApp) Name() string {
	return e.name
}

func (e *NonceApp) Type() *Type {
	return e.typ
}

func (e *NonceApp) String() string {
	b := strings.Builder{}
	b.WriteString(e.kind.String())
	if e.name != "" {
		b.WriteString(" " + e.name)
	}
	b.WriteString("(")
	for i, a := range e.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")
	return b.String()
}

func (e *NonceApp) Id() uintptr {
	return uintptr(unsafe.Pointer(e))
}

func (e *NonceApp) Children() []Expr {
	return e.args
}

func (e *NonceApp) IsLeaf() bool {
	return false
}

func (e *NonceApp) hash() uint64 {
	return uint64(e.Id())
}

func (e *NonceApp) shallowEq(other Expr) bool {
	return other.Id() == e.Id()
}
