package groundeval

import (
	"fmt"
	"math/big"
	"sync"
)

type ExprBuilderStats struct {
	CacheHits    uint
	CacheLookups uint
	CachedExprs  uint
}

// ExprBuilder creates well-typed expression nodes. Structurally equal
// application nodes are shared, so node identity (Id) can key caches.
type ExprBuilder struct {
	lock  sync.RWMutex
	cache map[uint64][]Expr

	Stats ExprBuilderStats
}

func NewExprBuilder() *ExprBuilder {
	return &ExprBuilder{
		lock:  sync.RWMutex{},
		cache: map[uint64][]Expr{},
		Stats: ExprBuilderStats{},
	}
}

// hitRatio is a percentage, 0 before the first lookup.
func hitRatio(hits, lookups uint) float64 {
	if lookups == 0 {
		return 0
	}
	return float64(hits) / float64(lookups) * 100
}

func (eb *ExprBuilder) PrintStats() {
	eb.lock.RLock()
	defer eb.lock.RUnlock()

	fmt.Println("=====================")
	fmt.Println("  ExprBuilder Stats")
	fmt.Println("=====================")
	fmt.Printf("hits:       %d\n", eb.Stats.CacheHits)
	fmt.Printf("hit ratio:  %.03f %%\n", hitRatio(eb.Stats.CacheHits, eb.Stats.CacheLookups))
	fmt.Printf("num cached: %d\n", eb.Stats.CachedExprs)
	fmt.Println("=====================")
}

func (eb *ExprBuilder) getOrCreate(e Expr) Expr {
	eb.lock.Lock()
	defer eb.lock.Unlock()
	eb.Stats.CacheLookups += 1

	h := e.hash()
	bucket := eb.cache[h]
	for i := 0; i < len(bucket); i++ {
		if bucket[i].shallowEq(e) {
			eb.Stats.CacheHits += 1
			return bucket[i]
		}
	}
	eb.Stats.CachedExprs += 1
	eb.cache[h] = append(bucket, e)
	return e
}

// InvolvedInputs returns the free variables e depends on.
func (eb *ExprBuilder) InvolvedInputs(e Expr) []*BoundVar {
	queue := make([]Expr, 0)
	visited := make(map[uintptr]bool)
	symbols := make([]*BoundVar, 0)

	queue = append(queue, e)
	for len(queue) > 0 {
		el := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if _, ok := visited[el.Id()]; ok {
			continue
		}
		visited[el.Id()] = true

		if v, ok := el.(*BoundVar); ok {
			if v.binding != BIND_QUANTIFIER {
				symbols = append(symbols, v)
			}
			continue
		}
		queue = append(queue, el.Children()...)
	}
	return symbols
}

func (eb *ExprBuilder) app(op Op, typ *Type, params []uint, args ...Expr) Expr {
	return eb.getOrCreate(&AppExpr{op: op, typ: typ, args: args, params: params})
}

func checkKind(fn string, e Expr, kinds ...TypeKind) error {
	for _, k := range kinds {
		if e.Type().Kind() == k {
			return nil
		}
	}
	return fmt.Errorf("%s(): %s has type %s", fn, e, e.Type())
}

func checkSameType(fn string, a, b Expr) error {
	if !a.Type().Equal(b.Type()) {
		return fmt.Errorf("%s(): different types %s and %s", fn, a.Type(), b.Type())
	}
	return nil
}

// *** Leaves ***

func (eb *ExprBuilder) BoolVal(v bool) Expr {
	return eb.getOrCreate(&Literal{val: MakeBool(v)})
}

func (eb *ExprBuilder) IntVal(v int64) Expr {
	return eb.getOrCreate(&Literal{val: MakeInt(v)})
}

func (eb *ExprBuilder) IntValBig(v *big.Int) Expr {
	return eb.getOrCreate(&Literal{val: MakeIntFromBigint(v)})
}

func (eb *ExprBuilder) NatVal(v uint64) Expr {
	return eb.getOrCreate(&Literal{val: MakeNat(v)})
}

func (eb *ExprBuilder) RealVal(num, den int64) Expr {
	return eb.getOrCreate(&Literal{val: MakeReal(num, den)})
}

func (eb *ExprBuilder) RealValRat(v *big.Rat) Expr {
	return eb.getOrCreate(&Literal{val: MakeRealFromRat(v)})
}

func (eb *ExprBuilder) BVV(val int64, size uint) Expr {
	return eb.BVVBig(big.NewInt(val), size)
}

func (eb *ExprBuilder) BVVBig(val *big.Int, size uint) Expr {
	if size == 0 {
		panic("BVV(): invalid size")
	}
	return eb.getOrCreate(&Literal{val: MakeBVFromBigint(val, size)})
}

// Lit wraps a scalar value (bool, int, nat, real or bit-vector).
func (eb *ExprBuilder) Lit(v Value) (Expr, error) {
	switch v := v.(type) {
	case BoolValue, *IntValue, *NatValue, *RealValue:
		return eb.getOrCreate(&Literal{val: v}), nil
	case *BVValue:
		if v == nil {
			return nil, fmt.Errorf("Lit(): %w: zero-width bit-vector", ErrBadWidth)
		}
		return eb.getOrCreate(&Literal{val: v}), nil
	}
	return nil, fmt.Errorf("Lit(): %s values have no literal form", v.Type())
}

func mustCheckType(fn string, typ *Type) {
	if err := typ.Check(); err != nil {
		panic(fmt.Sprintf("%s(): %s", fn, err))
	}
}

func (eb *ExprBuilder) mkVar(fn string, name string, typ *Type, binding BindingKind) Expr {
	mustCheckType(fn, typ)
	return eb.getOrCreate(&BoundVar{name: name, typ: typ, binding: binding})
}

// Var is an uninterpreted constant, the usual free variable of a query. Like
// BVV it panics on a malformed type.
func (eb *ExprBuilder) Var(name string, typ *Type) Expr {
	return eb.mkVar("Var", name, typ, BIND_UNINTERPRETED)
}

// Latch is a state variable of a transition system.
func (eb *ExprBuilder) Latch(name string, typ *Type) Expr {
	return eb.mkVar("Latch", name, typ, BIND_LATCH)
}

// QuantVar is a variable bound by Forall or Exists.
func (eb *ExprBuilder) QuantVar(name string, typ *Type) Expr {
	return eb.mkVar("QuantVar", name, typ, BIND_QUANTIFIER)
}

// *** Generic ***

func (eb *ExprBuilder) Ite(guard, iftrue, iffalse Expr) (Expr, error) {
	if err := checkKind("Ite", guard, KIND_BOOL); err != nil {
		return nil, err
	}
	if err := checkSameType("Ite", iftrue, iffalse); err != nil {
		return nil, err
	}
	return eb.app(OP_ITE, iftrue.Type(), nil, guard, iftrue, iffalse), nil
}

func (eb *ExprBuilder) Eq(lhs, rhs Expr) (Expr, error) {
	if err := checkSameType("Eq", lhs, rhs); err != nil {
		return nil, err
	}
	return eb.app(OP_EQ, boolType, nil, lhs, rhs), nil
}

// *** Bool ***

func (eb *ExprBuilder) Not(e Expr) (Expr, error) {
	if err := checkKind("Not", e, KIND_BOOL); err != nil {
		return nil, err
	}
	return eb.app(OP_NOT, boolType, nil, e), nil
}

func (eb *ExprBuilder) boolNary(fn string, op Op, args []Expr) (Expr, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s(): not enough children", fn)
	}
	for _, a := range args {
		if err := checkKind(fn, a, KIND_BOOL); err != nil {
			return nil, err
		}
	}
	return eb.app(op, boolType, nil, args...), nil
}

func (eb *ExprBuilder) And(args ...Expr) (Expr, error) {
	return eb.boolNary("And", OP_AND, args)
}

func (eb *ExprBuilder) Or(args ...Expr) (Expr, error) {
	return eb.boolNary("Or", OP_OR, args)
}

func (eb *ExprBuilder) Xor(args ...Expr) (Expr, error) {
	return eb.boolNary("Xor", OP_XOR, args)
}

// *** Int and Nat ***

func (eb *ExprBuilder) intBinary(fn string, op Op, lhs, rhs Expr) (Expr, error) {
	if err := checkKind(fn, lhs, KIND_INT, KIND_NAT); err != nil {
		return nil, err
	}
	if err := checkSameType(fn, lhs, rhs); err != nil {
		return nil, err
	}
	typ := lhs.Type()
	if op == OP_INT_LE {
		typ = boolType
	}
	return eb.app(op, typ, nil, lhs, rhs), nil
}

func (eb *ExprBuilder) IntLe(lhs, rhs Expr) (Expr, error) {
	return eb.intBinary("IntLe", OP_INT_LE, lhs, rhs)
}

func (eb *ExprBuilder) IntAdd(lhs, rhs Expr) (Expr, error) {
	return eb.intBinary("IntAdd", OP_INT_ADD, lhs, rhs)
}

func (eb *ExprBuilder) IntMul(lhs, rhs Expr) (Expr, error) {
	return eb.intBinary("IntMul", OP_INT_MUL, lhs, rhs)
}

func (eb *ExprBuilder) IntDiv(lhs, rhs Expr) (Expr, error) {
	return eb.intBinary("IntDiv", OP_INT_DIV, lhs, rhs)
}

func (eb *ExprBuilder) IntMod(lhs, rhs Expr) (Expr, error) {
	return eb.intBinary("IntMod", OP_INT_MOD, lhs, rhs)
}

func (eb *ExprBuilder) IntNeg(e Expr) (Expr, error) {
	if err := checkKind("IntNeg", e, KIND_INT); err != nil {
		return nil, err
	}
	return eb.app(OP_INT_NEG, intType, nil, e), nil
}

func (eb *ExprBuilder) IntAbs(e Expr) (Expr, error) {
	if err := checkKind("IntAbs", e, KIND_INT); err != nil {
		return nil, err
	}
	return eb.app(OP_INT_ABS, intType, nil, e), nil
}

func (eb *ExprBuilder) IntDivisible(e Expr, k uint) (Expr, error) {
	if err := checkKind("IntDivisible", e, KIND_INT, KIND_NAT); err != nil {
		return nil, err
	}
	return eb.app(OP_INT_DIVISIBLE, boolType, []uint{k}, e), nil
}

// *** Real and Complex ***

func (eb *ExprBuilder) realBinary(fn string, op Op, typ *Type, lhs, rhs Expr) (Expr, error) {
	if err := checkKind(fn, lhs, KIND_REAL); err != nil {
		return nil, err
	}
	if err := checkKind(fn, rhs, KIND_REAL); err != nil {
		return nil, err
	}
	return eb.app(op, typ, nil, lhs, rhs), nil
}

func (eb *ExprBuilder) realUnary(fn string, op Op, typ *Type, e Expr) (Expr, error) {
	if err := checkKind(fn, e, KIND_REAL); err != nil {
		return nil, err
	}
	return eb.app(op, typ, nil, e), nil
}

func (eb *ExprBuilder) RealLe(lhs, rhs Expr) (Expr, error) {
	return eb.realBinary("RealLe", OP_REAL_LE, boolType, lhs, rhs)
}

func (eb *ExprBuilder) RealMul(lhs, rhs Expr) (Expr, error) {
	return eb.realBinary("RealMul", OP_REAL_MUL, realType, lhs, rhs)
}

func (eb *ExprBuilder) RealDiv(lhs, rhs Expr) (Expr, error) {
	return eb.realBinary("RealDiv", OP_REAL_DIV, realType, lhs, rhs)
}

func (eb *ExprBuilder) RealAtan2(y, x Expr) (Expr, error) {
	return eb.realBinary("RealAtan2", OP_REAL_ATAN2, realType, y, x)
}

func (eb *ExprBuilder) RealIsInteger(e Expr) (Expr, error) {
	return eb.realUnary("RealIsInteger", OP_REAL_IS_INT, boolType, e)
}

func (eb *ExprBuilder) RealSqrt(e Expr) (Expr, error) {
	return eb.realUnary("RealSqrt", OP_REAL_SQRT, realType, e)
}

func (eb *ExprBuilder) RealSin(e Expr) (Expr, error) {
	return eb.realUnary("RealSin", OP_REAL_SIN, realType, e)
}

func (eb *ExprBuilder) RealCos(e Expr) (Expr, error) {
	return eb.realUnary("RealCos", OP_REAL_COS, realType, e)
}

func (eb *ExprBuilder) RealSinh(e Expr) (Expr, error) {
	return eb.realUnary("RealSinh", OP_REAL_SINH, realType, e)
}

func (eb *ExprBuilder) RealCosh(e Expr) (Expr, error) {
	return eb.realUnary("RealCosh", OP_REAL_COSH, realType, e)
}

func (eb *ExprBuilder) RealExp(e Expr) (Expr, error) {
	return eb.realUnary("RealExp", OP_REAL_EXP, realType, e)
}

func (eb *ExprBuilder) RealLog(e Expr) (Expr, error) {
	return eb.realUnary("RealLog", OP_REAL_LOG, realType, e)
}

func (eb *ExprBuilder) Pi() Expr {
	return eb.app(OP_PI, realType, nil)
}

// RealSum builds offset + sum(coeff * term).
func (eb *ExprBuilder) RealSum(offset *big.Rat, terms ...SumTerm) (Expr, error) {
	ts := make([]SumTerm, 0, len(terms))
	for _, t := range terms {
		if t.Coeff == nil {
			return nil, fmt.Errorf("RealSum(): missing coefficient for %s", t.Term)
		}
		if err := checkKind("RealSum", t.Term, KIND_REAL); err != nil {
			return nil, err
		}
		ts = append(ts, SumTerm{Coeff: new(big.Rat).Set(t.Coeff), Term: t.Term})
	}
	return eb.getOrCreate(&WeightedSumExpr{offset: new(big.Rat).Set(offset), terms: ts}), nil
}

func (eb *ExprBuilder) RealAdd(lhs, rhs Expr) (Expr, error) {
	return eb.RealSum(new(big.Rat),
		SumTerm{Coeff: big.NewRat(1, 1), Term: lhs},
		SumTerm{Coeff: big.NewRat(1, 1), Term: rhs})
}

func (eb *ExprBuilder) RealSub(lhs, rhs Expr) (Expr, error) {
	return eb.RealSum(new(big.Rat),
		SumTerm{Coeff: big.NewRat(1, 1), Term: lhs},
		SumTerm{Coeff: big.NewRat(-1, 1), Term: rhs})
}

func (eb *ExprBuilder) Complex(re, im Expr) (Expr, error) {
	return eb.realBinary("Complex", OP_COMPLEX, complexType, re, im)
}

func (eb *ExprBuilder) RealPart(e Expr) (Expr, error) {
	if err := checkKind("RealPart", e, KIND_COMPLEX); err != nil {
		return nil, err
	}
	return eb.app(OP_REAL_PART, realType, nil, e), nil
}

func (eb *ExprBuilder) ImagPart(e Expr) (Expr, error) {
	if err := checkKind("ImagPart", e, KIND_COMPLEX); err != nil {
		return nil, err
	}
	return eb.app(OP_IMAG_PART, realType, nil, e), nil
}

// *** Bit-vectors ***

func (eb *ExprBuilder) bvBinary(fn string, op Op, lhs, rhs Expr) (Expr, error) {
	if err := checkKind(fn, lhs, KIND_BV); err != nil {
		return nil, err
	}
	if lhs.Type().Width() != rhs.Type().Width() || rhs.Type().Kind() != KIND_BV {
		return nil, fmt.Errorf("%s(): different sizes", fn)
	}
	typ := lhs.Type()
	if _, ok := bvCompareOps[op]; ok {
		typ = boolType
	}
	return eb.app(op, typ, nil, lhs, rhs), nil
}

func (eb *ExprBuilder) bvUnary(fn string, op Op, e Expr) (Expr, error) {
	if err := checkKind(fn, e, KIND_BV); err != nil {
		return nil, err
	}
	return eb.app(op, e.Type(), nil, e), nil
}

func (eb *ExprBuilder) BVAdd(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVAdd", OP_BV_ADD, lhs, rhs)
}

func (eb *ExprBuilder) BVSub(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVSub", OP_BV_SUB, lhs, rhs)
}

func (eb *ExprBuilder) BVMul(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVMul", OP_BV_MUL, lhs, rhs)
}

func (eb *ExprBuilder) BVUDiv(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVUDiv", OP_BV_UDIV, lhs, rhs)
}

func (eb *ExprBuilder) BVURem(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVURem", OP_BV_UREM, lhs, rhs)
}

func (eb *ExprBuilder) BVSDiv(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVSDiv", OP_BV_SDIV, lhs, rhs)
}

func (eb *ExprBuilder) BVSRem(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVSRem", OP_BV_SREM, lhs, rhs)
}

func (eb *ExprBuilder) BVAnd(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVAnd", OP_BV_AND, lhs, rhs)
}

func (eb *ExprBuilder) BVOr(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVOr", OP_BV_OR, lhs, rhs)
}

func (eb *ExprBuilder) BVXor(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVXor", OP_BV_XOR, lhs, rhs)
}

func (eb *ExprBuilder) BVShl(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVShl", OP_BV_SHL, lhs, rhs)
}

func (eb *ExprBuilder) BVLShr(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVLShr", OP_BV_LSHR, lhs, rhs)
}

func (eb *ExprBuilder) BVAShr(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVAShr", OP_BV_ASHR, lhs, rhs)
}

func (eb *ExprBuilder) BVRol(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVRol", OP_BV_ROL, lhs, rhs)
}

func (eb *ExprBuilder) BVRor(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVRor", OP_BV_ROR, lhs, rhs)
}

func (eb *ExprBuilder) BVUlt(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVUlt", OP_BV_ULT, lhs, rhs)
}

func (eb *ExprBuilder) BVUle(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVUle", OP_BV_ULE, lhs, rhs)
}

func (eb *ExprBuilder) BVSlt(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVSlt", OP_BV_SLT, lhs, rhs)
}

func (eb *ExprBuilder) BVSle(lhs, rhs Expr) (Expr, error) {
	return eb.bvBinary("BVSle", OP_BV_SLE, lhs, rhs)
}

func (eb *ExprBuilder) BVNeg(e Expr) (Expr, error) {
	return eb.bvUnary("BVNeg", OP_BV_NEG, e)
}

func (eb *ExprBuilder) BVNot(e Expr) (Expr, error) {
	return eb.bvUnary("BVNot", OP_BV_NOT, e)
}

func (eb *ExprBuilder) BVPopcount(e Expr) (Expr, error) {
	return eb.bvUnary("BVPopcount", OP_BV_POPCOUNT, e)
}

func (eb *ExprBuilder) BVCountLeadingZeros(e Expr) (Expr, error) {
	return eb.bvUnary("BVCountLeadingZeros", OP_BV_CLZ, e)
}

func (eb *ExprBuilder) BVCountTrailingZeros(e Expr) (Expr, error) {
	return eb.bvUnary("BVCountTrailingZeros", OP_BV_CTZ, e)
}

func (eb *ExprBuilder) BVTestBit(e Expr, i uint) (Expr, error) {
	if err := checkKind("BVTestBit", e, KIND_BV); err != nil {
		return nil, err
	}
	if i >= e.Type().Width() {
		return nil, fmt.Errorf("BVTestBit(): bit %d out of range", i)
	}
	return eb.app(OP_BV_TEST_BIT, boolType, []uint{i}, e), nil
}

// BVConcat places lhs above rhs.
func (eb *ExprBuilder) BVConcat(lhs, rhs Expr) (Expr, error) {
	if err := checkKind("BVConcat", lhs, KIND_BV); err != nil {
		return nil, err
	}
	if err := checkKind("BVConcat", rhs, KIND_BV); err != nil {
		return nil, err
	}
	typ := BVType(lhs.Type().Width() + rhs.Type().Width())
	return eb.app(OP_BV_CONCAT, typ, nil, lhs, rhs), nil
}

// BVSelect extracts count bits starting at bit start.
func (eb *ExprBuilder) BVSelect(e Expr, start, count uint) (Expr, error) {
	if err := checkKind("BVSelect", e, KIND_BV); err != nil {
		return nil, err
	}
	if count == 0 || start+count > e.Type().Width() {
		return nil, fmt.Errorf("BVSelect(): invalid range")
	}
	return eb.app(OP_BV_SELECT, BVType(count), []uint{start, count}, e), nil
}

// Extract is BVSelect with inclusive bit bounds.
func (eb *ExprBuilder) Extract(e Expr, high, low uint) (Expr, error) {
	if high < low {
		return nil, fmt.Errorf("Extract(): high is lower than low")
	}
	return eb.BVSelect(e, low, high-low+1)
}

func (eb *ExprBuilder) resize(fn string, op Op, e Expr, w uint, grow bool) (Expr, error) {
	if err := checkKind(fn, e, KIND_BV); err != nil {
		return nil, err
	}
	old := e.Type().Width()
	if (grow && w <= old) || (!grow && (w == 0 || w >= old)) {
		return nil, fmt.Errorf("%s(): %w from %d to %d bits", fn, ErrBadWidth, old, w)
	}
	return eb.app(op, BVType(w), []uint{w}, e), nil
}

func (eb *ExprBuilder) BVZext(e Expr, w uint) (Expr, error) {
	return eb.resize("BVZext", OP_BV_ZEXT, e, w, true)
}

func (eb *ExprBuilder) BVSext(e Expr, w uint) (Expr, error) {
	return eb.resize("BVSext", OP_BV_SEXT, e, w, true)
}

func (eb *ExprBuilder) BVTrunc(e Expr, w uint) (Expr, error) {
	return eb.resize("BVTrunc", OP_BV_TRUNC, e, w, false)
}

func (eb *ExprBuilder) BVUnary(u UnaryBV) Expr {
	return &BVUnaryExpr{u: u}
}

// *** Arrays ***

func (eb *ExprBuilder) ConstantArray(index []*Type, fill Expr) Expr {
	typ := ArrayType(index, fill.Type())
	mustCheckType("ConstantArray", typ)
	return eb.app(OP_CONST_ARRAY, typ, nil, fill)
}

func checkIndex(fn string, arr Expr, index []Expr) error {
	if err := checkKind(fn, arr, KIND_ARRAY); err != nil {
		return err
	}
	idxTypes := arr.Type().Index()
	if len(index) != len(idxTypes) {
		return fmt.Errorf("%s(): %d indices for %s", fn, len(index), arr.Type())
	}
	for i := 0; i < len(index); i++ {
		if !index[i].Type().Equal(idxTypes[i]) {
			return fmt.Errorf("%s(): index %d has type %s, expected %s", fn, i, index[i].Type(), idxTypes[i])
		}
	}
	return nil
}

func (eb *ExprBuilder) Select(arr Expr, index ...Expr) (Expr, error) {
	if err := checkIndex("Select", arr, index); err != nil {
		return nil, err
	}
	args := append([]Expr{arr}, index...)
	return eb.app(OP_SELECT, arr.Type().Result(), nil, args...), nil
}

func (eb *ExprBuilder) Update(arr Expr, index []Expr, val Expr) (Expr, error) {
	if err := checkIndex("Update", arr, index); err != nil {
		return nil, err
	}
	if !val.Type().Equal(arr.Type().Result()) {
		return nil, fmt.Errorf("Update(): value has type %s, expected %s", val.Type(), arr.Type().Result())
	}
	args := append([]Expr{arr}, index...)
	args = append(args, val)
	return eb.app(OP_UPDATE, arr.Type(), nil, args...), nil
}

type MapEntry struct {
	Index []Value
	Value Expr
}

// ArrayMap overlays entries keyed by literal indices on dflt. Later entries
// win over earlier ones with the same index.
func (eb *ExprBuilder) ArrayMap(dflt Expr, entries []MapEntry) (Expr, error) {
	if err := checkKind("ArrayMap", dflt, KIND_ARRAY); err != nil {
		return nil, err
	}
	typ := dflt.Type()
	table := newIndexTable[Expr]()
	for _, ent := range entries {
		if len(ent.Index) != len(typ.Index()) {
			return nil, fmt.Errorf("ArrayMap(): %d indices for %s", len(ent.Index), typ)
		}
		for i, v := range ent.Index {
			if err := CheckValue(typ.Index()[i], v); err != nil {
				return nil, fmt.Errorf("ArrayMap(): %w", err)
			}
		}
		key, ok := IndexKeyOf(ent.Index)
		if !ok {
			return nil, fmt.Errorf("ArrayMap(): %w: %s", ErrNonLiteralIndex, typ)
		}
		if !ent.Value.Type().Equal(typ.Result()) {
			return nil, fmt.Errorf("ArrayMap(): value has type %s, expected %s", ent.Value.Type(), typ.Result())
		}
		table.insert(key, ent.Value)
	}
	return &ArrayMapExpr{typ: typ, entries: table, dflt: dflt}, nil
}

// *** Structs ***

func (eb *ExprBuilder) Struct(fields ...Expr) Expr {
	types := make([]*Type, len(fields))
	for i, f := range fields {
		types[i] = f.Type()
	}
	return eb.app(OP_STRUCT, StructType(types...), nil, fields...)
}

func (eb *ExprBuilder) Field(e Expr, i uint) (Expr, error) {
	if err := checkKind("Field", e, KIND_STRUCT); err != nil {
		return nil, err
	}
	fields := e.Type().Fields()
	if int(i) >= len(fields) {
		return nil, fmt.Errorf("Field(): no field %d in %s", i, e.Type())
	}
	return eb.app(OP_FIELD, fields[i], []uint{i}, e), nil
}

// *** Conversions ***

func (eb *ExprBuilder) conv(fn string, op Op, from TypeKind, to *Type, e Expr) (Expr, error) {
	if err := checkKind(fn, e, from); err != nil {
		return nil, err
	}
	var params []uint
	if to.Kind() == KIND_BV {
		params = []uint{to.Width()}
	}
	return eb.app(op, to, params, e), nil
}

func (eb *ExprBuilder) NatToInteger(e Expr) (Expr, error) {
	return eb.conv("NatToInteger", OP_NAT_TO_INT, KIND_NAT, intType, e)
}

func (eb *ExprBuilder) IntegerToReal(e Expr) (Expr, error) {
	return eb.conv("IntegerToReal", OP_INT_TO_REAL, KIND_INT, realType, e)
}

func (eb *ExprBuilder) BVToNat(e Expr) (Expr, error) {
	return eb.conv("BVToNat", OP_BV_TO_NAT, KIND_BV, natType, e)
}

func (eb *ExprBuilder) BVToInteger(e Expr) (Expr, error) {
	return eb.conv("BVToInteger", OP_BV_TO_INT, KIND_BV, intType, e)
}

func (eb *ExprBuilder) SBVToInteger(e Expr) (Expr, error) {
	return eb.conv("SBVToInteger", OP_SBV_TO_INT, KIND_BV, intType, e)
}

func (eb *ExprBuilder) RealRound(e Expr) (Expr, error) {
	return eb.conv("RealRound", OP_REAL_ROUND, KIND_REAL, intType, e)
}

func (eb *ExprBuilder) RealRoundEven(e Expr) (Expr, error) {
	return eb.conv("RealRoundEven", OP_REAL_ROUND_EVEN, KIND_REAL, intType, e)
}

func (eb *ExprBuilder) RealFloor(e Expr) (Expr, error) {
	return eb.conv("RealFloor", OP_REAL_FLOOR, KIND_REAL, intType, e)
}

func (eb *ExprBuilder) RealCeil(e Expr) (Expr, error) {
	return eb.conv("RealCeil", OP_REAL_CEIL, KIND_REAL, intType, e)
}

func (eb *ExprBuilder) RealToInteger(e Expr) (Expr, error) {
	return eb.conv("RealToInteger", OP_REAL_TO_INT, KIND_REAL, intType, e)
}

func (eb *ExprBuilder) IntegerToNat(e Expr) (Expr, error) {
	return eb.conv("IntegerToNat", OP_INT_TO_NAT, KIND_INT, natType, e)
}

func (eb *ExprBuilder) IntegerToSBV(e Expr, w uint) (Expr, error) {
	if w == 0 {
		return nil, fmt.Errorf("IntegerToSBV(): %w", ErrBadWidth)
	}
	return eb.conv("IntegerToSBV", OP_INT_TO_SBV, KIND_INT, BVType(w), e)
}

func (eb *ExprBuilder) IntegerToBV(e Expr, w uint) (Expr, error) {
	if w == 0 {
		return nil, fmt.Errorf("IntegerToBV(): %w", ErrBadWidth)
	}
	return eb.conv("IntegerToBV", OP_INT_TO_BV, KIND_INT, BVType(w), e)
}

// *** Nonce applications ***

func (eb *ExprBuilder) quantifier(fn string, kind NonceKind, v, body Expr) (Expr, error) {
	bv, ok := v.(*BoundVar)
	if !ok || bv.binding != BIND_QUANTIFIER {
		return nil, fmt.Errorf("%s(): %s is not a quantified variable", fn, v)
	}
	if err := checkKind(fn, body, KIND_BOOL); err != nil {
		return nil, err
	}
	return &NonceApp{kind: kind, typ: boolType, args: []Expr{v, body}}, nil
}

func (eb *ExprBuilder) Forall(v, body Expr) (Expr, error) {
	return eb.quantifier("Forall", NONCE_FORALL, v, body)
}

func (eb *ExprBuilder) Exists(v, body Expr) (Expr, error) {
	return eb.quantifier("Exists", NONCE_EXISTS, v, body)
}

// FnApp applies the uninterpreted function name.
func (eb *ExprBuilder) FnApp(name string, result *Type, args ...Expr) Expr {
	mustCheckType("FnApp", result)
	return &NonceApp{kind: NONCE_FN_APP, name: name, typ: result, args: args}
}

// ArrayFromFn turns the uninterpreted function name into an array.
func (eb *ExprBuilder) ArrayFromFn(name string, typ *Type) (Expr, error) {
	if typ.Kind() != KIND_ARRAY {
		return nil, fmt.Errorf("ArrayFromFn(): %s is not an array type", typ)
	}
	if err := typ.Check(); err != nil {
		return nil, fmt.Errorf("ArrayFromFn(): %w", err)
	}
	return &NonceApp{kind: NONCE_ARRAY_FROM_FN, name: name, typ: typ}, nil
}

// MapOverArrays applies the function name pointwise to arrays.
func (eb *ExprBuilder) MapOverArrays(name string, typ *Type, arrays ...Expr) (Expr, error) {
	if typ.Kind() != KIND_ARRAY {
		return nil, fmt.Errorf("MapOverArrays(): %s is not an array type", typ)
	}
	if err := typ.Check(); err != nil {
		return nil, fmt.Errorf("MapOverArrays(): %w", err)
	}
	for _, a := range arrays {
		if err := checkKind("MapOverArrays", a, KIND_ARRAY); err != nil {
			return nil, err
		}
	}
	return &NonceApp{kind: NONCE_MAP_OVER_ARRAYS, name: name, typ: typ, args: arrays}, nil
}

// ArrayTrueOnEntries holds when predicate name holds on every entry of arr.
func (eb *ExprBuilder) ArrayTrueOnEntries(name string, arr Expr) (Expr, error) {
	if err := checkKind("ArrayTrueOnEntries", arr, KIND_ARRAY); err != nil {
		return nil, err
	}
	return &NonceApp{kind: NONCE_ARRAY_TRUE_ON_ENTRIES, name: name, typ: boolType, args: []Expr{arr}}, nil
}

// Annotate wraps e in a fresh node with its own identity and the same value.
func (eb *ExprBuilder) Annotate(e Expr) Expr {
	return &NonceApp{kind: NONCE_ANNOTATION, typ: e.Type(), args: []Expr{e}}
}
