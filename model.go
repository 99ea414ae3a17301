package groundeval

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Model assigns ground values to free variables by name.
type Model struct {
	values map[string]Value
}

func NewModel() *Model {
	return &Model{values: map[string]Value{}}
}

func (m *Model) Set(name string, v Value) {
	m.values[name] = v
}

func (m *Model) Get(name string) (Value, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *Model) Len() int {
	return len(m.values)
}

func (m *Model) String() string {
	names := make([]string, 0, len(m.values))
	for n := range m.values {
		names = append(names, n)
	}
	sort.Strings(names)

	b := strings.Builder{}
	b.WriteString("{")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s: %s", n, m.values[n]))
	}
	b.WriteString("}")
	return b.String()
}

// Fallback evaluates expressions the ground evaluator gives up on, usually
// by asking a solver.
type Fallback interface {
	EvalExpr(e Expr) (Value, error)
}

type ModelEvaluatorStats struct {
	CacheHits     uint
	CacheLookups  uint
	FallbackCalls uint
}

// ModelEvaluator grounds expressions under a model. It memoizes results by
// node identity, so expressions should come from one ExprBuilder.
type ModelEvaluator struct {
	model    *Model
	fallback Fallback

	lock  sync.Mutex
	cache map[uintptr]Value

	Stats ModelEvaluatorStats
}

type ModelEvaluatorOption func(*ModelEvaluator)

func WithFallback(f Fallback) ModelEvaluatorOption {
	return func(me *ModelEvaluator) {
		me.fallback = f
	}
}

func NewModelEvaluator(m *Model, opts ...ModelEvaluatorOption) *ModelEvaluator {
	if m == nil {
		m = NewModel()
	}
	me := &ModelEvaluator{
		model: m,
		cache: map[uintptr]Value{},
	}
	for _, opt := range opts {
		opt(me)
	}
	return me
}

func (me *ModelEvaluator) lookup(e Expr) (Value, bool) {
	me.lock.Lock()
	defer me.lock.Unlock()
	me.Stats.CacheLookups += 1

	v, ok := me.cache[e.Id()]
	if ok {
		me.Stats.CacheHits += 1
	}
	return v, ok
}

func (me *ModelEvaluator) store(e Expr, v Value) {
	me.lock.Lock()
	defer me.lock.Unlock()
	me.cache[e.Id()] = v
}

// GroundExpr implements Grounder. Variables read the model; anything the
// core cannot ground is handed to the fallback, if any.
func (me *ModelEvaluator) GroundExpr(e Expr) (Value, bool, error) {
	if v, ok := me.lookup(e); ok {
		return v, true, nil
	}

	var v Value
	var ok bool
	var err error
	if bv, isVar := e.(*BoundVar); isVar && bv.binding != BIND_QUANTIFIER {
		v, ok, err = me.groundVar(bv)
	} else {
		v, ok, err = TryGround(me, e)
	}
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if me.fallback == nil {
			return nil, false, nil
		}
		me.lock.Lock()
		me.Stats.FallbackCalls += 1
		me.lock.Unlock()

		v, err = me.fallback.EvalExpr(e)
		if err != nil {
			return nil, false, fmt.Errorf("fallback on %s: %w", e, err)
		}
		if err := CheckValue(e.Type(), v); err != nil {
			return nil, false, hardFailure(e, ErrTypeMismatch, "fallback returned %v", v)
		}
	}
	me.store(e, v)
	return v, true, nil
}

func (me *ModelEvaluator) groundVar(v *BoundVar) (Value, bool, error) {
	val, ok := me.model.Get(v.name)
	if !ok {
		return groundBoundVar(v)
	}
	if err := CheckValue(v.typ, val); err != nil {
		return nil, false, hardFailure(v, ErrTypeMismatch, "model assigns %s", val)
	}
	return val, true, nil
}

// Eval grounds e and reports the soft outcome as a *CannotGroundError.
func (me *ModelEvaluator) Eval(e Expr) (Value, error) {
	return groundRoot(me, e)
}

func (me *ModelEvaluator) PrintStats() {
	me.lock.Lock()
	defer me.lock.Unlock()

	fmt.Println("=====================")
	fmt.Println(" ModelEvaluator Stats")
	fmt.Println("=====================")
	fmt.Printf("hits:       %d\n", me.Stats.CacheHits)
	fmt.Printf("hit ratio:  %.03f %%\n", hitRatio(me.Stats.CacheHits, me.Stats.CacheLookups))
	fmt.Printf("fallbacks:  %d\n", me.Stats.FallbackCalls)
	fmt.Printf("num cached: %d\n", len(me.cache))
	fmt.Println("=====================")
}
