package groundeval

import (
	"fmt"
	"math/big"
)

const (
	RESULT_ERROR   = 0
	RESULT_SAT     = 1
	RESULT_UNSAT   = 2
	RESULT_UNKNOWN = 3
)

const defaultApproxPrecision = 10

type solverBackend interface {
	clone() solverBackend
	check(constraints []Expr) (int, error)
	model() (*Model, error)
	eval(e Expr, constraints []Expr) (Value, error)
	realRange(e Expr, constraints []Expr, precision int) (*big.Rat, *big.Rat, error)
}

// Solver keeps a set of boolean constraints and answers queries on the
// subset of constraints that shares variables with the query.
//
// It serves as the Fallback of a ModelEvaluator and as RangeBindings for
// real-valued nodes.
type Solver struct {
	eb              *ExprBuilder
	backend         solverBackend
	constraints     map[uintptr]Expr
	symToContraints map[uintptr]map[uintptr]Expr
	symDependencies map[uintptr]map[uintptr]*BoundVar

	// Decimal digits of the bounds reported by RealRange for irrational
	// model values.
	ApproxPrecision int
}

func NewZ3Solver(eb *ExprBuilder) *Solver {
	return &Solver{
		eb:              eb,
		backend:         newZ3Backend(),
		constraints:     make(map[uintptr]Expr),
		symToContraints: make(map[uintptr]map[uintptr]Expr),
		symDependencies: make(map[uintptr]map[uintptr]*BoundVar),
		ApproxPrecision: defaultApproxPrecision,
	}
}

func (s *Solver) Clone() *Solver {
	clone := &Solver{
		eb:              s.eb,
		backend:         s.backend.clone(),
		constraints:     make(map[uintptr]Expr),
		symToContraints: make(map[uintptr]map[uintptr]Expr),
		symDependencies: make(map[uintptr]map[uintptr]*BoundVar),
		ApproxPrecision: s.ApproxPrecision,
	}
	for k, val := range s.constraints {
		clone.constraints[k] = val
	}
	for k1, val1 := range s.symToContraints {
		set := make(map[uintptr]Expr)
		for k2, val2 := range val1 {
			set[k2] = val2
		}
		clone.symToContraints[k1] = set
	}
	for k1, val1 := range s.symDependencies {
		set := make(map[uintptr]*BoundVar)
		for k2, val2 := range val1 {
			set[k2] = val2
		}
		clone.symDependencies[k1] = set
	}
	return clone
}

func (s *Solver) registerConstraintForSym(sym *BoundVar, constraint Expr) {
	if _, ok := s.symToContraints[sym.Id()]; !ok {
		s.symToContraints[sym.Id()] = make(map[uintptr]Expr)
	}
	s.symToContraints[sym.Id()][constraint.Id()] = constraint
}

func (s *Solver) registerSymDepencency(sym1 *BoundVar, sym2 *BoundVar) {
	if _, ok := s.symDependencies[sym1.Id()]; !ok {
		s.symDependencies[sym1.Id()] = make(map[uintptr]*BoundVar)
	}
	if _, ok := s.symDependencies[sym2.Id()]; !ok {
		s.symDependencies[sym2.Id()] = make(map[uintptr]*BoundVar)
	}
	s.symDependencies[sym1.Id()][sym2.Id()] = sym2
	s.symDependencies[sym2.Id()][sym1.Id()] = sym1
}

func (s *Solver) getDependentConstraints(e Expr) []Expr {
	// every constraint related to e, even indirectly
	syms := s.eb.InvolvedInputs(e)
	symsMap := make(map[uintptr]*BoundVar)
	for i := 0; i < len(syms); i++ {
		symsMap[syms[i].Id()] = syms[i]
		for _, osym := range s.symDependencies[syms[i].Id()] {
			symsMap[osym.Id()] = osym
		}
	}

	constraints := make(map[uintptr]Expr)
	for _, sym := range symsMap {
		for _, v := range s.symToContraints[sym.Id()] {
			constraints[v.Id()] = v
		}
	}

	res := make([]Expr, 0, len(constraints))
	for _, c := range constraints {
		res = append(res, c)
	}
	return res
}

func (s *Solver) Add(constraint Expr) error {
	if constraint.Type().Kind() != KIND_BOOL {
		return fmt.Errorf("Add(): %s is not a boolean constraint", constraint)
	}
	if _, ok := s.constraints[constraint.Id()]; ok {
		return nil
	}
	if l, ok := constraint.(*Literal); ok && l.val.(BoolValue).Value {
		return nil
	}
	s.constraints[constraint.Id()] = constraint

	syms := s.eb.InvolvedInputs(constraint)
	for i := 0; i < len(syms); i++ {
		sym := syms[i]
		s.registerConstraintForSym(sym, constraint)
		for j := i + 1; j < len(syms); j++ {
			s.registerSymDepencency(sym, syms[j])
		}
	}
	return nil
}

// Pi returns every constraint added so far.
func (s *Solver) Pi() []Expr {
	res := make([]Expr, 0, len(s.constraints))
	for _, c := range s.constraints {
		res = append(res, c)
	}
	return res
}

func (s *Solver) pi(e Expr) []Expr {
	return s.getDependentConstraints(e)
}

func (s *Solver) Satisfiable() int {
	r, err := s.backend.check(s.Pi())
	if err != nil {
		return RESULT_ERROR
	}
	return r
}

func (s *Solver) CheckSat(query Expr) int {
	if query.Type().Kind() != KIND_BOOL {
		return RESULT_ERROR
	}
	r, err := s.backend.check(append(s.pi(query), query))
	if err != nil {
		return RESULT_ERROR
	}
	return r
}

// Model returns an assignment of the variables of the last satisfiable
// check.
func (s *Solver) Model() (*Model, error) {
	return s.backend.model()
}

// EvalExpr returns a value of e that is consistent with the constraints.
func (s *Solver) EvalExpr(e Expr) (Value, error) {
	return s.backend.eval(e, s.pi(e))
}

// RealRange bounds the value of a real-valued e under the constraints. Exact
// model values give equal bounds.
func (s *Solver) RealRange(e Expr) (*big.Rat, *big.Rat, error) {
	if e.Type().Kind() != KIND_REAL {
		return nil, nil, fmt.Errorf("RealRange(): %s is not real-valued", e)
	}
	precision := s.ApproxPrecision
	if precision <= 0 {
		precision = defaultApproxPrecision
	}
	return s.backend.realRange(e, s.pi(e), precision)
}
