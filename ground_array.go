package groundeval

func groundArrayApp(g Grounder, e *AppExpr) (Value, bool, error) {
	switch e.op {
	case OP_CONST_ARRAY:
		// the fill is grounded once and shared by every index
		fill, ok, err := operand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		return &ArrayValue{typ: e.typ, fn: func([]Value) (Value, error) { return fill, nil }}, true, nil
	case OP_SELECT:
		arr, ok, err := arrayOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		idx, ok, err := operands(g, e.args[1:])
		if !ok {
			return nil, false, err
		}
		v, err := arr.Select(idx)
		if err != nil {
			return nil, false, asGroundError(e, ErrTypeMismatch, err)
		}
		return v, true, nil
	case OP_UPDATE:
		return groundUpdate(g, e)
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}

// groundUpdate builds a function answering the updated value at the update
// index and deferring to the original array elsewhere. Index types without a
// literal form only fail once an index is actually queried.
func groundUpdate(g Grounder, e *AppExpr) (Value, bool, error) {
	n := len(e.args)
	arr, ok, err := arrayOperand(g, e.args[0])
	if !ok {
		return nil, false, err
	}
	at, ok, err := operands(g, e.args[1:n-1])
	if !ok {
		return nil, false, err
	}
	val, ok, err := operand(g, e.args[n-1])
	if !ok {
		return nil, false, err
	}

	fn := func(index []Value) (Value, error) {
		for _, t := range e.typ.Index() {
			if !t.IsLiteralIndex() {
				return nil, hardFailure(e, ErrNonLiteralIndex, "cannot compare indices of type %s", t)
			}
		}
		k1, _ := IndexKeyOf(at)
		k2, _ := IndexKeyOf(index)
		if k1.Equal(k2) {
			return val, nil
		}
		return arr.Select(index)
	}
	return &ArrayValue{typ: e.typ, fn: fn}, true, nil
}

// groundArrayMap grounds every overlay entry and the default array. Lookups
// that have no literal key, or whose key is absent, fall through to the
// default silently.
func groundArrayMap(g Grounder, e *ArrayMapExpr) (Value, bool, error) {
	table := newIndexTable[Value]()
	for _, ent := range e.entries.entries {
		v, ok, err := operand(g, ent.val)
		if !ok {
			return nil, false, err
		}
		table.insert(ent.key, v)
	}
	dflt, ok, err := arrayOperand(g, e.dflt)
	if !ok {
		return nil, false, err
	}

	fn := func(index []Value) (Value, error) {
		if key, isLit := IndexKeyOf(index); isLit {
			if v, found := table.lookup(key); found {
				return v, nil
			}
		}
		return dflt.Select(index)
	}
	return &ArrayValue{typ: e.typ, fn: fn}, true, nil
}
