package groundeval

func groundStructApp(g Grounder, e *AppExpr) (Value, bool, error) {
	switch e.op {
	case OP_STRUCT:
		fields, ok, err := operands(g, e.args)
		if !ok {
			return nil, false, err
		}
		s, err := NewStructValue(e.typ, fields)
		if err != nil {
			return nil, false, asGroundError(e, ErrTypeMismatch, err)
		}
		return s, true, nil
	case OP_FIELD:
		s, ok, err := structOperand(g, e.args[0])
		if !ok {
			return nil, false, err
		}
		i := int(e.params[0])
		if i >= s.Len() {
			return nil, false, hardFailure(e, ErrTypeMismatch, "field %d of a %d-field struct", i, s.Len())
		}
		return s.Field(i), true, nil
	}
	return nil, false, hardFailure(e, ErrUnsupported, "operator %s", e.op)
}
