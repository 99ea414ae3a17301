package groundeval

type BoolValue struct {
	Value bool
}

func (b BoolValue) Type() *Type {
	return boolType
}

func (b BoolValue) String() string {
	if b.Value {
		return "T"
	}
	return "F"
}

func (b BoolValue) isValue() {}

func BoolTrue() BoolValue {
	return BoolValue{true}
}

func BoolFalse() BoolValue {
	return BoolValue{false}
}

func MakeBool(v bool) BoolValue {
	return BoolValue{v}
}

func (b BoolValue) Not() BoolValue {
	return BoolValue{!b.Value}
}

func (b BoolValue) And(o BoolValue) BoolValue {
	return BoolValue{b.Value && o.Value}
}

func (b BoolValue) Or(o BoolValue) BoolValue {
	return BoolValue{b.Value || o.Value}
}

func (b BoolValue) Xor(o BoolValue) BoolValue {
	return BoolValue{b.Value != o.Value}
}
