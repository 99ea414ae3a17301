package groundeval

import (
	"fmt"
	"strings"
)

type TypeKind uint8

const (
	KIND_BOOL TypeKind = iota + 1
	KIND_INT
	KIND_NAT
	KIND_REAL
	KIND_BV
	KIND_COMPLEX
	KIND_ARRAY
	KIND_STRUCT
)

func (k TypeKind) String() string {
	switch k {
	case KIND_BOOL:
		return "Bool"
	case KIND_INT:
		return "Int"
	case KIND_NAT:
		return "Nat"
	case KIND_REAL:
		return "Real"
	case KIND_BV:
		return "BV"
	case KIND_COMPLEX:
		return "Complex"
	case KIND_ARRAY:
		return "Array"
	case KIND_STRUCT:
		return "Struct"
	}
	return fmt.Sprintf("Kind<%d>", uint8(k))
}

// Type is the declared type tag of an expression node. Widths and arities are
// part of the tag.
type Type struct {
	kind   TypeKind
	width  uint
	index  []*Type
	result *Type
	fields []*Type
}

var (
	boolType    = &Type{kind: KIND_BOOL}
	intType     = &Type{kind: KIND_INT}
	natType     = &Type{kind: KIND_NAT}
	realType    = &Type{kind: KIND_REAL}
	complexType = &Type{kind: KIND_COMPLEX}
)

func BoolType() *Type    { return boolType }
func IntType() *Type     { return intType }
func NatType() *Type     { return natType }
func RealType() *Type    { return realType }
func ComplexType() *Type { return complexType }

func BVType(width uint) *Type {
	return &Type{kind: KIND_BV, width: width}
}

func ArrayType(index []*Type, result *Type) *Type {
	idx := make([]*Type, len(index))
	copy(idx, index)
	return &Type{kind: KIND_ARRAY, index: idx, result: result}
}

func StructType(fields ...*Type) *Type {
	fs := make([]*Type, len(fields))
	copy(fs, fields)
	return &Type{kind: KIND_STRUCT, fields: fs}
}

// Check rejects zero-width bit-vectors and missing component types at any
// depth.
func (t *Type) Check() error {
	if t == nil {
		return fmt.Errorf("missing type")
	}
	switch t.kind {
	case KIND_BOOL, KIND_INT, KIND_NAT, KIND_REAL, KIND_COMPLEX:
		return nil
	case KIND_BV:
		if t.width == 0 {
			return fmt.Errorf("%w: zero-width bit-vector", ErrBadWidth)
		}
		return nil
	case KIND_ARRAY:
		for _, i := range t.index {
			if err := i.Check(); err != nil {
				return err
			}
		}
		return t.result.Check()
	case KIND_STRUCT:
		for _, f := range t.fields {
			if err := f.Check(); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("invalid type kind %s", t.kind)
}

func (t *Type) Kind() TypeKind {
	return t.kind
}

// Width is only meaningful for bit-vector types.
func (t *Type) Width() uint {
	return t.width
}

func (t *Type) Index() []*Type {
	return t.index
}

func (t *Type) Result() *Type {
	return t.result
}

func (t *Type) Fields() []*Type {
	return t.fields
}

func (t *Type) IsLiteralIndex() bool {
	return t.kind == KIND_NAT || t.kind == KIND_BV
}

func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KIND_BV:
		return t.width == o.width
	case KIND_ARRAY:
		return typesEqual(t.index, o.index) && t.result.Equal(o.result)
	case KIND_STRUCT:
		return typesEqual(t.fields, o.fields)
	}
	return true
}

// ContainsArray reports whether a value of type t holds an array anywhere.
func (t *Type) ContainsArray() bool {
	switch t.kind {
	case KIND_ARRAY:
		return true
	case KIND_STRUCT:
		for _, f := range t.fields {
			if f.ContainsArray() {
				return true
			}
		}
	}
	return false
}

func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	switch t.kind {
	case KIND_BV:
		return fmt.Sprintf("BV%d", t.width)
	case KIND_ARRAY:
		return fmt.Sprintf("Array[%s -> %s]", typeList(t.index), t.result)
	case KIND_STRUCT:
		return fmt.Sprintf("Struct{%s}", typeList(t.fields))
	}
	return t.kind.String()
}

func typeList(ts []*Type) string {
	b := strings.Builder{}
	for i, t := range ts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	return b.String()
}
