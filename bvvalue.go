package groundeval

import (
	"fmt"
	"math/big"
	"math/bits"
)

var zero = big.NewInt(0)
var one = big.NewInt(1)

// BVValue is a fixed-width bit-vector. The stored value is always the
// unsigned residue in [0, 2^size); every operation returns a fresh value.
type BVValue struct {
	size  uint
	mask  *big.Int
	value *big.Int
}

func makeMask(size uint) *big.Int {
	v := new(big.Int).Lsh(one, size)
	return v.Sub(v, one)
}

func MakeBV(value int64, size uint) *BVValue {
	return MakeBVFromBigint(big.NewInt(value), size)
}

// MakeBVFromBigint wraps value into [0, 2^size). Negative values are taken
// in two's complement.
func MakeBVFromBigint(value *big.Int, size uint) *BVValue {
	if size == 0 {
		return nil
	}

	mask := makeMask(size)
	return &BVValue{size: size, mask: mask, value: new(big.Int).And(value, mask)}
}

func (bv *BVValue) Type() *Type {
	return BVType(bv.size)
}

func (bv *BVValue) isValue() {}

func (bv *BVValue) Size() uint {
	return bv.size
}

func (bv *BVValue) Unsigned() *big.Int {
	return new(big.Int).Set(bv.value)
}

// Signed reads bv as a two's-complement number.
func (bv *BVValue) Signed() *big.Int {
	r := new(big.Int).Set(bv.value)
	if bv.IsNegative() {
		r.Sub(r, new(big.Int).Lsh(one, bv.size))
	}
	return r
}

func (bv *BVValue) IsNegative() bool {
	return bv.value.Bit(int(bv.size)-1) == 1
}

func (bv *BVValue) IsZero() bool {
	return bv.value.Sign() == 0
}

func (bv *BVValue) Bit(i uint) bool {
	return bv.value.Bit(int(i)) == 1
}

func (bv *BVValue) String() string {
	return fmt.Sprintf("<BV%d 0x%x>", bv.size, bv.value)
}

func (bv *BVValue) AsULong() uint64 {
	// if the value does not fit in 64 bits, result is undefined
	return bv.value.Uint64()
}

func (bv *BVValue) AsLong() int64 {
	// if the signed value does not fit in 64 bits, result is undefined
	return bv.Signed().Int64()
}

func (bv *BVValue) Equal(o *BVValue) bool {
	return bv.size == o.size && bv.value.Cmp(o.value) == 0
}

func (bv *BVValue) checkSize(o *BVValue) error {
	if bv.size != o.size {
		return fmt.Errorf("different sizes %d and %d", bv.size, o.size)
	}
	return nil
}

func (bv *BVValue) wrap(v *big.Int) *BVValue {
	return MakeBVFromBigint(v, bv.size)
}

func (bv *BVValue) Not() *BVValue {
	return bv.wrap(new(big.Int).Xor(bv.value, bv.mask))
}

func (bv *BVValue) Neg() *BVValue {
	return bv.wrap(new(big.Int).Neg(bv.value))
}

func (bv *BVValue) Add(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	return bv.wrap(new(big.Int).Add(bv.value, o.value)), nil
}

func (bv *BVValue) Sub(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	return bv.wrap(new(big.Int).Sub(bv.value, o.value)), nil
}

func (bv *BVValue) Mul(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	return bv.wrap(new(big.Int).Mul(bv.value, o.value)), nil
}

// UDiv yields 0 when o is zero.
func (bv *BVValue) UDiv(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	if o.IsZero() {
		return MakeBV(0, bv.size), nil
	}
	return bv.wrap(new(big.Int).Quo(bv.value, o.value)), nil
}

// URem yields the dividend when o is zero.
func (bv *BVValue) URem(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	if o.IsZero() {
		return bv.wrap(bv.value), nil
	}
	return bv.wrap(new(big.Int).Rem(bv.value, o.value)), nil
}

// SDiv truncates toward zero; division by zero yields 0.
func (bv *BVValue) SDiv(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	if o.IsZero() {
		return MakeBV(0, bv.size), nil
	}
	return bv.wrap(new(big.Int).Quo(bv.Signed(), o.Signed())), nil
}

// SRem takes the sign of the dividend; division by zero yields the dividend.
func (bv *BVValue) SRem(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	if o.IsZero() {
		return bv.wrap(bv.Signed()), nil
	}
	return bv.wrap(new(big.Int).Rem(bv.Signed(), o.Signed())), nil
}

func (bv *BVValue) And(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	return bv.wrap(new(big.Int).And(bv.value, o.value)), nil
}

func (bv *BVValue) Or(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	return bv.wrap(new(big.Int).Or(bv.value, o.value)), nil
}

func (bv *BVValue) Xor(o *BVValue) (*BVValue, error) {
	if err := bv.checkSize(o); err != nil {
		return nil, err
	}
	return bv.wrap(new(big.Int).Xor(bv.value, o.value)), nil
}

func (bv *BVValue) Shl(n uint) *BVValue {
	if n >= bv.size {
		return MakeBV(0, bv.size)
	}
	return bv.wrap(new(big.Int).Lsh(bv.value, n))
}

func (bv *BVValue) LShr(n uint) *BVValue {
	if n >= bv.size {
		return MakeBV(0, bv.size)
	}
	return bv.wrap(new(big.Int).Rsh(bv.value, n))
}

// AShr shifts the signed reading; big.Int.Rsh rounds toward negative
// infinity, which replicates the sign bit.
func (bv *BVValue) AShr(n uint) *BVValue {
	if n >= bv.size {
		n = bv.size
	}
	return bv.wrap(new(big.Int).Rsh(bv.Signed(), n))
}

func (bv *BVValue) RotL(n uint) *BVValue {
	n %= bv.size
	if n == 0 {
		return bv.wrap(bv.value)
	}
	hi := new(big.Int).Lsh(bv.value, n)
	lo := new(big.Int).Rsh(bv.value, bv.size-n)
	return bv.wrap(hi.Or(hi, lo))
}

func (bv *BVValue) RotR(n uint) *BVValue {
	n %= bv.size
	return bv.RotL(bv.size - n)
}

// Concat places bv above o.
func (bv *BVValue) Concat(o *BVValue) *BVValue {
	v := new(big.Int).Lsh(bv.value, o.size)
	v.Or(v, o.value)
	return MakeBVFromBigint(v, bv.size+o.size)
}

// Select extracts count bits starting at bit start (bit 0 is the least
// significant one).
func (bv *BVValue) Select(start, count uint) (*BVValue, error) {
	if count == 0 || start+count > bv.size {
		return nil, fmt.Errorf("cannot select %d bits from %d of a %d-bit value", count, start, bv.size)
	}
	return MakeBVFromBigint(new(big.Int).Rsh(bv.value, start), count), nil
}

func (bv *BVValue) Slice(high uint, low uint) *BVValue {
	if high < low {
		return nil
	}
	r, err := bv.Select(low, high-low+1)
	if err != nil {
		return nil
	}
	return r
}

func (bv *BVValue) ZExt(size uint) (*BVValue, error) {
	if size < bv.size {
		return nil, fmt.Errorf("cannot zero-extend %d bits to %d", bv.size, size)
	}
	return MakeBVFromBigint(bv.value, size), nil
}

func (bv *BVValue) SExt(size uint) (*BVValue, error) {
	if size < bv.size {
		return nil, fmt.Errorf("cannot sign-extend %d bits to %d", bv.size, size)
	}
	return MakeBVFromBigint(bv.Signed(), size), nil
}

func (bv *BVValue) Trunc(size uint) (*BVValue, error) {
	if size == 0 || size > bv.size {
		return nil, fmt.Errorf("cannot truncate %d bits to %d", bv.size, size)
	}
	return MakeBVFromBigint(bv.value, size), nil
}

func (bv *BVValue) PopCount() *BVValue {
	n := 0
	for _, w := range bv.value.Bits() {
		n += bits.OnesCount(uint(w))
	}
	return MakeBV(int64(n), bv.size)
}

func (bv *BVValue) CountLeadingZeros() *BVValue {
	return MakeBV(int64(bv.size)-int64(bv.value.BitLen()), bv.size)
}

func (bv *BVValue) CountTrailingZeros() *BVValue {
	if bv.IsZero() {
		return MakeBV(int64(bv.size), bv.size)
	}
	return MakeBV(int64(bv.value.TrailingZeroBits()), bv.size)
}

func (bv *BVValue) Eq(o *BVValue) (BoolValue, error) {
	if err := bv.checkSize(o); err != nil {
		return BoolFalse(), err
	}
	return MakeBool(bv.value.Cmp(o.value) == 0), nil
}

func (bv *BVValue) Ult(o *BVValue) (BoolValue, error) {
	if err := bv.checkSize(o); err != nil {
		return BoolFalse(), err
	}
	return MakeBool(bv.value.Cmp(o.value) < 0), nil
}

func (bv *BVValue) Ule(o *BVValue) (BoolValue, error) {
	v, err := o.Ult(bv)
	return v.Not(), err
}

func (bv *BVValue) SLt(o *BVValue) (BoolValue, error) {
	if err := bv.checkSize(o); err != nil {
		return BoolFalse(), err
	}
	return MakeBool(bv.Signed().Cmp(o.Signed()) < 0), nil
}

func (bv *BVValue) SLe(o *BVValue) (BoolValue, error) {
	v, err := o.SLt(bv)
	return v.Not(), err
}
