package zarrio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dtype is a Zarr data type: a NumPy array-protocol type string (typestr).
// The format has three parts:
//   - one character describing byte order ("<" little-endian, ">" big-endian,
//     "|" not relevant)
//   - one character code giving the basic type ("u" unsigned, "i" signed,
//     "f" floating point, ...)
//   - an integer giving the number of bytes the type uses
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

func ParseDtype(s string) (dt Dtype, err error) {
	// the Python reference implementation HTML-escapes "<"/">" when
	// serializing JSON; tolerate that here the way the teacher does.
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid dtype string: %q is too short", s)
	}

	boByte, s := s[0], s[1:]
	dt.ByteOrder, err = ParseByteOrder(rune(boByte))
	if err != nil {
		return dt, err
	}

	typeByte, s := s[0], s[1:]
	dt.BasicType, err = ParseBasicType(rune(typeByte))
	if err != nil {
		return dt, err
	}

	size, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return dt, fmt.Errorf("invalid dtype string: %q: %w", s, err)
	}
	dt.ByteSize = int(size)

	return dt, nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return []byte(`"` + dt.String() + `"`), nil
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}
	*dt = t
	return nil
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type code: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return supportedBasicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
}

// Code is the canonical, byte-order-independent element type. Chunk
// assembly uses it only through ByteWidth and copies elements as raw
// bytes; there is no per-type assembly implementation. This is the
// "tagged variant over the ten supported element types" spec.md §9 calls
// for, replacing the ad-hoc numeric-code switch of the C++ original
// (where 1/2/4/8/16/32/64/128/256/512 stood in for u8/u16/u32/u64/i8/
// i16/i32/i64/f32/f64 respectively).
type Code int

const (
	CodeInvalid Code = iota
	CodeU8
	CodeU16
	CodeU32
	CodeU64
	CodeI8
	CodeI16
	CodeI32
	CodeI64
	CodeF32
	CodeF64
)

func (c Code) String() string {
	switch c {
	case CodeU8:
		return "u8"
	case CodeU16:
		return "u16"
	case CodeU32:
		return "u32"
	case CodeU64:
		return "u64"
	case CodeI8:
		return "i8"
	case CodeI16:
		return "i16"
	case CodeI32:
		return "i32"
	case CodeI64:
		return "i64"
	case CodeF32:
		return "f32"
	case CodeF64:
		return "f64"
	default:
		return "invalid"
	}
}

// ByteWidth returns the on-disk size in bytes of one element of this code.
func (c Code) ByteWidth() int {
	switch c {
	case CodeU8, CodeI8:
		return 1
	case CodeU16, CodeI16:
		return 2
	case CodeU32, CodeI32, CodeF32:
		return 4
	case CodeU64, CodeI64, CodeF64:
		return 8
	default:
		return 0
	}
}

// DtypeCode canonicalizes a Zarr dtype string ("<u2", "|i1", ">f8", ...)
// into a Code. This is the dtype_code(name) external collaborator of
// spec.md §6.
func DtypeCode(name string) (Code, error) {
	dt, err := ParseDtype(name)
	if err != nil {
		return CodeInvalid, err
	}
	return dtypeToCode(dt)
}

func dtypeToCode(dt Dtype) (Code, error) {
	switch dt.BasicType {
	case BTUnsigned:
		switch dt.ByteSize {
		case 1:
			return CodeU8, nil
		case 2:
			return CodeU16, nil
		case 4:
			return CodeU32, nil
		case 8:
			return CodeU64, nil
		}
	case BTInteger:
		switch dt.ByteSize {
		case 1:
			return CodeI8, nil
		case 2:
			return CodeI16, nil
		case 4:
			return CodeI32, nil
		case 8:
			return CodeI64, nil
		}
	case BTFloatingPoint:
		switch dt.ByteSize {
		case 4:
			return CodeF32, nil
		case 8:
			return CodeF64, nil
		}
	}
	return CodeInvalid, fmt.Errorf("unsupported element type %q for pyramid composition", dt.String())
}

// ChooseBaseDtype maps an in-memory element type to the on-disk encoded
// Zarr dtype string the compositor writes into its own plate arrays. This
// is the choose_base_dtype(dtype) external collaborator of spec.md §6; the
// plate is always written little-endian regardless of the byte order the
// unit pyramids happened to use.
func ChooseBaseDtype(c Code) (Dtype, error) {
	switch c {
	case CodeU8:
		return Dtype{BOLittleEndian, BTUnsigned, 1}, nil
	case CodeU16:
		return Dtype{BOLittleEndian, BTUnsigned, 2}, nil
	case CodeU32:
		return Dtype{BOLittleEndian, BTUnsigned, 4}, nil
	case CodeU64:
		return Dtype{BOLittleEndian, BTUnsigned, 8}, nil
	case CodeI8:
		return Dtype{BOLittleEndian, BTInteger, 1}, nil
	case CodeI16:
		return Dtype{BOLittleEndian, BTInteger, 2}, nil
	case CodeI32:
		return Dtype{BOLittleEndian, BTInteger, 4}, nil
	case CodeI64:
		return Dtype{BOLittleEndian, BTInteger, 8}, nil
	case CodeF32:
		return Dtype{BOLittleEndian, BTFloatingPoint, 4}, nil
	case CodeF64:
		return Dtype{BOLittleEndian, BTFloatingPoint, 8}, nil
	default:
		return Dtype{}, fmt.Errorf("no base dtype for code %v", c)
	}
}
