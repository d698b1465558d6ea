// Package format holds the primitive type catalog of record fields and the
// enumerations shared by the record decoder and the archive codec.
package format

import (
	"github.com/arloliu/structarray/errs"
)

// Code is a primitive scalar type code as written in layout files.
//
// The letter gives the kind (N unsigned, Z signed, R IEEE 754 float, P pointer
// placeholder) and the digit gives the width in bytes.
type Code uint8

const (
	Invalid Code = iota
	N1
	N2
	N4
	N8
	Z1
	Z2
	Z4
	Z8
	R4
	R8
	P4
	P8
)

type kind uint8

const (
	kindUnsigned kind = iota + 1
	kindSigned
	kindFloat
	kindPointer
)

type codeInfo struct {
	name  string
	width int
	kind  kind
}

var catalog = [...]codeInfo{
	Invalid: {name: "??", width: 0},
	N1:      {name: "N1", width: 1, kind: kindUnsigned},
	N2:      {name: "N2", width: 2, kind: kindUnsigned},
	N4:      {name: "N4", width: 4, kind: kindUnsigned},
	N8:      {name: "N8", width: 8, kind: kindUnsigned},
	Z1:      {name: "Z1", width: 1, kind: kindSigned},
	Z2:      {name: "Z2", width: 2, kind: kindSigned},
	Z4:      {name: "Z4", width: 4, kind: kindSigned},
	Z8:      {name: "Z8", width: 8, kind: kindSigned},
	R4:      {name: "R4", width: 4, kind: kindFloat},
	R8:      {name: "R8", width: 8, kind: kindFloat},
	P4:      {name: "P4", width: 4, kind: kindPointer},
	P8:      {name: "P8", width: 8, kind: kindPointer},
}

// dataCodes is the order in which the archive groups fields by type.
var dataCodes = []Code{R8, R4, Z8, Z4, Z2, Z1, N8, N4, N2, N1}

// ParseCode parses a layout type code such as "Z4".
func ParseCode(s string) (Code, error) {
	for c := N1; c <= P8; c++ {
		if catalog[c].name == s {
			return c, nil
		}
	}

	return Invalid, errs.ErrUnknownTypeCode
}

// DataCodes returns every non-pointer code in archive grouping order.
func DataCodes() []Code {
	out := make([]Code, len(dataCodes))
	copy(out, dataCodes)

	return out
}

// IsValid reports whether c belongs to the catalog.
func (c Code) IsValid() bool {
	return c >= N1 && c <= P8
}

// String returns the layout spelling of the code.
func (c Code) String() string {
	if !c.IsValid() {
		return catalog[Invalid].name
	}

	return catalog[c].name
}

// Width returns the size in bytes of one element, or 0 for an invalid code.
func (c Code) Width() int {
	if !c.IsValid() {
		return 0
	}

	return catalog[c].width
}

// IsPointer reports whether the code is a layout-only pointer placeholder.
func (c Code) IsPointer() bool {
	return c.IsValid() && catalog[c].kind == kindPointer
}

// IsSigned reports whether the code is a signed integer.
func (c Code) IsSigned() bool {
	return c.IsValid() && catalog[c].kind == kindSigned
}

// IsUnsigned reports whether the code is an unsigned integer.
func (c Code) IsUnsigned() bool {
	return c.IsValid() && catalog[c].kind == kindUnsigned
}

// IsFloat reports whether the code is an IEEE 754 float.
func (c Code) IsFloat() bool {
	return c.IsValid() && catalog[c].kind == kindFloat
}

// IsData reports whether fields of this code carry decodable data.
func (c Code) IsData() bool {
	return c.IsValid() && !c.IsPointer()
}
