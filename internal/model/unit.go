// Package model defines the core data structures for the unitprice engine.
package model

import "strings"

// UnitTag is the normalized selling-unit code for a catalog row.
type UnitTag string

// Unit tag constants. The set is closed; anything unrecognized maps to UnitUnspec.
const (
	UnitEA     UnitTag = "EA"
	UnitBox    UnitTag = "BOX"
	UnitPac    UnitTag = "PAC"
	UnitKG     UnitTag = "KG"
	UnitG      UnitTag = "G"
	UnitL      UnitTag = "L"
	UnitML     UnitTag = "ML"
	UnitUnspec UnitTag = "UNSPEC"
)

// ParseUnitTag maps a raw supplier unit code onto the closed tag set.
// Matching is case-insensitive; unknown or empty codes yield UnitUnspec.
func ParseUnitTag(raw string) UnitTag {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "EA":
		return UnitEA
	case "BOX":
		return UnitBox
	case "PAC", "PACK":
		return UnitPac
	case "KG":
		return UnitKG
	case "G":
		return UnitG
	case "L":
		return UnitL
	case "ML":
		return UnitML
	default:
		return UnitUnspec
	}
}

// CanonicalUnit is the unit a price-per-unit is expressed in.
type CanonicalUnit string

// Canonical unit constants.
const (
	Gram       CanonicalUnit = "g"
	Milliliter CanonicalUnit = "ml"
	Piece      CanonicalUnit = "piece"
)
