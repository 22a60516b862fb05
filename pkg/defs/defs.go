// Package defs describes the records stored in the geodetic dictionaries:
// coordinate systems, datums, ellipsoids, geodetic transformations and
// geodetic paths.
//
// Every record kind has a fixed on-disk size and a fixed little-endian layout.
// The layouts always begin with the key name followed by an 8 byte fill block
// whose first byte carries the obfuscation key of an encrypted record.
package defs

import (
	"fmt"
	"strings"
	"time"
)

// Field widths. These must never change: they define the on-disk layout.
const (
	KeyWidth      = 24  // legacy key names (Cs, Dt, El)
	LongKeyWidth  = 64  // transformation and path key names
	FillWidth     = 8   // fill block; fill[0] is the obfuscation key
	GroupWidth    = 24  // group and cross-reference key names
	DescWidth     = 64  // descriptions
	SourceWidth   = 64  // source/authority text
	UnitWidth     = 16  // unit names
	GridPathWidth = 128 // grid file paths

	// MaxTransforms caps the number of transformations in a path or bridge.
	MaxTransforms = 8

	// MaxGridFiles is the number of grid file slots in a transformation.
	MaxGridFiles = 4
)

// Dictionary magic numbers, stored little-endian as the first 4 bytes of a file.
const (
	MagicCs uint32 = 0x43534431 // "CSD1"
	MagicDt uint32 = 0x44544431 // "DTD1"
	MagicEl uint32 = 0x454C4431 // "ELD1"
	MagicGx uint32 = 0x47584431 // "GXD1"
	MagicGp uint32 = 0x47504431 // "GPD1"
)

// Kind identifies one of the five dictionaries.
type Kind int

const (
	KindCs Kind = iota
	KindDt
	KindEl
	KindGx
	KindGp
)

// Kinds lists every dictionary kind in dependency order.
var Kinds = []Kind{KindEl, KindDt, KindCs, KindGx, KindGp}

func (k Kind) String() string {
	switch k {
	case KindCs:
		return "cs"
	case KindDt:
		return "dt"
	case KindEl:
		return "el"
	case KindGx:
		return "gx"
	case KindGp:
		return "gp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FileName is the conventional dictionary file name for the kind.
func (k Kind) FileName() string {
	switch k {
	case KindCs:
		return "Coordsys.CSD"
	case KindDt:
		return "Datums.CSD"
	case KindEl:
		return "Elipsoid.CSD"
	case KindGx:
		return "GeodeticTransformation.CSD"
	case KindGp:
		return "GeodeticPath.CSD"
	default:
		return ""
	}
}

// New allocates an empty record of kind k, or nil for an unknown kind.
func (k Kind) New() Record {
	switch k {
	case KindCs:
		return &CsDef{}
	case KindDt:
		return &DtDef{}
	case KindEl:
		return &ElDef{}
	case KindGx:
		return &GxDef{}
	case KindGp:
		return &GpDef{}
	default:
		return nil
	}
}

// ParseKind accepts the short names used by String as well as a few long forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cs", "coordsys", "crs":
		return KindCs, nil
	case "dt", "datum", "datums":
		return KindDt, nil
	case "el", "ellipsoid", "ellipsoids":
		return KindEl, nil
	case "gx", "xform", "transformation", "transformations":
		return KindGx, nil
	case "gp", "path", "paths":
		return KindGp, nil
	}
	return 0, fmt.Errorf("unknown dictionary kind %q", s)
}

// Record is implemented by pointers to every definition type.
type Record interface {
	Key() string
	Protection() int32
	SetProtection(p int32)
}

// Protect values with a fixed meaning.
const (
	Unprotected  int32 = 0
	Distribution int32 = 1
)

// dayEpoch is the number of days from 1970-01-01 to 1990-01-01.
const dayEpoch = 7305

// DayCount returns the protection day count for t: days since 1990-01-01.
func DayCount(t time.Time) int32 {
	return int32(t.Unix()/86400 - dayEpoch)
}

// Direction selects the forward or inverse sense of a transformation.
type Direction int32

const (
	Forward Direction = 0
	Inverse Direction = 1
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Inverse {
		return Forward
	}
	return Inverse
}

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "forward", "fwd", "0":
		*d = Forward
	case "inverse", "inv", "1":
		*d = Inverse
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}
