package defs

import "fmt"

// Method identifies the algorithm of a geodetic transformation.
// Keep these stable forever; add new values only.
type Method int32

const (
	MethodNull               Method = 0
	MethodGeocentric         Method = 1  // three parameter geocentric translation
	MethodSevenParameter     Method = 2  // position vector rotation convention
	MethodBursaWolf          Method = 3  // coordinate frame rotation convention
	MethodGridInterpolation  Method = 16 // NADCON, NTv2, RGF and friends
	MethodMultipleRegression Method = 32
)

var methodNames = map[Method]string{
	MethodNull:               "null",
	MethodGeocentric:         "geocentric",
	MethodSevenParameter:     "7parameter",
	MethodBursaWolf:          "bursawolf",
	MethodGridInterpolation:  "gridint",
	MethodMultipleRegression: "mulreg",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int32(m))
}

// Known reports whether m is a method this package can describe.
func (m Method) Known() bool {
	_, ok := methodNames[m]
	return ok
}

// Geocentric reports whether m uses GeocentricParams.
func (m Method) Geocentric() bool {
	switch m {
	case MethodGeocentric, MethodSevenParameter, MethodBursaWolf:
		return true
	}
	return false
}

// ParseMethod maps a method name back to its code.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown transformation method %q", s)
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
