package defs

import "strings"

// UnitType separates linear from angular units.
type UnitType int

const (
	UnitLength UnitType = iota
	UnitAngle
)

// Unit converts a named unit to meters (length) or degrees (angle).
type Unit struct {
	Name   string
	Type   UnitType
	Factor float64
}

var units = []Unit{
	{"METER", UnitLength, 1.0},
	{"KILOMETER", UnitLength, 1000.0},
	{"CENTIMETER", UnitLength, 0.01},
	{"FOOT", UnitLength, 0.3048},
	{"IFOOT", UnitLength, 0.3048},
	{"USSFOOT", UnitLength, 1200.0 / 3937.0},
	{"CHAIN", UnitLength, 20.11684023368047},
	{"LINK", UnitLength, 0.2011684023368047},
	{"YARD", UnitLength, 0.9144},
	{"MILE", UnitLength, 1609.344},
	{"NAUTICALMILE", UnitLength, 1852.0},
	{"DEGREE", UnitAngle, 1.0},
	{"GRAD", UnitAngle, 0.9},
	{"MINUTE", UnitAngle, 1.0 / 60.0},
	{"SECOND", UnitAngle, 1.0 / 3600.0},
	{"RADIAN", UnitAngle, 57.29577951308232},
}

// LookupUnit finds a unit by name, ignoring case.
func LookupUnit(name string) (Unit, bool) {
	name = strings.TrimSpace(name)
	for _, u := range units {
		if EqualKeys(u.Name, name) {
			return u, true
		}
	}
	return Unit{}, false
}
