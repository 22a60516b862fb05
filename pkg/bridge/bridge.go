// Package bridge finds a chain of geodetic transformations leading from one
// datum to another.
//
// A Bridge grows from both ends: steps found from the source side are
// appended to the head, steps found from the target side are prepended to the
// tail, and the bridge is complete once the two open ends name the same datum.
package bridge

import (
	"errors"
	"strings"

	"github.com/samcharles93/geodict/pkg/defs"
)

var (
	ErrNoPath    = errors.New("bridge: no transformation path between datums")
	ErrAmbiguous = errors.New("bridge: more than one geodetic path matches")
	ErrInternal  = errors.New("bridge: internal error")
)

// State is the state of a bridge under construction.
type State int

const (
	Building State = iota
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "building"
	}
}

// Step is one transformation of a bridge.
type Step struct {
	Entry     int            `json:"-"` // position in the transformation index
	Name      string         `json:"transform"`
	Direction defs.Direction `json:"direction"`
	From      string         `json:"from"`
	To        string         `json:"to"`
}

// Bridge is a two-ended chain of transformation steps.
type Bridge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	State  State  `json:"-"`

	head []Step
	tail []Step
}

func newBridge(src, trg string) *Bridge {
	return &Bridge{Source: src, Target: trg}
}

// SourceEnd is the datum at the open end of the head.
func (b *Bridge) SourceEnd() string {
	if n := len(b.head); n > 0 {
		return b.head[n-1].To
	}
	return b.Source
}

// TargetEnd is the datum at the open end of the tail.
func (b *Bridge) TargetEnd() string {
	if len(b.tail) > 0 {
		return b.tail[0].From
	}
	return b.Target
}

// Joined reports whether the two ends meet.
func (b *Bridge) Joined() bool {
	return defs.EqualKeys(b.SourceEnd(), b.TargetEnd())
}

// Len is the total number of steps.
func (b *Bridge) Len() int { return len(b.head) + len(b.tail) }

// Steps returns the steps in application order.
func (b *Bridge) Steps() []Step {
	out := make([]Step, 0, b.Len())
	out = append(out, b.head...)
	return append(out, b.tail...)
}

// Null reports whether the bridge converts nothing.
func (b *Bridge) Null() bool { return b.Len() == 0 }

func (b *Bridge) String() string {
	if b.Null() {
		return b.Source + " = " + b.Target
	}
	var sb strings.Builder
	for i, s := range b.Steps() {
		if i == 0 {
			sb.WriteString(s.From)
		}
		sb.WriteString(" -[")
		sb.WriteString(s.Name)
		if s.Direction == defs.Inverse {
			sb.WriteString(" inv")
		}
		sb.WriteString("]-> ")
		sb.WriteString(s.To)
	}
	return sb.String()
}

func (b *Bridge) contains(name string) bool {
	for _, s := range b.head {
		if defs.EqualKeys(s.Name, name) {
			return true
		}
	}
	for _, s := range b.tail {
		if defs.EqualKeys(s.Name, name) {
			return true
		}
	}
	return false
}

func (b *Bridge) append(s ...Step) {
	b.head = append(b.head, s...)
}

func (b *Bridge) prepend(s Step) {
	b.tail = append([]Step{s}, b.tail...)
}
