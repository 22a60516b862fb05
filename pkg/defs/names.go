package defs

import (
	"fmt"
	"strings"
)

// NamePrep trims a key name and checks it against the naming rules for a
// field of the given width. The returned name keeps its original case.
//
// A valid name is 1..width-1 bytes long, starts with a letter or digit, and
// contains only letters, digits, single blanks and the characters "_-.$:;/()+,".
func NamePrep(name string, width int) (string, error) {
	name = strings.Trim(name, " \t")
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) >= width {
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidName, name, width-1)
	}
	if !isAlnum(name[0]) {
		return "", fmt.Errorf("%w: %q must start with a letter or digit", ErrInvalidName, name)
	}
	prev := byte(0)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isAlnum(c):
		case c == ' ':
			if prev == ' ' {
				return "", fmt.Errorf("%w: %q contains consecutive blanks", ErrInvalidName, name)
			}
		case strings.IndexByte("_-.$:;/()+,", c) >= 0:
		default:
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, c)
		}
		prev = c
	}
	return name, nil
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// CompareKeys orders two key names ignoring ASCII case.
func CompareKeys(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := upper(a[i]), upper(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// EqualKeys reports whether two key names are equal ignoring ASCII case.
func EqualKeys(a, b string) bool {
	return len(a) == len(b) && CompareKeys(a, b) == 0
}
