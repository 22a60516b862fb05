package catalog

import (
	"fmt"
	"strings"

	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
)

// protectGuard vets a mutation of key against the protection policy.
// New keys are only checked for the unique character, and only when
// adding is true.
func protectGuard[T any, P record[T]](c *Catalog, key string, adding bool) dict.Guard[T] {
	return func(existing *T) error {
		if existing == nil {
			if adding && c.policy.Unique != 0 && !strings.ContainsRune(key, c.policy.Unique) {
				return fmt.Errorf("%w: %q does not contain %q", ErrUnique, key, c.policy.Unique)
			}
			return nil
		}
		return c.checkProtection(P(existing).Protection())
	}
}

// checkProtection applies the policy to the protect field of an existing
// record.
func (c *Catalog) checkProtection(protect int32) error {
	if protect == defs.Distribution {
		return ErrProtected
	}
	if c.policy.Protect <= 0 || protect <= defs.Distribution {
		return nil
	}
	if age := c.today() - protect; age < int32(c.policy.Protect) {
		return fmt.Errorf("%w: modified %d days ago, window is %d days", ErrAgeProtected, age, c.policy.Protect)
	}
	return nil
}
