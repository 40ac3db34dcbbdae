package address

import (
	"fmt"
	"strconv"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
)

// Positional addresses records by their zero-based insertion index.
// Deleting index k would shift every later address, so deletes are refused.
type Positional struct{}

func (Positional) Name() string    { return SchemePositional }
func (Positional) Keyed() bool     { return false }
func (Positional) Deletable() bool { return false }

func (Positional) Canonical(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && strconv.Itoa(n) == s
}

func (p Positional) Assign(_ string, requested string, existing []string) (string, error) {
	next := strconv.Itoa(len(existing))
	if requested != "" && requested != next {
		if !p.Canonical(requested) {
			return "", xerrors.Invalid("address %q is not a positional index", requested)
		}
		return "", fmt.Errorf("%w: next free position is %s, not %s", xerrors.ErrConflict, next, requested)
	}
	return next, nil
}

// Index parses a positional address.
func Index(s string) (int, bool) {
	if !(Positional{}).Canonical(s) {
		return 0, false
	}
	n, _ := strconv.Atoi(s)
	return n, true
}
