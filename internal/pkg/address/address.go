// Package address implements the two addressing policies for agent records:
// positional indexes and name-derived slugs.
package address

import (
	"fmt"
	"strings"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
)

const (
	SchemePositional = "positional"
	SchemeSlug       = "slug"
)

// Scheme decides how a record is addressed.
type Scheme interface {
	Name() string
	// Keyed reports whether the collection is persisted as a map keyed by
	// address rather than as an ordered array.
	Keyed() bool
	// Assign computes the address of a new record. existing holds the
	// current addresses in store order.
	Assign(name, requested string, existing []string) (string, error)
	// Canonical reports whether s is a well-formed address for this scheme.
	Canonical(s string) bool
	// Deletable reports whether records may be removed without shifting
	// other addresses.
	Deletable() bool
}

// New returns the scheme registered under name.
func New(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SchemeSlug, "":
		return Slug{}, nil
	case SchemePositional, "index":
		return Positional{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", name)
	}
}

// CanonicalURL is the public card URL for an address.
func CanonicalURL(baseURL, address string) string {
	return strings.TrimRight(baseURL, "/") + "/card/" + address
}

func conflict(address string) error {
	return fmt.Errorf("%w: address %q is already taken", xerrors.ErrConflict, address)
}
