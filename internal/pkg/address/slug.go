package address

import (
	"strings"
	"unicode"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug addresses records by a lower-case form of their display name.
// Slugs are permanent: renaming a record keeps its address.
type Slug struct{}

func (Slug) Name() string    { return SchemeSlug }
func (Slug) Keyed() bool     { return true }
func (Slug) Deletable() bool { return true }

func (Slug) Canonical(s string) bool {
	return s != "" && Slugify(s) == s
}

func (s Slug) Assign(name, requested string, existing []string) (string, error) {
	addr := Slugify(name)
	if requested != "" {
		if !s.Canonical(requested) {
			return "", xerrors.Invalid("address %q is not a valid slug (try %q)", requested, Slugify(requested))
		}
		addr = requested
	}
	if addr == "" {
		return "", xerrors.Invalid("name %q does not produce a usable address", name)
	}
	for _, taken := range existing {
		if taken == addr {
			return "", conflict(addr)
		}
	}
	return addr, nil
}

// Slugify folds accents, lower-cases, turns whitespace and hyphen runs into a
// single '-' and strips everything that is not a letter or a digit. Latin
// letters without a decomposition are transliterated; other scripts are kept.
func Slugify(name string) string {
	// transform chains keep state, so build one per call
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			if t, ok := transliterations[r]; ok {
				b.WriteString(t)
			} else {
				b.WriteRune(r)
			}
		case r == '-' || unicode.IsSpace(r):
			dash = true
		}
	}
	return b.String()
}

var transliterations = map[rune]string{
	'ß': "ss",
	'ł': "l",
	'ø': "o",
	'æ': "ae",
	'œ': "oe",
	'đ': "d",
	'ð': "d",
	'þ': "th",
	'ħ': "h",
	'ı': "i",
	'ŧ': "t",
}
