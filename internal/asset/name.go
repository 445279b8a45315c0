package asset

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// MaxNameLength bounds a normalized asset name.
const MaxNameLength = 64

// NameSeparator joins the segments of a normalized asset name.
const NameSeparator = '.'

// NormalizeName derives an asset name from arbitrary text: accents are folded
// to ASCII, letters are lowercased, every run of other characters becomes a
// single dot, and leading/trailing dots are dropped. Empty results and results
// longer than MaxNameLength fail with a validation error.
func NormalizeName(raw string) (string, error) {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSeparator := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSeparator && b.Len() > 0 {
				b.WriteRune(NameSeparator)
			}
			pendingSeparator = false
			b.WriteRune(r)
			continue
		}
		pendingSeparator = true
	}

	name := b.String()
	if name == "" {
		return "", foundationerrors.ValidationError("asset name is empty after normalization").
			WithContext("input", raw).
			Build()
	}
	if len(name) > MaxNameLength {
		return "", foundationerrors.ValidationError(fmt.Sprintf("asset name exceeds %d characters", MaxNameLength)).
			WithContext("input", raw).
			WithContext("length", len(name)).
			Build()
	}
	return name, nil
}
