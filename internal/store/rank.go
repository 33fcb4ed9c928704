package store

import (
	"errors"
	"fmt"
	"strings"
)

// Order keys ("ranks") are lowercase base36 strings compared lexicographically.
// Inserting between two keys produces a new key without renumbering siblings.

const rankAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ErrInvalidOrderKey is returned when RankBetween is called with inverted
// bounds (a >= b). It is never silently corrected.
var ErrInvalidOrderKey = errors.New("invalid order key range")

// ErrNoRankSpace is returned when the bounds admit no string strictly between
// them (e.g. "y" and "y0": end-of-string sorts before every digit).
var ErrNoRankSpace = errors.New("no space between order keys")

func rankDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	default:
		return 0, false
	}
}

func rankChar(d int) byte {
	if d < 0 {
		d = 0
	}
	if d > 35 {
		d = 35
	}
	return rankAlphabet[d]
}

// RankBetween returns a key strictly between a and b in lexicographic order.
// a may be empty (no lower bound) and b may be empty (no upper bound).
//
// With both bounds empty it returns the canonical midpoint of the alphabet.
// When adjacent digits leave no room at the shared prefix length, the result
// extends length with the alphabet midpoint instead of failing: any extension
// of a is still below b because b already differs at the current position,
// and the midpoint digit leaves room on both sides of the new key.
func RankBetween(a, b string) (string, error) {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a != "" && b != "" && a >= b {
		return "", fmt.Errorf("%w: %q >= %q", ErrInvalidOrderKey, a, b)
	}

	between := func(r string) bool {
		if r == "" {
			return false
		}
		if a != "" && a >= r {
			return false
		}
		if b != "" && r >= b {
			return false
		}
		return true
	}

	prefix := make([]byte, 0, 8)
	for i := 0; i < 256; i++ {
		da := 0
		db := 35
		if i < len(a) {
			v, ok := rankDigit(a[i])
			if !ok {
				return "", fmt.Errorf("%w: bad character %q in %q", ErrInvalidOrderKey, a[i], a)
			}
			da = v
		}
		if i < len(b) {
			v, ok := rankDigit(b[i])
			if !ok {
				return "", fmt.Errorf("%w: bad character %q in %q", ErrInvalidOrderKey, b[i], b)
			}
			db = v
		}

		if da == db {
			prefix = append(prefix, rankChar(da))
			continue
		}

		if db-da > 1 {
			r := string(append(prefix, rankChar(da+(db-da)/2)))
			if !between(r) {
				// Upper bound is a prefix extension of the lower (e.g. "y" < "y0"):
				// no lexicographic string fits strictly between.
				return "", ErrNoRankSpace
			}
			return r, nil
		}

		// Adjacent digits: extend with the alphabet midpoint so the new key
		// keeps room on both sides. Extending with the minimal digit would
		// leave nothing below the result and force a renumber on the next
		// insert against a tightening upper bound.
		var r string
		if i < len(a) {
			r = a + "h"
		} else {
			r = string(append(prefix, rankChar(da), 'h'))
		}
		if !between(r) {
			return "", ErrNoRankSpace
		}
		return r, nil
	}
	return "", ErrNoRankSpace
}

// RankAfter returns a key greater than a (append position).
func RankAfter(a string) (string, error) { return RankBetween(a, "") }

// RankBefore returns a key less than b (prepend position).
func RankBefore(b string) (string, error) { return RankBetween("", b) }

// RankInitial returns the canonical key for the first item of a sibling set.
func RankInitial() (string, error) { return RankBetween("", "") }

// RankBetweenUnique returns a key between lower and upper that is not already
// present in existing. Keys in existing should be normalized (lowercase,
// trimmed); the generated key is normalized before the membership check.
//
// Used to keep newly assigned ranks unique without rewriting siblings that
// already carry duplicate legacy ranks.
func RankBetweenUnique(existing map[string]bool, lower, upper string) (string, error) {
	if existing == nil {
		existing = map[string]bool{}
	}
	lower = strings.ToLower(strings.TrimSpace(lower))
	upper = strings.ToLower(strings.TrimSpace(upper))

	// Tighten the lower bound on collision; RankBetween is strictly between its
	// bounds, so every iteration yields a fresh value.
	cur := lower
	for i := 0; i < 256; i++ {
		r, err := RankBetween(cur, upper)
		if err != nil {
			return "", err
		}
		rn := strings.ToLower(strings.TrimSpace(r))
		if rn == "" {
			return "", errors.New("generated empty rank")
		}
		if !existing[rn] {
			return rn, nil
		}
		cur = rn
	}
	return "", errors.New("unable to find unique rank")
}
