// Package history works with the image history field of a user record: a
// single comma-joined string of bracketed image references, oldest first.
// Both "[a],[b],[c]" and the camera app's "[a, b, c]" spellings are accepted.
package history

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
)

var brackets = strings.NewReplacer("[", "", "]", "")

// Parse splits a history field into references, oldest first. Bracket
// characters are removed and blank elements dropped.
func Parse(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		ref := strings.TrimSpace(brackets.Replace(p))
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Format renders refs the way the camera app writes them: "[a, b, c]".
func Format(refs []string) string {
	return "[" + strings.Join(refs, ", ") + "]"
}

// Append adds ref as the newest element of field.
func Append(field, ref string) string {
	return Format(append(Parse(field), ref))
}

// SelectRecent returns the count newest references, newest first.
// When the history holds count references or fewer it returns
// common.ErrInsufficientHistory instead of a shorter list.
func SelectRecent(field string, count int) ([]string, error) {
	refs := Parse(field)
	if len(refs) <= count {
		return nil, common.ErrInsufficientHistory
	}
	return newestFirst(refs, count), nil
}

// All returns every reference, newest first.
func All(field string) []string {
	refs := Parse(field)
	return newestFirst(refs, len(refs))
}

func newestFirst(refs []string, count int) []string {
	out := make([]string, 0, count)
	for i := len(refs) - 1; i >= len(refs)-count; i-- {
		out = append(out, refs[i])
	}
	return out
}

var digits = regexp.MustCompile(`\d+`)

// ParseCount extracts the first run of digits in text as an image count.
// Text without digits yields DefaultImageCount; a count outside
// [1, MaxImageCount] is replaced by DefaultImageCount and reported through
// defaulted so the caller can tell the user.
func ParseCount(text string) (n int, defaulted bool) {
	m := digits.FindString(text)
	if m == "" {
		return common.DefaultImageCount, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		// overflow: far outside the allowed range
		return common.DefaultImageCount, true
	}
	return ClampCount(v)
}

// ClampCount maps counts outside [1, MaxImageCount] to DefaultImageCount.
func ClampCount(n int) (int, bool) {
	if n < 1 || n > common.MaxImageCount {
		return common.DefaultImageCount, true
	}
	return n, false
}
