package bot

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Intent string

const (
	IntentNone        Intent = "None"
	IntentSignUp      Intent = "SignUp"
	IntentHelp        Intent = "Help"
	IntentCancel      Intent = "Cancel"
	IntentQueryImages Intent = "QueryImages"
)

var (
	signUpPattern = regexp.MustCompile(`^UUID:\s*[A-Za-z0-9]+$`)
	imagesPattern = regexp.MustCompile(`\b(show|send|get|give|see|view|display)\b.*\b(images?|pictures?|photos?|pics?)\b`)
	helpPattern   = regexp.MustCompile(`^(help|\?|what can you do|how does this work)$`)
	cancelPattern = regexp.MustCompile(`^(cancel|stop|unsubscribe|stop notifications)$`)
	trimPunct     = regexp.MustCompile(`[\s.!?,;:]+$`)
)

// Recognizer maps user text to an intent with a fixed rule set.
type Recognizer struct{}

func (Recognizer) Recognize(text string) Intent {
	raw := strings.TrimSpace(text)
	if signUpPattern.MatchString(raw) {
		return IntentSignUp
	}

	n := normalize(raw)
	switch {
	case n == "":
		return IntentNone
	case helpPattern.MatchString(n):
		return IntentHelp
	case cancelPattern.MatchString(n):
		return IntentCancel
	case n == "queryimages", strings.HasPrefix(n, "queryimages "), imagesPattern.MatchString(n):
		return IntentQueryImages
	}
	return IntentNone
}

// SignUpID extracts the device id from "UUID: <id>".
func SignUpID(text string) string {
	_, id, _ := strings.Cut(strings.TrimSpace(text), ":")
	return strings.TrimSpace(id)
}

// ParseConfirm reads a yes/no answer. ok is false when text is neither.
func ParseConfirm(text string) (yes bool, ok bool) {
	switch normalize(text) {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay", "1":
		return true, true
	case "no", "n", "nope", "nah", "2":
		return false, true
	}
	return false, false
}

// normalize folds case, strips accents and trailing punctuation.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.Join(strings.Fields(out), " "))
	return trimPunct.ReplaceAllString(out, "")
}
