// Package lang guesses the working language of a user's idea.
package lang

import "strings"

// Code is a working language code.
type Code string

const (
	EN Code = "EN"
	ES Code = "ES"
)

var (
	enMarkers = []string{" the ", " and ", " with ", " poster", "book", "cover", "make", "create", "hi", "hello"}
	esMarkers = []string{" el ", " la ", " y ", " con ", " póster", "poster", "libro", "portada", "crear", "hola", "buenas"}
)

// Detect counts how many marker substrings of each language appear in the
// lowercased text. Each marker counts once no matter how often it repeats.
// Space-bounded markers only match inside the text, never at its edges. Ties,
// including no markers at all, resolve to ES.
func Detect(text string) Code {
	t := strings.ToLower(text)
	if score(t, enMarkers) > score(t, esMarkers) {
		return EN
	}
	return ES
}

func score(text string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(text, m) {
			n++
		}
	}
	return n
}

// Parse maps a loosely written code ("en", "es-MX") onto a Code, defaulting to ES.
func Parse(s string) Code {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "EN") {
		return EN
	}
	return ES
}
