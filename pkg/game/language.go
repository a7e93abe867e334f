package game

import (
	"fmt"

	"golang.org/x/text/language"
)

// Language is the reply language of a game session. Two modes are
// supported; all deterministic text paths branch identically for both.
type Language string

const (
	LanguageJA Language = "ja"
	LanguageEN Language = "en"
)

var supported = language.NewMatcher([]language.Tag{
	language.Japanese, // first entry is the fallback
	language.English,
})

// ParseLanguage resolves a BCP 47 tag (or bare "ja"/"en") to a supported
// language mode. Unrecognized input is an error rather than a silent
// fallback so a typo in a request surfaces as a 400.
func ParseLanguage(s string) (Language, error) {
	if s == "" {
		return LanguageJA, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("unsupported language_mode %q", s)
	}
	_, index, conf := supported.Match(tag)
	if conf == language.No {
		return "", fmt.Errorf("unsupported language_mode %q", s)
	}
	if index == 1 {
		return LanguageEN, nil
	}
	return LanguageJA, nil
}

// Valid reports whether l is one of the supported modes.
func (l Language) Valid() bool {
	return l == LanguageJA || l == LanguageEN
}
