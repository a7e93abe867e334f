// Package followup implements the wire protocol that embeds up to three
// suggested next questions inside a free-text answer. The block rides at
// the end of the answer body:
//
//	<answer body>
//
//	<FOLLOW_UP_QUESTIONS>
//	Q1: ...
//	Q2: ...
//	</FOLLOW_UP_QUESTIONS>
package followup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

const (
	OpenTag  = "<FOLLOW_UP_QUESTIONS>"
	CloseTag = "</FOLLOW_UP_QUESTIONS>"

	// MaxQuestions is the hard cap on embedded follow-up questions.
	MaxQuestions = 3

	// placeholderBody keeps the encoded body non-blank.
	placeholderBody = "..."
)

var (
	blockRe     = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(OpenTag) + `\s*(.*?)\s*` + regexp.QuoteMeta(CloseTag))
	numberingRe = regexp.MustCompile(`(?i)^q?\s*\d+\s*[:.)\-]\s*`)
)

// Defaults returns the generic follow-up questions for a language.
func Defaults(lang game.Language) []string {
	if lang == game.LanguageEN {
		return []string{
			"Who saw the victim last?",
			"Where were you when it happened?",
			"Who had conflict with the victim?",
		}
	}
	return []string{
		"最後に被害者を見たのは誰？",
		"事件当時、あなたはどこにいた？",
		"被害者と揉めていた人物はいる？",
	}
}

// Heuristic derives three contextual follow-up questions from case data.
// The candidate set rotates on historyCount mod 4, so repeated calls at
// the same history length produce the same questions.
func Heuristic(c *mystery.Case, lang game.Language, historyCount int) []string {
	evidence := c.Evidence[min(historyCount, len(c.Evidence)-1)]
	event := c.Timeline[min(historyCount, len(c.Timeline)-1)]
	victim := c.Victim.Name
	rotation := historyCount % 4

	var candidates []string
	if lang == game.LanguageEN {
		candidates = []string{
			fmt.Sprintf("Who was near %s around %s?", victim, event.Time),
			fmt.Sprintf("Who had the strongest conflict or benefit tied to %s?", victim),
			fmt.Sprintf("How does the evidence '%s' narrow the murder method?", evidence.Name),
			"What concrete steps could create the locked-room trick here?",
		}
	} else {
		candidates = []string{
			fmt.Sprintf("%s前後に%sの近くにいた人物は誰？", event.Time, victim),
			fmt.Sprintf("%sと利害対立が最も強かった人物は誰？", victim),
			fmt.Sprintf("証拠「%s」はどの手口を裏づける？", evidence.Name),
			"この現場で密室トリックを成立させる具体的な手順は？",
		}
	}

	ordered := make([]string, 0, MaxQuestions)
	for offset := 0; offset < MaxQuestions; offset++ {
		ordered = append(ordered, candidates[(rotation+offset)%len(candidates)])
	}
	return ordered
}

// Normalize trims, strips leading numbering and bullet characters,
// de-duplicates by exact text, and caps the list at MaxQuestions. When
// withDefault is set, the result is padded from Defaults.
func Normalize(questions []string, lang game.Language, withDefault bool) []string {
	cleaned := make([]string, 0, MaxQuestions)
	for _, q := range questions {
		line := strings.TrimSpace(q)
		if line == "" {
			continue
		}
		line = numberingRe.ReplaceAllString(line, "")
		line = strings.Trim(line, " ・-")
		if line == "" {
			continue
		}
		if !contains(cleaned, line) {
			cleaned = append(cleaned, line)
		}
		if len(cleaned) >= MaxQuestions {
			break
		}
	}

	if !withDefault {
		return cleaned
	}

	for _, q := range Defaults(lang) {
		if len(cleaned) >= MaxQuestions {
			break
		}
		if !contains(cleaned, q) {
			cleaned = append(cleaned, q)
		}
	}
	return cleaned
}

// Encode appends the follow-up block to an answer body. Questions are
// normalized and numbered from 1; an empty body is replaced with a
// placeholder so the stored text is never blank.
func Encode(answer string, questions []string, lang game.Language) string {
	normalized := Normalize(questions, lang, false)
	body := strings.TrimSpace(answer)
	if body == "" {
		body = placeholderBody
	}

	lines := make([]string, 0, len(normalized)+3)
	lines = append(lines, body, "", OpenTag)
	for i, q := range normalized {
		lines = append(lines, fmt.Sprintf("Q%d: %s", i+1, q))
	}
	lines = append(lines, CloseTag)
	return strings.Join(lines, "\n")
}

// Decode splits raw text into the answer body and the embedded follow-up
// questions. When no block is present the trimmed text is returned as-is,
// which makes Decode idempotent: decoding an already-decoded body returns
// it unchanged with no questions (unless withDefault pads them).
func Decode(raw string, lang game.Language, withDefault bool) (string, []string) {
	loc := blockRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw), Normalize(nil, lang, withDefault)
	}

	block := raw[loc[2]:loc[3]]
	var questions []string
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			questions = append(questions, line)
		}
	}

	body := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
	return body, Normalize(questions, lang, withDefault)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
