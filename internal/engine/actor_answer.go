package engine

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

// explicitActorAnswer builds a deterministic replacement answer that
// always names cast members, keyed off what the question appears to be
// asking about. Used when a generated answer names nobody.
func explicitActorAnswer(c *mystery.Case, question string, lang game.Language) string {
	first := c.Characters[0]
	second := c.Characters[1]
	third := c.Characters[2]
	firstEvent := c.Timeline[0]
	firstEvidence := c.Evidence[0]

	if lang == game.LanguageEN {
		q := strings.ToLower(question)
		if containsAnyKeyword(q, "where", "alibi", "at the time", "when") {
			return fmt.Sprintf("%s says: %s %s says: %s",
				first.Name, first.Alibi, second.Name, second.Alibi)
		}
		if containsAnyKeyword(q, "evidence", "clue", "proof") {
			return fmt.Sprintf("For evidence '%s', compare %s's account ('%s') with %s's account ('%s').",
				firstEvidence.Name, first.Name, first.Alibi, second.Name, second.Alibi)
		}
		return fmt.Sprintf("At %s, %s %s says: %s %s says: %s",
			firstEvent.Time, firstEvent.Event, first.Name, first.Alibi, third.Name, third.Alibi)
	}

	if containsAnyKeyword(question, "どこ", "アリバイ", "当時", "いつ") {
		return fmt.Sprintf("%sは「%s」と証言しています。%sは「%s」と証言しています。",
			first.Name, first.Alibi, second.Name, second.Alibi)
	}
	if containsAnyKeyword(question, "証拠", "手掛かり", "手がかり") {
		return fmt.Sprintf("証拠「%s」の確認では、%sの行動「%s」と%sの行動「%s」を照合してください。",
			firstEvidence.Name, first.Name, first.Alibi, second.Name, second.Alibi)
	}
	return fmt.Sprintf("%sの時点では%s。%sは「%s」、%sは「%s」と証言しています。",
		firstEvent.Time, firstEvent.Event, first.Name, first.Alibi, third.Name, third.Alibi)
}

func containsAnyKeyword(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
