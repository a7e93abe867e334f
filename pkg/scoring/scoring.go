// Package scoring grades a free-text guess against a case's hidden truth.
// It is fully deterministic and never touches the network, which makes it
// both the offline fallback scorer and the cross-check for remote results.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

const (
	KillerPoints = 40
	ClaimPoints  = 20

	// matchThreshold marks a sub-score as a "match" at 60% of its maximum.
	matchThreshold = 0.6
)

// Matches records which of the four claims lined up with the truth.
type Matches struct {
	Killer bool `json:"killer"`
	Motive bool `json:"motive"`
	Method bool `json:"method"`
	Trick  bool `json:"trick"`
}

// Result is the full scored payload for a guess. A remote scorer must
// produce every field for its payload to be used; otherwise this package
// recomputes the result locally.
type Result struct {
	Score           int      `json:"score"`
	Grade           string   `json:"grade"`
	Matches         Matches  `json:"matches"`
	Feedback        string   `json:"feedback"`
	Contradictions  []string `json:"contradictions"`
	WeaknessesTop3  []string `json:"weaknesses_top3"`
	SolutionSummary string   `json:"solution_summary"`
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonTokenRe   = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

func normalize(text string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "")
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range nonTokenRe.Split(strings.ToLower(text), -1) {
		if tok != "" {
			tokens[tok] = true
		}
	}
	return tokens
}

// claimScore blends character-level sequence similarity with token
// overlap and takes the better of the two. The second return value
// reports whether the score reaches the match threshold.
func claimScore(answer, truth string) (int, bool) {
	a := normalize(answer)
	t := normalize(truth)
	if a == "" || t == "" {
		return 0, false
	}

	ratio := sequenceRatio([]rune(a), []rune(t))

	answerTokens := tokenize(answer)
	truthTokens := tokenize(truth)
	var overlapCount int
	for tok := range answerTokens {
		if truthTokens[tok] {
			overlapCount++
		}
	}
	overlap := float64(overlapCount) / math.Max(1, float64(len(truthTokens)))

	blended := math.Max(ratio, overlap)
	points := int(math.Round(ClaimPoints * blended))
	if points > ClaimPoints {
		points = ClaimPoints
	}
	return points, float64(points) >= ClaimPoints*matchThreshold
}

// Grade maps a 0-100 score to its letter band.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "S"
	case score >= 75:
		return "A"
	case score >= 60:
		return "B"
	default:
		return "C"
	}
}

// Evaluate grades a guess against the case truth. The score is always in
// [0,100] and the grade in {S,A,B,C}. The solution summary is revealed
// unconditionally; grading never hides the truth from a finished game.
func Evaluate(c *mystery.Case, guess *game.GuessInput, lang game.Language) *Result {
	killer := c.Killer()
	normalizedGuess := normalize(guess.Killer)
	killerMatch := normalizedGuess == normalize(killer.Name) || normalizedGuess == normalize(killer.ID)

	motivePoints, motiveMatch := claimScore(guess.Motive, c.Motive)
	methodPoints, methodMatch := claimScore(guess.Method, c.Method)
	trickPoints, trickMatch := claimScore(guess.Trick, c.Trick)

	score := motivePoints + methodPoints + trickPoints
	if killerMatch {
		score += KillerPoints
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	matches := Matches{
		Killer: killerMatch,
		Motive: motiveMatch,
		Method: methodMatch,
		Trick:  trickMatch,
	}

	var feedback, solutionSummary string
	if lang == game.LanguageEN {
		verdict := "incorrect"
		if killerMatch {
			verdict = "correct"
		}
		feedback = fmt.Sprintf(
			"Killer %s. Motive/method/trick alignment: %d/20, %d/20, %d/20.",
			verdict, motivePoints, methodPoints, trickPoints,
		)
		solutionSummary = fmt.Sprintf(
			"%s The room appeared locked because %s The alibi deception worked because %s",
			c.Truth.Solution, c.Truth.WhyRoomWasLocked, c.Truth.HowAlibiWasFaked,
		)
	} else {
		verdict := "不正解"
		if killerMatch {
			verdict = "正解"
		}
		feedback = fmt.Sprintf(
			"犯人推定は%s。動機/手口/トリックの一致度は %d/20, %d/20, %d/20 です。",
			verdict, motivePoints, methodPoints, trickPoints,
		)
		solutionSummary = fmt.Sprintf(
			"%s 密室化は %s。アリバイ偽装は %s",
			c.Truth.Solution, c.Truth.WhyRoomWasLocked, c.Truth.HowAlibiWasFaked,
		)
	}

	return &Result{
		Score:           score,
		Grade:           Grade(score),
		Matches:         matches,
		Feedback:        feedback,
		Contradictions:  contradictions(guess.Reasoning, lang),
		WeaknessesTop3:  weaknesses(matches, lang),
		SolutionSummary: solutionSummary,
	}
}

// falseWitnessTime is the planted false timestamp. Reasoning that treats
// it as fact conflicts with the evidence timeline.
const falseWitnessTime = "10:12"

func contradictions(reasoning string, lang game.Language) []string {
	out := []string{}
	if strings.Contains(reasoning, falseWitnessTime) {
		if lang == game.LanguageEN {
			out = append(out, "You relied on the 10:12 witness claim, which conflicts with evidence timeline.")
		} else {
			out = append(out, "10:12の目撃証言を事実として採用しており、証拠時系列と衝突しています。")
		}
	}
	if !strings.Contains(reasoning, "停電") && !strings.Contains(strings.ToLower(reasoning), "blackout") {
		if lang == game.LanguageEN {
			out = append(out, "Your reasoning does not verify the blackout timing.")
		} else {
			out = append(out, "停電タイミングの検証が不足しています。")
		}
	}
	return out
}

// weaknesses returns exactly three improvement notes. Slots are
// overridden by failed matches, killer first, then motive, then the
// method/trick mechanism.
func weaknesses(m Matches, lang game.Language) []string {
	if lang == game.LanguageEN {
		items := []string{
			"You did not connect each claim to a concrete evidence item.",
			"Timeline interpretation around the blackout needs tighter validation.",
			"The liar NPC testimony was not sufficiently cross-checked.",
		}
		if !m.Killer {
			items[0] = "Suspect elimination logic was weak, leading to wrong killer selection."
		}
		if !m.Motive {
			items[1] = "Motive analysis missed the financial-pressure thread."
		}
		if !m.Method || !m.Trick {
			items[2] = "Mechanism of delayed latch reset and gas setup was underexplained."
		}
		return items
	}

	items := []string{
		"主張ごとに対応する証拠を明示できていません。",
		"停電前後の時系列解釈が甘く、検証が不足しています。",
		"嘘つきNPCの証言を裏取りせずに採用しています。",
	}
	if !m.Killer {
		items[0] = "容疑者の消去法が弱く、犯人特定を誤っています。"
	}
	if !m.Motive {
		items[1] = "金銭圧力の動機線を十分に拾えていません。"
	}
	if !m.Method || !m.Trick {
		items[2] = "遅延噴射とラッチ復帰の仕組み説明が不足しています。"
	}
	return items
}
