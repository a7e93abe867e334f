package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/mystery-engine/pkg/game"
)

func TestLocalProvider_GenerateCaseIsValid(t *testing.T) {
	ctx := context.Background()
	for _, lang := range []game.Language{game.LanguageJA, game.LanguageEN} {
		p := NewLocalProvider(42)
		c, err := p.GenerateCase(ctx, lang)
		require.NoError(t, err)
		require.NoError(t, c.Validate())
		assert.Len(t, c.Characters, 5)
		assert.GreaterOrEqual(t, len(c.Evidence), 5)
		assert.NotEqual(t, c.KillerID, c.LiarID)
		assert.NotEmpty(t, c.Truth.Solution)
		assert.NotEmpty(t, c.GMRules.DisclosurePolicy)
	}
}

func TestLocalProvider_SameSeedSameCase(t *testing.T) {
	ctx := context.Background()
	a, err := NewLocalProvider(7).GenerateCase(ctx, game.LanguageEN)
	require.NoError(t, err)
	b, err := NewLocalProvider(7).GenerateCase(ctx, game.LanguageEN)
	require.NoError(t, err)

	assert.Equal(t, a.KillerID, b.KillerID)
	assert.Equal(t, a.LiarID, b.LiarID)
	require.Len(t, b.Characters, len(a.Characters))
	for i := range a.Characters {
		assert.Equal(t, a.Characters[i].Name, b.Characters[i].Name)
		assert.Equal(t, a.Characters[i].Alibi, b.Characters[i].Alibi)
	}
}

func TestLocalProvider_AnswerGuardsSolution(t *testing.T) {
	p := NewLocalProvider(3)
	c, err := p.GenerateCase(context.Background(), game.LanguageEN)
	require.NoError(t, err)

	answer, err := p.AnswerQuestion(context.Background(), c, "Who is the killer?", nil, game.LanguageEN)
	require.NoError(t, err)
	assert.Contains(t, answer, "cannot reveal")
	assert.NotContains(t, answer, c.Killer().Name)
}

func TestLocalProvider_AnswerAboutCharacterUsesAlibi(t *testing.T) {
	p := NewLocalProvider(3)
	c, err := p.GenerateCase(context.Background(), game.LanguageEN)
	require.NoError(t, err)

	var innocent string
	for _, ch := range c.Characters {
		if !ch.IsLiar && !ch.IsKiller {
			innocent = ch.Name
			break
		}
	}
	require.NotEmpty(t, innocent)

	answer, err := p.AnswerQuestion(context.Background(), c, fmt.Sprintf("Tell me about %s.", innocent), nil, game.LanguageEN)
	require.NoError(t, err)
	assert.Contains(t, answer, innocent)
	assert.Contains(t, answer, "alibi")
}

func TestLocalProvider_LiarChangesStory(t *testing.T) {
	p := NewLocalProvider(3)
	c, err := p.GenerateCase(context.Background(), game.LanguageEN)
	require.NoError(t, err)
	liar := c.Liar().Name

	q := fmt.Sprintf("What does %s say?", liar)
	first, err := p.AnswerQuestion(context.Background(), c, q, nil, game.LanguageEN)
	require.NoError(t, err)
	assert.Contains(t, first, "10:12")

	history := []game.Exchange{{Question: q, Answer: first}}
	second, err := p.AnswerQuestion(context.Background(), c, q, history, game.LanguageEN)
	require.NoError(t, err)
	assert.NotContains(t, second, "10:12")
	assert.Contains(t, second, "elevator hall")
}

func TestLocalProvider_EvidenceRotatesWithHistory(t *testing.T) {
	p := NewLocalProvider(3)
	c, err := p.GenerateCase(context.Background(), game.LanguageEN)
	require.NoError(t, err)

	first, err := p.AnswerQuestion(context.Background(), c, "What evidence do we have?", nil, game.LanguageEN)
	require.NoError(t, err)
	assert.Contains(t, first, c.Evidence[0].Name)

	history := []game.Exchange{{Question: "q", Answer: "a"}, {Question: "q", Answer: "a"}}
	third, err := p.AnswerQuestion(context.Background(), c, "What evidence do we have?", history, game.LanguageEN)
	require.NoError(t, err)
	assert.Contains(t, third, c.Evidence[2].Name)
}

func TestLocalProvider_JapaneseAnswers(t *testing.T) {
	p := NewLocalProvider(3)
	c, err := p.GenerateCase(context.Background(), game.LanguageJA)
	require.NoError(t, err)

	guarded, err := p.AnswerQuestion(context.Background(), c, "犯人は誰ですか？", nil, game.LanguageJA)
	require.NoError(t, err)
	assert.Contains(t, guarded, "手掛かり")

	evidence, err := p.AnswerQuestion(context.Background(), c, "証拠はありますか？", nil, game.LanguageJA)
	require.NoError(t, err)
	assert.Contains(t, evidence, c.Evidence[0].Name)
}

func TestLocalProvider_CheckContradiction(t *testing.T) {
	p := NewLocalProvider(3)
	c, err := p.GenerateCase(context.Background(), game.LanguageEN)
	require.NoError(t, err)

	spoiler := fmt.Sprintf("%s is clearly the killer.", c.Killer().Name)
	result, err := p.CheckContradiction(context.Background(), c, "q", spoiler, game.LanguageEN)
	require.NoError(t, err)
	assert.True(t, result.Contradiction)
	assert.NotContains(t, result.FixedAnswer, c.Killer().Name)

	ok, err := p.CheckContradiction(context.Background(), c, "q", "The latch was jammed at ten.", game.LanguageEN)
	require.NoError(t, err)
	assert.False(t, ok.Contradiction)
	assert.Equal(t, "The latch was jammed at ten.", ok.FixedAnswer)
}

func TestLocalProvider_ScoreGuessDefersToLocalScorer(t *testing.T) {
	p := NewLocalProvider(3)
	result, err := p.ScoreGuess(context.Background(), nil, &game.GuessInput{Killer: "x"}, game.LanguageEN)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestLocalProvider_SummarizeConversation(t *testing.T) {
	p := NewLocalProvider(3)
	history := []game.Exchange{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}

	summary, err := p.SummarizeConversation(context.Background(), nil, history, game.LanguageEN)
	require.NoError(t, err)
	assert.Equal(t, "unknown from conversation", summary.Killer)
	assert.Equal(t, "unknown from conversation", summary.Trick)
	assert.Equal(t, []string{"q4", "q3", "q2"}, summary.Highlights)

	jaSummary, err := p.SummarizeConversation(context.Background(), nil, nil, game.LanguageJA)
	require.NoError(t, err)
	assert.Equal(t, "会話からは不明", jaSummary.Killer)
	assert.Empty(t, jaSummary.Highlights)
}
