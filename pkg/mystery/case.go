// Package mystery defines the case file: the generated mystery a game is
// played against. A case is immutable once validated.
package mystery

import (
	"fmt"
	"strings"
)

const (
	MinCharacters = 4
	MaxCharacters = 6
	MinEvidence   = 5
)

// Character is one suspect in the case. IsKiller and IsLiar are hidden
// truth flags and must never be exposed through public views.
type Character struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Traits   []string `json:"traits"`
	Alibi    string   `json:"alibi"`
	Secrets  []string `json:"secrets"`
	IsLiar   bool     `json:"is_liar"`
	IsKiller bool     `json:"is_killer"`
}

type Victim struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Occupation   string `json:"occupation"`
	CauseOfDeath string `json:"cause_of_death"`
	FoundState   string `json:"found_state"`
}

type Setting struct {
	Location   string `json:"location"`
	TimeWindow string `json:"time_window"`
	Summary    string `json:"summary"`
}

type TimelineEvent struct {
	Time  string `json:"time"`
	Event string `json:"event"`
}

type EvidenceItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Detail    string `json:"detail"`
	Relevance string `json:"relevance"`
}

// Truth is the hidden solution block revealed only after guessing.
type Truth struct {
	Solution         string `json:"solution"`
	WhyRoomWasLocked string `json:"why_room_was_locked"`
	HowAlibiWasFaked string `json:"how_alibi_was_faked"`
}

// GMRules are the game-master operating rules generated with the case.
type GMRules struct {
	DisclosurePolicy string `json:"disclosure_policy"`
	LiarPolicy       string `json:"liar_policy"`
	Safety           string `json:"safety"`
}

// Case is a fully specified mystery. Exactly one character is the killer
// and exactly one (different) character is the liar.
type Case struct {
	CaseID     string          `json:"case_id"`
	Title      string          `json:"title"`
	Setting    Setting         `json:"setting"`
	Characters []Character     `json:"characters"`
	Victim     Victim          `json:"victim"`
	KillerID   string          `json:"killer_id"`
	LiarID     string          `json:"liar_id"`
	Motive     string          `json:"motive"`
	Method     string          `json:"method"`
	Trick      string          `json:"trick"`
	Timeline   []TimelineEvent `json:"timeline"`
	Evidence   []EvidenceItem  `json:"evidence"`
	Truth      Truth           `json:"truth"`
	GMRules    GMRules         `json:"gm_rules"`
}

// Validate checks the structural invariants of a generated case. A case
// that fails validation must be discarded, never repaired in place.
func (c *Case) Validate() error {
	if strings.TrimSpace(c.CaseID) == "" {
		return fmt.Errorf("case_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(c.Characters) < MinCharacters || len(c.Characters) > MaxCharacters {
		return fmt.Errorf("characters must include %d to %d members, got %d", MinCharacters, MaxCharacters, len(c.Characters))
	}
	if len(c.Evidence) < MinEvidence {
		return fmt.Errorf("evidence must include at least %d items, got %d", MinEvidence, len(c.Evidence))
	}
	if len(c.Timeline) == 0 {
		return fmt.Errorf("timeline must not be empty")
	}

	ids := make(map[string]bool, len(c.Characters))
	for _, ch := range c.Characters {
		if strings.TrimSpace(ch.ID) == "" || strings.TrimSpace(ch.Name) == "" {
			return fmt.Errorf("every character needs an id and a name")
		}
		if ids[ch.ID] {
			return fmt.Errorf("duplicate character id %q", ch.ID)
		}
		ids[ch.ID] = true
	}

	if !ids[c.KillerID] {
		return fmt.Errorf("killer_id %q must exist in characters", c.KillerID)
	}
	if !ids[c.LiarID] {
		return fmt.Errorf("liar_id %q must exist in characters", c.LiarID)
	}
	if c.KillerID == c.LiarID {
		return fmt.Errorf("killer_id and liar_id must be different")
	}

	var killers, liars int
	for _, ch := range c.Characters {
		if ch.IsKiller {
			killers++
		}
		if ch.IsLiar {
			liars++
		}
	}
	if killers != 1 || liars != 1 {
		return fmt.Errorf("exactly one killer and one liar flag are required, got %d and %d", killers, liars)
	}

	if killer := c.CharacterByID(c.KillerID); killer == nil || !killer.IsKiller {
		return fmt.Errorf("killer_id does not match the character flagged as killer")
	}
	if liar := c.CharacterByID(c.LiarID); liar == nil || !liar.IsLiar {
		return fmt.Errorf("liar_id does not match the character flagged as liar")
	}

	return nil
}

// CharacterByID returns the character with the given id, or nil.
func (c *Case) CharacterByID(id string) *Character {
	for i := range c.Characters {
		if c.Characters[i].ID == id {
			return &c.Characters[i]
		}
	}
	return nil
}

// Killer returns the character flagged by KillerID. On a validated case
// this never returns nil.
func (c *Case) Killer() *Character {
	return c.CharacterByID(c.KillerID)
}

// Liar returns the character flagged by LiarID.
func (c *Case) Liar() *Character {
	return c.CharacterByID(c.LiarID)
}

// NamesAnyCharacter reports whether text mentions at least one character
// by exact substring match of their display name.
func (c *Case) NamesAnyCharacter(text string) bool {
	for _, ch := range c.Characters {
		if ch.Name != "" && strings.Contains(text, ch.Name) {
			return true
		}
	}
	return false
}
