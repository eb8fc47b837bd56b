// Package evaluator classifies a player's guess against the round's target
// song. Classification is pure: it depends only on the guess text, the target
// and the catalog the evaluator was built from.
package evaluator

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/jason-s-yu/vgmguess/internal/models"
)

// closeDistance is the largest edit distance reported as a near miss.
const closeDistance = 2

// compoundSep separates game and title in "Game - Title" guesses.
const compoundSep = " - "

// Evaluator resolves free-text guesses to catalog entries and grades them.
type Evaluator struct {
	byTitle    map[string][]models.Song // normalized title -> songs in catalog order
	byCompound map[string]models.Song   // normalized game + "\x00" + normalized title
}

// Result is the outcome of one classification.
type Result struct {
	Tier     models.Tier
	Resolved *models.Song // nil when the guess matched nothing in the catalog
	Close    bool         // wrong, but within a couple of edits of the target title
}

// New indexes songs for guess resolution.
func New(songs []models.Song) *Evaluator {
	e := &Evaluator{
		byTitle:    make(map[string][]models.Song, len(songs)),
		byCompound: make(map[string]models.Song, len(songs)),
	}
	for _, s := range songs {
		t := Normalize(s.Title)
		if t == "" {
			continue
		}
		e.byTitle[t] = append(e.byTitle[t], s)
		key := compoundKey(Normalize(s.Game), t)
		if _, dup := e.byCompound[key]; !dup {
			e.byCompound[key] = s
		}
	}
	return e
}

// Classify grades guess against target.
func (e *Evaluator) Classify(guess string, target models.Song) Result {
	resolved := e.Resolve(guess, target)
	if resolved == nil {
		return Result{Tier: models.TierWrong, Close: isClose(guess, target)}
	}

	res := Result{Resolved: resolved}
	switch {
	case resolved.ID == target.ID:
		res.Tier = models.TierExact
	case Normalize(resolved.Game) == Normalize(target.Game):
		res.Tier = models.TierSameGame
	case sameFranchise(resolved.Game, target.Game):
		res.Tier = models.TierSameFranchise
	default:
		res.Tier = models.TierWrong
		res.Close = isClose(guess, target)
	}
	return res
}

// Resolve maps guess text to a concrete catalog entry. Both "Title" and
// "Game - Title" are accepted. When a bare title is shared by several songs
// the target wins the tie, unless the title is generic: a bare "Main Theme"
// is never credited as an exact hit just because the target has that name.
func (e *Evaluator) Resolve(guess string, target models.Song) *models.Song {
	raw := strings.TrimSpace(guess)
	if raw == "" {
		return nil
	}

	// Compound form first, trying every separator position since both game
	// and title may themselves contain " - ".
	for i := 0; ; {
		j := strings.Index(raw[i:], compoundSep)
		if j < 0 {
			break
		}
		at := i + j
		game, title := Normalize(raw[:at]), Normalize(raw[at+len(compoundSep):])
		if s, ok := e.byCompound[compoundKey(game, title)]; ok {
			return &s
		}
		i = at + len(compoundSep)
	}

	candidates := e.byTitle[Normalize(raw)]
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		s := candidates[0]
		return &s
	}

	// A shared generic title resolves away from the target wherever it sits
	// in the catalog; a shared specific title resolves to it.
	generic := IsGenericTitle(raw) && IsGenericTitle(target.Title)
	for _, s := range candidates {
		if (s.ID == target.ID) != generic {
			return &s
		}
	}
	s := candidates[0]
	return &s
}

func sameFranchise(a, b string) bool {
	ka, kb := FranchiseKey(a), FranchiseKey(b)
	return len(ka) > 2 && ka == kb
}

func isClose(guess string, target models.Song) bool {
	g := Normalize(guess)
	t := Normalize(target.Title)
	if g == "" || t == "" {
		return false
	}
	if i := strings.LastIndex(guess, compoundSep); i >= 0 {
		g = Normalize(guess[i+len(compoundSep):])
	}
	return levenshtein.ComputeDistance(g, t) <= closeDistance
}

func compoundKey(game, title string) string {
	return game + "\x00" + title
}
