package evaluator

import "strings"

// TableVersion identifies the revision of the generic-title and franchise
// tables below. Bump it whenever either list changes so recorded guess tiers
// can be traced back to the rules that produced them.
const TableVersion = 3

// genericTitles are track names shared by many games. A bare generic title
// never resolves in favor of the round's target.
var genericTitles = []string{
	"main theme",
	"title theme",
	"title screen",
	"intro",
	"opening",
	"opening theme",
	"ending",
	"ending theme",
	"credits",
	"staff roll",
	"game over",
	"main menu",
	"file select",
	"boss battle",
	"boss theme",
	"final boss",
	"victory",
	"victory fanfare",
	"overworld",
	"overworld theme",
	"prologue",
	"epilogue",
	"character select",
}

// Franchise groups games that belong to the same series. Aliases are matched
// as substrings of the normalized game name, in table order.
type Franchise struct {
	Key     string
	Aliases []string
}

// franchises is ordered so that more specific aliases appear before shorter
// ones that would also match ("mario kart" before "mario").
var franchises = []Franchise{
	{Key: "mario", Aliases: []string{"super mario", "mario kart", "mario party", "paper mario", "mario and luigi", "mario"}},
	{Key: "zelda", Aliases: []string{"legend of zelda", "zelda"}},
	{Key: "pokemon", Aliases: []string{"pokemon"}},
	{Key: "finalfantasy", Aliases: []string{"final fantasy"}},
	{Key: "dragonquest", Aliases: []string{"dragon quest", "dragon warrior"}},
	{Key: "sonic", Aliases: []string{"sonic"}},
	{Key: "metroid", Aliases: []string{"metroid"}},
	{Key: "kirby", Aliases: []string{"kirby"}},
	{Key: "donkeykong", Aliases: []string{"donkey kong", "diddy kong"}},
	{Key: "megaman", Aliases: []string{"mega man", "megaman", "rockman"}},
	{Key: "castlevania", Aliases: []string{"castlevania"}},
	{Key: "streetfighter", Aliases: []string{"street fighter"}},
	{Key: "kingdomhearts", Aliases: []string{"kingdom hearts"}},
	{Key: "metalgear", Aliases: []string{"metal gear"}},
	{Key: "residentevil", Aliases: []string{"resident evil", "biohazard"}},
	{Key: "silenthill", Aliases: []string{"silent hill"}},
	{Key: "persona", Aliases: []string{"persona"}},
	{Key: "xenoblade", Aliases: []string{"xenoblade"}},
	{Key: "fireemblem", Aliases: []string{"fire emblem"}},
	{Key: "starfox", Aliases: []string{"star fox", "starfox"}},
	{Key: "fzero", Aliases: []string{"f-zero", "f zero"}},
	{Key: "animalcrossing", Aliases: []string{"animal crossing"}},
	{Key: "smashbros", Aliases: []string{"smash bros", "super smash"}},
	{Key: "chrono", Aliases: []string{"chrono trigger", "chrono cross"}},
	{Key: "mother", Aliases: []string{"earthbound", "mother"}},
	{Key: "talesof", Aliases: []string{"tales of"}},
	{Key: "aceattorney", Aliases: []string{"ace attorney", "phoenix wright"}},
	{Key: "layton", Aliases: []string{"professor layton"}},
	{Key: "halo", Aliases: []string{"halo"}},
	{Key: "crash", Aliases: []string{"crash bandicoot", "crash team"}},
	{Key: "spyro", Aliases: []string{"spyro"}},
	{Key: "banjo", Aliases: []string{"banjo"}},
	{Key: "splatoon", Aliases: []string{"splatoon"}},
	{Key: "elderscrolls", Aliases: []string{"elder scrolls", "skyrim", "oblivion", "morrowind"}},
	{Key: "halflife", Aliases: []string{"half-life", "half life"}},
	{Key: "portal", Aliases: []string{"portal"}},
	{Key: "undertale", Aliases: []string{"undertale", "deltarune"}},
}

// fallbackStopwords are skipped when a game is not in the franchise table and
// its first meaningful word is used instead.
var fallbackStopwords = map[string]bool{
	"the":   true,
	"and":   true,
	"new":   true,
	"super": true,
}

var (
	normalizedGeneric    []string
	normalizedFranchises []Franchise
)

func init() {
	normalizedGeneric = make([]string, 0, len(genericTitles))
	for _, g := range genericTitles {
		normalizedGeneric = append(normalizedGeneric, Normalize(g))
	}

	normalizedFranchises = make([]Franchise, 0, len(franchises))
	for _, f := range franchises {
		nf := Franchise{Key: f.Key, Aliases: make([]string, 0, len(f.Aliases))}
		for _, a := range f.Aliases {
			nf.Aliases = append(nf.Aliases, Normalize(a))
		}
		normalizedFranchises = append(normalizedFranchises, nf)
	}
}

// IsGenericTitle reports whether title equals or contains a generic track name.
func IsGenericTitle(title string) bool {
	n := Normalize(title)
	if n == "" {
		return false
	}
	for _, g := range normalizedGeneric {
		if n == g || strings.Contains(n, g) {
			return true
		}
	}
	return false
}

// FranchiseKey returns a best-effort series key for a game name: the first
// franchise table hit, otherwise the first word of at least three characters.
// An empty result means no usable key.
func FranchiseKey(game string) string {
	n := Normalize(game)
	if n == "" {
		return ""
	}
	for _, f := range normalizedFranchises {
		for _, a := range f.Aliases {
			if strings.Contains(n, a) {
				return f.Key
			}
		}
	}
	for _, w := range normalizeWords(game) {
		if len(w) >= 3 && !fallbackStopwords[w] {
			return w
		}
	}
	return ""
}
