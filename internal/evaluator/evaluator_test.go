package evaluator

import (
	"testing"

	"github.com/jason-s-yu/vgmguess/internal/catalog"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSongs = []models.Song{
	{ID: "s1", Title: "Gerudo Valley", Game: "The Legend of Zelda: Ocarina of Time"},
	{ID: "s2", Title: "Song of Storms", Game: "The Legend of Zelda: Ocarina of Time"},
	{ID: "s3", Title: "Dragon Roost Island", Game: "The Legend of Zelda: The Wind Waker"},
	{ID: "s4", Title: "Main Theme", Game: "Super Mario Bros."},
	{ID: "s5", Title: "Main Theme", Game: "Tetris"},
	{ID: "s6", Title: "Rainbow Road", Game: "Mario Kart 64"},
	{ID: "s7", Title: "Green Hill Zone", Game: "Sonic the Hedgehog"},
	{ID: "s8", Title: "Pokémon Center", Game: "Pokémon Red"},
	{ID: "s9", Title: "Battle - Gym Leader", Game: "Pokémon Red"},
	{ID: "s10", Title: "Megalovania", Game: "Undertale"},
	{ID: "s11", Title: "Rainbow Road", Game: "Mario Kart: Double Dash!!"},
	{ID: "s12", Title: "Tetris Theme", Game: "Tetris DX"},
}

func song(t *testing.T, id string) models.Song {
	t.Helper()
	for _, s := range testSongs {
		if s.ID == id {
			return s
		}
	}
	require.FailNow(t, "unknown song id", id)
	return models.Song{}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Pokémon Center":            "pokemoncenter",
		"  Gerudo   Valley!! ":      "gerudovalley",
		"Mario Kart: Double Dash!!": "mariokartdoubledash",
		"Ōkami":                     "okami",
		"F-ZERO":                    "fzero",
		"":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestClassifyTiers(t *testing.T) {
	e := New(testSongs)

	tests := []struct {
		name   string
		guess  string
		target string
		want   models.Tier
	}{
		{"bare title exact", "Gerudo Valley", "s1", models.TierExact},
		{"case and punctuation", "gerudo valley!!", "s1", models.TierExact},
		{"diacritics", "Pokemon Center", "s8", models.TierExact},
		{"compound form", "The Legend of Zelda: Ocarina of Time - Gerudo Valley", "s1", models.TierExact},
		{"title with separator", "Battle - Gym Leader", "s9", models.TierExact},
		{"compound title with separator", "Pokemon Red - Battle - Gym Leader", "s9", models.TierExact},
		{"same game", "Song of Storms", "s1", models.TierSameGame},
		{"same franchise", "Dragon Roost Island", "s1", models.TierSameFranchise},
		{"mario franchise across series", "Rainbow Road", "s4", models.TierSameFranchise},
		{"unrelated", "Megalovania", "s1", models.TierWrong},
		{"unknown title", "Not A Song", "s1", models.TierWrong},
		{"empty", "   ", "s1", models.TierWrong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Classify(tc.guess, song(t, tc.target))
			assert.Equal(t, tc.want, res.Tier)
		})
	}
}

func TestGenericTitleNeedsGame(t *testing.T) {
	e := New(testSongs)

	// Bare "Main Theme" is ambiguous and never resolves to the target,
	// whichever catalog position the target holds.
	for _, id := range []string{"s4", "s5"} {
		target := song(t, id)
		res := e.Classify("Main Theme", target)
		require.NotNil(t, res.Resolved, id)
		assert.NotEqual(t, id, res.Resolved.ID)
		assert.NotEqual(t, models.TierExact, res.Tier, id)
	}

	// Naming the game resolves it precisely.
	res := e.Classify("Tetris - Main Theme", song(t, "s5"))
	assert.Equal(t, models.TierExact, res.Tier)
	res = e.Classify("Super Mario Bros. - Main Theme", song(t, "s4"))
	assert.Equal(t, models.TierExact, res.Tier)
}

func TestGenericTitleAgainstEmbeddedCatalog(t *testing.T) {
	cat, err := catalog.Embedded()
	require.NoError(t, err)
	e := New(cat.Songs())

	for _, target := range cat.Songs() {
		if !IsGenericTitle(target.Title) || len(e.byTitle[Normalize(target.Title)]) < 2 {
			continue
		}
		res := e.Classify(target.Title, target)
		assert.NotEqual(t, models.TierExact, res.Tier, target.ID)
	}
}

func TestDuplicateNonGenericTitlePrefersTarget(t *testing.T) {
	e := New(testSongs)
	res := e.Classify("Rainbow Road", song(t, "s11"))
	assert.Equal(t, models.TierExact, res.Tier)
	require.NotNil(t, res.Resolved)
	assert.Equal(t, "s11", res.Resolved.ID)
}

func TestCloseHint(t *testing.T) {
	e := New(testSongs)

	res := e.Classify("Gerudo Valey", song(t, "s1"))
	assert.Equal(t, models.TierWrong, res.Tier)
	assert.True(t, res.Close)

	res = e.Classify("Megalovania", song(t, "s1"))
	assert.False(t, res.Close)
}

func TestIsGenericTitle(t *testing.T) {
	assert.True(t, IsGenericTitle("Main Theme"))
	assert.True(t, IsGenericTitle("Title Screen"))
	assert.True(t, IsGenericTitle("Main Theme (Remix)"))
	assert.True(t, IsGenericTitle("INTRO"))
	assert.False(t, IsGenericTitle("Gerudo Valley"))
	assert.False(t, IsGenericTitle(""))
}

func TestFranchiseKey(t *testing.T) {
	assert.Equal(t, "zelda", FranchiseKey("The Legend of Zelda: Twilight Princess"))
	assert.Equal(t, "mario", FranchiseKey("Mario Kart 8"))
	assert.Equal(t, "mario", FranchiseKey("Super Mario 64"))
	assert.Equal(t, "pokemon", FranchiseKey("Pokémon Emerald"))
	assert.Equal(t, "fzero", FranchiseKey("F-Zero GX"))
	// fallback: first word of three or more characters, skipping stopwords
	assert.Equal(t, "celeste", FranchiseKey("Celeste"))
	assert.Equal(t, "hollow", FranchiseKey("The Hollow Knight"))
	assert.Equal(t, "", FranchiseKey("Ys"))
	assert.Equal(t, "", FranchiseKey(""))
}

func TestFranchiseFallbackMatches(t *testing.T) {
	songs := []models.Song{
		{ID: "a", Title: "Resurrections", Game: "Celeste"},
		{ID: "b", Title: "Farewell", Game: "Celeste Classic"},
		{ID: "c", Title: "Ys Theme", Game: "Ys"},
		{ID: "d", Title: "Ys Other", Game: "Ys II"},
	}
	e := New(songs)
	assert.Equal(t, models.TierSameFranchise, e.Classify("Farewell", songs[0]).Tier)
	// Keys of two characters or fewer are trivial and never match.
	assert.Equal(t, models.TierWrong, e.Classify("Ys Other", songs[2]).Tier)
}
