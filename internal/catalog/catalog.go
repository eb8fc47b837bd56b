// Package catalog supplies the read-only song collection rounds are drawn from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/jason-s-yu/vgmguess/internal/models"
)

//go:embed songs.json
var embeddedSongs []byte

// ErrEmpty is returned when a catalog has no songs to draw from.
var ErrEmpty = errors.New("catalog: no songs")

// Catalog is the song source consumed by the round engine and evaluator.
type Catalog interface {
	// Songs returns every entry in a stable order.
	Songs() []models.Song
	// Sample draws n distinct songs uniformly at random.
	Sample(n int) ([]models.Song, error)
}

// Memory is an immutable in-memory catalog.
type Memory struct {
	songs []models.Song

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Memory catalog.
type Option func(*Memory)

// WithSeed makes sampling deterministic, for tests and replays.
func WithSeed(seed uint64) Option {
	return func(m *Memory) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewMemory builds a catalog over songs, dropping entries without an id or
// title and keeping the first of any duplicate ids.
func NewMemory(songs []models.Song, opts ...Option) *Memory {
	seen := make(map[string]bool, len(songs))
	clean := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if s.ID == "" || s.Title == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		clean = append(clean, s)
	}
	m := &Memory{songs: clean}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Songs returns a copy of the catalog entries.
func (m *Memory) Songs() []models.Song {
	out := make([]models.Song, len(m.songs))
	copy(out, m.songs)
	return out
}

// Sample draws n songs without replacement. Asking for more songs than the
// catalog holds returns the whole catalog in random order.
func (m *Memory) Sample(n int) ([]models.Song, error) {
	if len(m.songs) == 0 {
		return nil, ErrEmpty
	}
	if n <= 0 {
		return nil, fmt.Errorf("catalog: sample size must be positive, got %d", n)
	}
	n = min(n, len(m.songs))

	var perm []int
	if m.rng != nil {
		m.mu.Lock()
		perm = m.rng.Perm(len(m.songs))
		m.mu.Unlock()
	} else {
		perm = rand.Perm(len(m.songs))
	}

	out := make([]models.Song, n)
	for i := 0; i < n; i++ {
		out[i] = m.songs[perm[i]]
	}
	return out, nil
}

// Len reports how many songs are available.
func (m *Memory) Len() int { return len(m.songs) }

// Parse decodes a JSON array of songs.
func Parse(data []byte, opts ...Option) (*Memory, error) {
	var songs []models.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("catalog: decode songs: %w", err)
	}
	return NewMemory(songs, opts...), nil
}

// LoadFile reads a JSON song list from disk.
func LoadFile(path string, opts ...Option) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data, opts...)
}

// Embedded returns the catalog bundled with the binary.
func Embedded(opts ...Option) (*Memory, error) {
	return Parse(embeddedSongs, opts...)
}
