// Package namer generates display names for agent personas.
//
// Names are flavour only: nothing in a run depends on their value beyond
// appearing in role labels, so the tables are small and the random source is
// injectable for deterministic tests.
package namer

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Locale selects a name table.
type Locale string

const (
	LocaleEnglish  Locale = "en"
	LocaleJapanese Locale = "ja"
)

// maxUniqueTries bounds how often Generate redraws to avoid repeating a name.
const maxUniqueTries = 16

type table struct {
	given  []string
	family []string
	// join renders a full name from given and family parts.
	join func(given, family string) string
}

var tables = map[Locale]table{
	LocaleEnglish: {
		given: []string{
			"Avery", "Blake", "Casey", "Dana", "Elliot", "Frankie", "Harper", "Jordan",
			"Kendall", "Logan", "Morgan", "Noel", "Parker", "Quinn", "Reese", "Riley",
			"Rowan", "Sage", "Skyler", "Taylor",
		},
		family: []string{
			"Adams", "Brooks", "Carter", "Diaz", "Ellis", "Foster", "Garcia", "Hayes",
			"Ito", "Jensen", "Kim", "Lopez", "Meyer", "Nguyen", "Okafor", "Patel",
			"Reyes", "Silva", "Turner", "Wright",
		},
		join: func(given, family string) string { return given + " " + family },
	},
	LocaleJapanese: {
		given: []string{
			"翔太", "陽菜", "大輝", "美咲", "蓮", "結衣", "悠斗", "さくら",
			"健太", "愛子", "拓海", "彩花", "直樹", "真由美", "亮", "千尋",
		},
		family: []string{
			"佐藤", "鈴木", "高橋", "田中", "伊藤", "渡辺", "山本", "中村",
			"小林", "加藤", "吉田", "山田", "佐々木", "松本", "井上", "木村",
		},
		join: func(given, family string) string { return family + given },
	},
}

// Namer draws persona names from a locale table. It avoids handing out the
// same name twice while unused combinations remain. Safe for concurrent use.
type Namer struct {
	mu     sync.Mutex
	rng    *rand.Rand
	table  table
	issued map[string]bool
}

// New returns a Namer for locale seeded from the runtime's random source.
func New(locale Locale) (*Namer, error) {
	return NewWithRand(locale, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewWithRand returns a Namer that draws from rng.
func NewWithRand(locale Locale, rng *rand.Rand) (*Namer, error) {
	t, ok := tables[locale]
	if !ok {
		return nil, fmt.Errorf("unsupported name locale %q", locale)
	}
	return &Namer{
		rng:    rng,
		table:  t,
		issued: make(map[string]bool),
	}, nil
}

// Generate returns a display name.
func (n *Namer) Generate() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var name string
	for range maxUniqueTries {
		name = n.table.join(
			n.table.given[n.rng.IntN(len(n.table.given))],
			n.table.family[n.rng.IntN(len(n.table.family))],
		)
		if !n.issued[name] {
			break
		}
	}
	n.issued[name] = true
	return name
}

// Locales returns the supported locales.
func Locales() []Locale {
	return []Locale{LocaleEnglish, LocaleJapanese}
}
