package namer

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

func TestNew_UnknownLocale(t *testing.T) {
	if _, err := New("fr"); err == nil {
		t.Error("New(fr) should fail")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, locale := range Locales() {
		t.Run(string(locale), func(t *testing.T) {
			a, _ := NewWithRand(locale, rand.New(rand.NewPCG(1, 2)))
			b, _ := NewWithRand(locale, rand.New(rand.NewPCG(1, 2)))

			for i := 0; i < 5; i++ {
				if x, y := a.Generate(), b.Generate(); x != y {
					t.Fatalf("draw %d: %q != %q with equal seeds", i, x, y)
				}
			}
		})
	}
}

func TestGenerate_Format(t *testing.T) {
	en, _ := NewWithRand(LocaleEnglish, rand.New(rand.NewPCG(7, 7)))
	if name := en.Generate(); len(strings.Fields(name)) != 2 {
		t.Errorf("english name %q should be given + family", name)
	}

	ja, _ := NewWithRand(LocaleJapanese, rand.New(rand.NewPCG(7, 7)))
	if name := ja.Generate(); strings.Contains(name, " ") || name == "" {
		t.Errorf("japanese name %q should be family+given without space", name)
	}
}

func TestGenerate_AvoidsRepeats(t *testing.T) {
	n, _ := NewWithRand(LocaleEnglish, rand.New(rand.NewPCG(3, 4)))

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		name := n.Generate()
		if seen[name] {
			t.Fatalf("name %q repeated after %d draws", name, i)
		}
		seen[name] = true
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	n, err := New(LocaleJapanese)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if n.Generate() == "" {
					t.Error("empty name")
				}
			}
		}()
	}
	wg.Wait()
}
