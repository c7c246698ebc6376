package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
)

type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

func TestDefaultPool(t *testing.T) {
	p := Default()
	if p.Len() != 18 {
		t.Errorf("card count: got %d, want 18", p.Len())
	}
	if len(p.Personas()) != len(game.Personas) {
		t.Errorf("persona count: got %d, want %d", len(p.Personas()), len(game.Personas))
	}
}

func TestDrawFiltersByPersona(t *testing.T) {
	p := Default()
	for _, persona := range game.Personas {
		for i := 0; i < 6; i++ {
			c, err := p.Draw(fixedRand(i), persona)
			if err != nil {
				t.Fatalf("draw %s: %v", persona, err)
			}
			if c.Persona != persona {
				t.Errorf("draw %s returned %s card", persona, c.Persona)
			}
			if len(c.Answers) != game.AnswerCount {
				t.Errorf("answers: got %d", len(c.Answers))
			}
		}
	}
}

func TestDrawReturnsCopy(t *testing.T) {
	p := Default()
	c, _ := p.Draw(fixedRand(0), game.PersonaPunny)
	c.Answers[0] = "mutated"
	again, _ := p.Draw(fixedRand(0), game.PersonaPunny)
	if again.Answers[0] == "mutated" {
		t.Error("draw leaked the pool's answer slice")
	}
}

func TestRandomPersona(t *testing.T) {
	p := Default()
	for i, want := range game.Personas {
		if got := p.RandomPersona(fixedRand(i)); got != want {
			t.Errorf("RandomPersona(%d): got %s, want %s", i, got, want)
		}
	}
}

func TestParseRejectsInvalidCards(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown persona",
			yaml: "cards:\n  - persona: grumpy\n    prompt: x\n    answers: [a, b, c, d]\n    pick: 0\n",
			want: "人格未知",
		},
		{
			name: "three answers",
			yaml: "cards:\n  - persona: punny\n    prompt: x\n    answers: [a, b, c]\n    pick: 0\n",
			want: "需要 4 个答案",
		},
		{
			name: "pick out of range",
			yaml: "cards:\n  - persona: punny\n    prompt: x\n    answers: [a, b, c, d]\n    pick: 4\n",
			want: "越界",
		},
		{
			name: "missing persona coverage",
			yaml: "cards:\n  - persona: punny\n    prompt: x\n    answers: [a, b, c, d]\n    pick: 1\n",
			want: "没有卡牌",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	_, err := Parse([]byte("cards:\n  - persona: punny\n    prompt: x\n    answers: [a, b, c, d]\n    pick: 1\n"))
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("expected ErrEmptyPool, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	p, err := LoadFile("")
	if err != nil || p.Len() == 0 {
		t.Fatalf("empty path should return default pool: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cards.yaml")
	var b strings.Builder
	b.WriteString("cards:\n")
	for _, persona := range game.Personas {
		b.WriteString("  - persona: " + string(persona) + "\n    prompt: \"Why ________?\"\n    answers: [a, b, c, d]\n    pick: 2\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err = LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("card count: got %d, want 3", p.Len())
	}
	c, _ := p.Draw(fixedRand(0), game.PersonaGrandma)
	if c.PickIndex != 2 {
		t.Errorf("pick: got %d, want 2", c.PickIndex)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
