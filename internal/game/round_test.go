package game

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRound(dealer Dealer, pick int) *Round {
	return &Round{
		ID:             "r1",
		GameID:         "g1",
		Number:         1,
		Dealer:         dealer,
		Persona:        PersonaPunny,
		Prompt:         "What ruined the picnic?",
		Answers:        []string{"ants", "rain", "puns", "grandma"},
		PickIndex:      pick,
		Submissions:    []Submission{},
		Status:         RoundOpen,
		Deadline:       t0.Add(DefaultRoundWindow),
		Winners:        []string{},
		PersonaWinners: []string{},
	}
}

func sampleGame(players ...string) *Game {
	g := &Game{ID: "g1", Status: GameActive, PointsToWin: DefaultPointsToWin, CurrentRound: 1}
	for _, p := range players {
		g.Players = append(g.Players, p)
		g.Scores = append(g.Scores, PlayerScore{AgentID: p, AgentName: strings.ToUpper(p)})
	}
	return g
}

func TestCheckSubmissionOrder(t *testing.T) {
	dealer := AgentDealer("d", "D")
	tests := []struct {
		name    string
		mutate  func(r *Round)
		agent   string
		index   int
		guess   string
		now     time.Time
		wantErr error
	}{
		{"closed beats everything", func(r *Round) { r.Status = RoundClosed }, "d", 9, "x", t0.Add(time.Hour), ErrRoundClosed},
		{"deadline before dealer", nil, "d", 9, "x", t0.Add(time.Hour), ErrDeadlinePassed},
		{"dealer before index", nil, "d", 9, "x", t0, ErrDealerSubmit},
		{"duplicate before index", func(r *Round) {
			r.Submissions = append(r.Submissions, Submission{AgentID: "p"})
		}, "p", 9, "x", t0, ErrAlreadySubmitted},
		{"index before persona", nil, "p", -1, "x", t0, ErrInvalidAnswer},
		{"persona", nil, "p", 0, "pirate", t0, ErrInvalidPersona},
		{"valid", nil, "p", 3, "grandma", t0, nil},
		{"at deadline is still open", nil, "p", 0, "punny", t0.Add(DefaultRoundWindow), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRound(dealer, NoPick)
			if tt.mutate != nil {
				tt.mutate(r)
			}
			err := checkSubmission(r, tt.agent, tt.index, tt.guess, tt.now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuorum(t *testing.T) {
	g := sampleGame("a", "b", "c")
	if n := quorum(sampleRound(SystemDealer(), 0), g); n != 3 {
		t.Errorf("system dealer quorum: got %d, want 3", n)
	}
	if n := quorum(sampleRound(AgentDealer("b", "B"), NoPick), g); n != 2 {
		t.Errorf("agent dealer quorum: got %d, want 2", n)
	}
}

func TestTick(t *testing.T) {
	t.Run("open before deadline", func(t *testing.T) {
		r := sampleRound(SystemDealer(), 1)
		if _, changed := Tick(*r, t0); changed {
			t.Errorf("tick before deadline changed the round")
		}
	})

	t.Run("expired system round scores", func(t *testing.T) {
		r := sampleRound(SystemDealer(), 2)
		r.Submissions = []Submission{
			{AgentID: "a", AnswerIndex: 2, PersonaGuess: PersonaPunny},
			{AgentID: "b", AnswerIndex: 0, PersonaGuess: PersonaGrandma},
		}
		next, changed := Tick(*r, t0.Add(time.Hour))
		if !changed || next.Status != RoundScored {
			t.Fatalf("got %s changed=%v, want scored", next.Status, changed)
		}
		if len(next.Winners) != 1 || next.Winners[0] != "a" {
			t.Errorf("winners: got %v", next.Winners)
		}
		if r.Status != RoundOpen {
			t.Errorf("Tick mutated its input")
		}

		again, changed := Tick(next, t0.Add(2*time.Hour))
		if changed || again.Status != RoundScored {
			t.Errorf("tick on scored round changed it")
		}
	})

	t.Run("expired agent round waits for dealer", func(t *testing.T) {
		r := sampleRound(AgentDealer("d", "D"), NoPick)
		next, changed := Tick(*r, t0.Add(time.Hour))
		if !changed || next.Status != RoundClosed {
			t.Fatalf("got %s changed=%v, want closed", next.Status, changed)
		}
		if _, changed := Tick(next, t0.Add(2*time.Hour)); changed {
			t.Errorf("closed round without a pick should stay put")
		}
	})

	t.Run("closed with pick scores", func(t *testing.T) {
		r := sampleRound(SystemDealer(), 0)
		r.Status = RoundClosed
		next, changed := Tick(*r, t0)
		if !changed || next.Status != RoundScored {
			t.Errorf("got %s changed=%v, want scored", next.Status, changed)
		}
	})
}

func TestScoreAllowsBothPoints(t *testing.T) {
	r := sampleRound(SystemDealer(), 3)
	r.Submissions = []Submission{
		{AgentID: "a", AnswerIndex: 3, PersonaGuess: PersonaPunny},
		{AgentID: "b", AnswerIndex: 3, PersonaGuess: PersonaSarcastic},
		{AgentID: "c", AnswerIndex: 1, PersonaGuess: PersonaPunny},
	}
	score(r, t0)

	g := sampleGame("a", "b", "c")
	applyRound(g, r)
	want := []int{3, 2, 1}
	for i, s := range g.Scores {
		if s.Points != want[i] {
			t.Errorf("%s: got %d points, want %d", s.AgentID, s.Points, want[i])
		}
	}
}

func TestLeaderUsesMembershipOrder(t *testing.T) {
	g := sampleGame("a", "b")
	g.PointsToWin = 3
	g.Scores[0].Points = 3
	g.Scores[1].Points = 5

	w, ok := leader(g)
	if !ok || w.AgentID != "a" {
		t.Errorf("got %+v, %v, want a", w, ok)
	}

	g.Scores[0].Points = 2
	g.Scores[1].Points = 2
	if _, ok := leader(g); ok {
		t.Errorf("no one reached the target")
	}
}

func TestResultsPersonaFromDecidingRound(t *testing.T) {
	g := sampleGame("a", "b")
	g.Scores[0].Points = 5
	finish(g, g.Scores[0], t0)

	deciding := &Round{PersonaWinners: []string{"b"}}
	res := results(g, deciding)
	if len(res) != 2 {
		t.Fatalf("got %d results", len(res))
	}
	if !res[0].Won || res[0].PersonaGuessCorrect || res[0].Points != 5 {
		t.Errorf("winner result: got %+v", res[0])
	}
	if res[1].Won || !res[1].PersonaGuessCorrect {
		t.Errorf("other result: got %+v", res[1])
	}
}

func TestViewRoundVisibility(t *testing.T) {
	g := sampleGame("a", "b")
	r := sampleRound(AgentDealer("a", "A"), NoPick)
	r.Submissions = []Submission{{AgentID: "b", AgentName: "B", AnswerIndex: 1, PersonaGuess: PersonaPunny}}

	hidden := []string{`"dealerPersona"`, `"dealerPickIndex"`, `"winners"`, `"personaGuessWinners"`, `"submissions"`}

	open, _ := json.Marshal(ViewRound(r, g, "b"))
	for _, key := range hidden {
		if strings.Contains(string(open), key) {
			t.Errorf("open round exposes %s: %s", key, open)
		}
	}

	r.Status = RoundClosed
	dealerView := ViewRound(r, g, "a")
	if !dealerView.IsDealer || len(dealerView.Submissions) != 1 {
		t.Errorf("dealer should see submissions once closed: %+v", dealerView)
	}
	closed, _ := json.Marshal(dealerView)
	if strings.Contains(string(closed), `"dealerPersona"`) {
		t.Errorf("closed round exposes persona to dealer: %s", closed)
	}

	r.PickIndex = 1
	score(r, t0)
	scored, _ := json.Marshal(ViewRound(r, g, ""))
	for _, key := range hidden {
		if !strings.Contains(string(scored), key) {
			t.Errorf("scored round missing %s: %s", key, scored)
		}
	}
}

func TestDealRound(t *testing.T) {
	content := fixedContent{}
	name := func(id string) string { return strings.ToUpper(id) }

	t.Run("single player gets system dealer", func(t *testing.T) {
		r, err := dealRound(&scripted{vals: []int{2}}, content, sampleGame("a"), 1, name, t0, time.Minute)
		if err != nil {
			t.Fatalf("dealRound: %v", err)
		}
		if !r.Dealer.System || r.Persona != PersonaPunny || r.PickIndex != 1 {
			t.Errorf("got %+v", r)
		}
		if !r.Deadline.Equal(t0.Add(time.Minute)) {
			t.Errorf("deadline: got %v", r.Deadline)
		}
	})

	t.Run("rotating agent dealer", func(t *testing.T) {
		g := sampleGame("a", "b", "c")
		r, err := dealRound(&scripted{vals: []int{1, 1}}, content, g, 5, name, t0, time.Minute)
		if err != nil {
			t.Fatalf("dealRound: %v", err)
		}
		if r.Dealer.AgentID != "b" || r.Dealer.Name != "B" || r.PickIndex != NoPick {
			t.Errorf("got dealer %+v pick %d", r.Dealer, r.PickIndex)
		}
		if r.Persona != PersonaGrandma {
			t.Errorf("persona: got %s", r.Persona)
		}
	})
}

type scripted struct {
	vals []int
}

func (s *scripted) IntN(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v % n
}

type fixedContent struct{}

func (fixedContent) Draw(_ Rand, persona Persona) (Card, error) {
	return Card{Persona: persona, Prompt: "p", Answers: []string{"a", "b", "c", "d"}, PickIndex: 1}, nil
}

func (fixedContent) RandomPersona(rng Rand) Persona {
	return Personas[rng.IntN(len(Personas))]
}
