package handler_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/content"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/database"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/handler"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/router"
)

const testCards = `
cards:
  - persona: sarcastic
    prompt: "Sarcastic ____"
    answers: ["s0", "s1", "s2", "s3"]
    pick: 1
  - persona: grandma
    prompt: "Grandma ____"
    answers: ["g0", "g1", "g2", "g3"]
    pick: 1
  - persona: punny
    prompt: "Punny ____"
    answers: ["p0", "p1", "p2", "p3"]
    pick: 1
personas:
  - id: sarcastic
    name: The Cynic
  - id: grandma
    name: Sweet Grandma
  - id: punny
    name: The Pun Master
`

// zeroRand 恒为 0：系统发牌人、sarcastic、第一张牌
type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Hint    string          `json:"hint"`
}

type server struct {
	t   *testing.T
	mux *http.ServeMux
}

func newServer(t *testing.T) *server {
	t.Helper()
	pool, err := content.Parse([]byte(testCards))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg := &config.Config{AppURL: "http://cards.test"}
	store := database.NewMemoryStore()
	engine := game.NewEngine(store, pool, game.WithRand(zeroRand{}))
	return &server{t: t, mux: router.Setup(handler.New(cfg, engine, store, pool))}
}

func (s *server) do(method, path, apiKey string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// call 发送请求并校验状态码，data 不为空时解析 data 字段
func (s *server) call(method, path, apiKey string, body any, wantStatus int, data any) envelope {
	s.t.Helper()
	rec := s.do(method, path, apiKey, body)
	if rec.Code != wantStatus {
		s.t.Fatalf("%s %s: got status %d, want %d: %s", method, path, rec.Code, wantStatus, rec.Body)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			s.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return env
}

type registered struct {
	Agent struct {
		Name     string `json:"name"`
		APIKey   string `json:"api_key"`
		ClaimURL string `json:"claim_url"`
	} `json:"agent"`
	Important string `json:"important"`
}

func (s *server) register(name string) registered {
	s.t.Helper()
	var reg registered
	s.call(http.MethodPost, "/api/agents/register", "", map[string]string{
		"name": name, "description": "a test agent",
	}, http.StatusCreated, &reg)
	return reg
}

func TestRegisterClaimAndMe(t *testing.T) {
	s := newServer(t)

	reg := s.register("alpha")
	if !strings.HasPrefix(reg.Agent.APIKey, "cah_") || len(reg.Agent.APIKey) != 36 {
		t.Errorf("api key: got %q", reg.Agent.APIKey)
	}
	if !strings.HasPrefix(reg.Agent.ClaimURL, "http://cards.test/claim/cah_claim_") {
		t.Errorf("claim url: got %q", reg.Agent.ClaimURL)
	}
	if reg.Important == "" {
		t.Errorf("missing save-your-key notice")
	}

	env := s.call(http.MethodPost, "/api/agents/register", "", map[string]string{
		"name": "alpha", "description": "again",
	}, http.StatusConflict, nil)
	if env.Success || env.Error != "Name taken" {
		t.Errorf("duplicate name: got %+v", env)
	}

	env = s.call(http.MethodPost, "/api/agents/register", "", map[string]string{"name": "bravo"}, http.StatusBadRequest, nil)
	if env.Error != "Missing fields" || env.Hint == "" {
		t.Errorf("missing description: got %+v", env)
	}

	var me struct {
		Name        string           `json:"name"`
		ClaimStatus game.ClaimStatus `json:"claimStatus"`
		Stats       game.CareerStats `json:"stats"`
	}
	s.call(http.MethodGet, "/api/me", reg.Agent.APIKey, nil, http.StatusOK, &me)
	if me.Name != "alpha" || me.ClaimStatus != game.ClaimPending {
		t.Errorf("me: got %+v", me)
	}

	claimPath := strings.TrimPrefix(reg.Agent.ClaimURL, "http://cards.test")
	var claim struct {
		AgentName      string `json:"agentName"`
		AlreadyClaimed bool   `json:"alreadyClaimed"`
	}
	s.call(http.MethodGet, claimPath, "", nil, http.StatusOK, &claim)
	if claim.AgentName != "alpha" || claim.AlreadyClaimed {
		t.Errorf("first claim: got %+v", claim)
	}
	s.call(http.MethodGet, claimPath, "", nil, http.StatusOK, &claim)
	if !claim.AlreadyClaimed {
		t.Errorf("second claim should report alreadyClaimed")
	}
	s.call(http.MethodGet, "/claim/cah_claim_nope", "", nil, http.StatusNotFound, nil)

	s.call(http.MethodGet, "/api/me", reg.Agent.APIKey, nil, http.StatusOK, &me)
	if me.ClaimStatus != game.ClaimClaimed {
		t.Errorf("claim status after claim: got %s", me.ClaimStatus)
	}
}

func TestAuthErrors(t *testing.T) {
	s := newServer(t)

	env := s.call(http.MethodGet, "/api/games", "", nil, http.StatusUnauthorized, nil)
	if env.Error != "Missing API key" {
		t.Errorf("no key: got %+v", env)
	}
	env = s.call(http.MethodGet, "/api/games", "cah_unknown", nil, http.StatusUnauthorized, nil)
	if env.Error != "Invalid API key" {
		t.Errorf("bad key: got %+v", env)
	}
}

func TestGameFlow(t *testing.T) {
	s := newServer(t)
	alpha := s.register("alpha").Agent.APIKey
	bravo := s.register("bravo").Agent.APIKey
	outsider := s.register("zulu").Agent.APIKey

	var created struct {
		Game struct {
			ID     string          `json:"id"`
			Status game.GameStatus `json:"status"`
		} `json:"game"`
	}
	s.call(http.MethodPost, "/api/games", alpha, nil, http.StatusCreated, &created)
	gid := created.Game.ID
	if created.Game.Status != game.GameWaiting {
		t.Errorf("created status: got %s", created.Game.Status)
	}

	var list struct {
		Games []game.GameSummary `json:"games"`
		Hint  string             `json:"hint"`
	}
	s.call(http.MethodGet, "/api/games", bravo, nil, http.StatusOK, &list)
	if len(list.Games) != 1 || list.Games[0].ID != gid {
		t.Errorf("list: got %+v", list.Games)
	}

	env := s.call(http.MethodPost, "/api/games/join", bravo, map[string]string{}, http.StatusBadRequest, nil)
	if env.Error != "Missing gameId" {
		t.Errorf("join without id: got %+v", env)
	}
	s.call(http.MethodPost, "/api/games/join", bravo, map[string]string{"gameId": "nope"}, http.StatusNotFound, nil)

	var joined game.JoinResult
	s.call(http.MethodPost, "/api/games/join", bravo, map[string]string{"gameId": gid}, http.StatusOK, &joined)
	if joined.Game.Status != game.GameActive || joined.Round == nil {
		t.Fatalf("join: got %+v", joined)
	}
	r1 := joined.Round
	if !r1.SystemDealer || r1.WhiteCard != "Sarcastic ____" {
		t.Errorf("round 1: got %+v", r1)
	}

	env = s.call(http.MethodPost, "/api/rounds/submit", alpha, map[string]any{
		"gameId": gid, "roundId": r1.ID, "personaGuess": "sarcastic",
	}, http.StatusBadRequest, nil)
	if env.Error != "Missing fields" || !strings.Contains(env.Hint, "chosenCardIndex") {
		t.Errorf("submit without index: got %+v", env)
	}

	submit := func(index int, guess string) map[string]any {
		return map[string]any{"gameId": gid, "roundId": r1.ID, "chosenCardIndex": index, "personaGuess": guess}
	}
	s.call(http.MethodPost, "/api/rounds/submit", outsider, submit(0, "grandma"), http.StatusForbidden, nil)

	var sub game.SubmitResult
	s.call(http.MethodPost, "/api/rounds/submit", alpha, submit(0, "sarcastic"), http.StatusOK, &sub)
	if sub.RoundStatus != game.RoundOpen || sub.ChosenCard != "s0" {
		t.Errorf("alpha submit: got %+v", sub)
	}
	s.call(http.MethodPost, "/api/rounds/submit", alpha, submit(1, "grandma"), http.StatusConflict, nil)

	env = s.call(http.MethodPost, "/api/rounds/dealer-pick", alpha, map[string]any{
		"gameId": gid, "roundId": r1.ID, "pickedCardIndex": 1,
	}, http.StatusForbidden, nil)
	if env.Error != "Not the dealer" {
		t.Errorf("pick on system round: got %+v", env)
	}

	s.call(http.MethodPost, "/api/rounds/submit", bravo, submit(1, "punny"), http.StatusOK, &sub)
	if sub.RoundStatus != game.RoundScored {
		t.Errorf("quorum submit: got %+v", sub)
	}

	env = s.call(http.MethodGet, "/api/rounds/current", alpha, nil, http.StatusBadRequest, nil)
	if env.Error != "Missing gameId" {
		t.Errorf("current without id: got %+v", env)
	}

	var cur struct {
		Game     game.GameSummary `json:"game"`
		Round    *game.RoundView  `json:"round"`
		Previous *game.RoundView  `json:"previousRound"`
	}
	s.call(http.MethodGet, "/api/rounds/current?gameId="+gid, alpha, nil, http.StatusOK, &cur)
	if cur.Round == nil || cur.Round.RoundNumber != 2 {
		t.Fatalf("current round: got %+v", cur.Round)
	}
	if cur.Previous == nil || cur.Previous.RoundResults == nil {
		t.Fatalf("previous round results missing: %+v", cur.Previous)
	}
	if cur.Previous.DealerPickIndex != 1 || len(cur.Previous.Winners) != 1 || len(cur.Previous.PersonaGuessWinners) != 1 {
		t.Errorf("previous results: got %+v", cur.Previous.RoundResults)
	}
	if scores := cur.Game.Players; scores[0].Points != 1 || scores[1].Points != 2 {
		t.Errorf("scores: got %+v", scores)
	}

	var live struct {
		Games     []game.LiveGame `json:"games"`
		Timestamp string          `json:"timestamp"`
	}
	s.call(http.MethodGet, "/api/live", "", nil, http.StatusOK, &live)
	if len(live.Games) != 1 || live.Games[0].Round == nil || live.Timestamp == "" {
		t.Errorf("live: got %+v", live)
	}

	var stats database.Stats
	s.call(http.MethodGet, "/api/stats", "", nil, http.StatusOK, &stats)
	if stats.AgentCount != 3 || stats.ActiveGames != 1 || stats.ScoredRounds != 1 {
		t.Errorf("stats: got %+v", stats)
	}
}

func TestExportGame(t *testing.T) {
	s := newServer(t)
	alpha := s.register("alpha").Agent.APIKey
	bravo := s.register("bravo").Agent.APIKey
	outsider := s.register("zulu").Agent.APIKey

	var created struct {
		Game struct {
			ID string `json:"id"`
		} `json:"game"`
	}
	s.call(http.MethodPost, "/api/games", alpha, nil, http.StatusCreated, &created)
	gid := created.Game.ID
	s.call(http.MethodPost, "/api/games/join", bravo, map[string]string{"gameId": gid}, http.StatusOK, nil)

	s.call(http.MethodGet, "/api/games/not-a-uuid/export", alpha, nil, http.StatusBadRequest, nil)
	s.call(http.MethodGet, "/api/games/"+gid+"/export", outsider, nil, http.StatusForbidden, nil)

	rec := s.do(http.MethodGet, "/api/games/"+gid+"/export", alpha, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "game_"+gid+".zip") {
		t.Errorf("content disposition: got %q", cd)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "game.json,round_001.json" {
		t.Errorf("zip entries: got %v", names)
	}

	f, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open round: %v", err)
	}
	defer f.Close()
	var rv map[string]any
	if err := json.NewDecoder(f).Decode(&rv); err != nil {
		t.Fatalf("decode round: %v", err)
	}
	if _, ok := rv["dealerPersona"]; ok {
		t.Errorf("open round export exposes persona: %v", rv)
	}
}

func TestPublicEndpoints(t *testing.T) {
	s := newServer(t)
	s.register("alpha")

	var board struct {
		Leaderboard []handler.LeaderboardEntry `json:"leaderboard"`
	}
	s.call(http.MethodGet, "/api/leaderboard", "", nil, http.StatusOK, &board)
	if board.Leaderboard == nil || len(board.Leaderboard) != 0 {
		t.Errorf("agents without games should not be ranked: got %+v", board.Leaderboard)
	}

	var personas struct {
		Personas []content.PersonaInfo `json:"personas"`
	}
	s.call(http.MethodGet, "/api/personas", "", nil, http.StatusOK, &personas)
	if len(personas.Personas) != 3 || personas.Personas[1].Name != "Sweet Grandma" {
		t.Errorf("personas: got %+v", personas.Personas)
	}

	rec := s.do(http.MethodGet, "/isalive", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("isalive: got %d", rec.Code)
	}
}
