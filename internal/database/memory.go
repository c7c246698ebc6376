package database

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
)

// MemoryStore 进程内存储，重启即丢失，用于开发与测试
// 每局游戏一把锁；InGame 在副本上工作，fn 成功后整体替换
type MemoryStore struct {
	mu     sync.RWMutex
	agents map[string]*game.Agent
	games  map[string]*game.Game
	rounds map[string][]game.Round
	locks  map[string]*sync.Mutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents: make(map[string]*game.Agent),
		games:  make(map[string]*game.Game),
		rounds: make(map[string][]game.Round),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Close() {}

// ---- 代理 ----

func (s *MemoryStore) findAgent(match func(*game.Agent) bool) *game.Agent {
	for _, a := range s.agents {
		if match(a) {
			c := *a
			return &c
		}
	}
	return nil
}

func (s *MemoryStore) CreateAgent(_ context.Context, a *game.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.agents {
		if existing.Name == a.Name {
			return game.ErrNameTaken
		}
	}
	c := *a
	s.agents[a.ID] = &c
	return nil
}

func (s *MemoryStore) AgentByAPIKey(_ context.Context, apiKey string) (*game.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findAgent(func(a *game.Agent) bool { return a.APIKey == apiKey }), nil
}

func (s *MemoryStore) AgentByID(_ context.Context, id string) (*game.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.agents[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (s *MemoryStore) ClaimAgent(_ context.Context, token string) (*game.Agent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.agents {
		if a.ClaimToken != token {
			continue
		}
		already := a.ClaimStatus == game.ClaimClaimed
		a.ClaimStatus = game.ClaimClaimed
		c := *a
		return &c, already, nil
	}
	return nil, false, nil
}

func (s *MemoryStore) TouchAgent(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[id]; ok {
		a.LastActive = at
	}
	return nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]game.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]game.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Stats.GamesPlayed > 0 {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b game.Agent) int {
		return cmp.Or(
			cmp.Compare(b.Stats.TotalPoints, a.Stats.TotalPoints),
			cmp.Compare(b.Stats.TotalWins, a.Stats.TotalWins),
			a.CreatedAt.Compare(b.CreatedAt),
		)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- 游戏 ----

func (s *MemoryStore) CreateGame(_ context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := g.Clone()
	s.games[g.ID] = &c
	return nil
}

func (s *MemoryStore) Game(_ context.Context, id string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.games[id]; ok {
		c := g.Clone()
		return &c, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListGames(_ context.Context, statuses []game.GameStatus, limit int) ([]game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]game.Game, 0, len(s.games))
	for _, g := range s.games {
		if slices.Contains(statuses, g.Status) {
			out = append(out, g.Clone())
		}
	}
	slices.SortFunc(out, func(a, b game.Game) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Round(_ context.Context, gameID string, number int) (*game.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return roundWhere(s.rounds[gameID], func(r *game.Round) bool { return r.Number == number }), nil
}

func (s *MemoryStore) Rounds(_ context.Context, gameID string) ([]game.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRounds(s.rounds[gameID]), nil
}

func (s *MemoryStore) StaleGameIDs(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, g := range s.games {
		if g.Status != game.GameActive {
			continue
		}
		r := roundWhere(s.rounds[id], func(r *game.Round) bool { return r.Number == g.CurrentRound })
		if r != nil && r.Status != game.RoundScored && r.Deadline.Before(now) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) CleanupAbandonedGames(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, g := range s.games {
		if g.Status == game.GameWaiting && g.UpdatedAt.Before(before) {
			delete(s.games, id)
			delete(s.rounds, id)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	active := time.Now().Add(-ActiveWindow)
	for _, a := range s.agents {
		st.AgentCount++
		if a.ClaimStatus == game.ClaimClaimed {
			st.ClaimedAgentCount++
		}
		if !a.LastActive.Before(active) {
			st.ActiveAgents7Days++
		}
	}
	for id, g := range s.games {
		switch g.Status {
		case game.GameWaiting:
			st.WaitingGames++
		case game.GameActive:
			st.ActiveGames++
		case game.GameFinished:
			st.FinishedGames++
		}
		for _, r := range s.rounds[id] {
			if r.Status == game.RoundScored {
				st.ScoredRounds++
			}
		}
	}
	return &st, nil
}

func (s *MemoryStore) gameLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *MemoryStore) InGame(_ context.Context, gameID string, fn func(tx game.Tx) error) error {
	l := s.gameLock(gameID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	g, ok := s.games[gameID]
	var tx *memTx
	if ok {
		c := g.Clone()
		tx = &memTx{store: s, game: &c, rounds: cloneRounds(s.rounds[gameID])}
	}
	s.mu.RUnlock()
	if !ok {
		return game.ErrGameNotFound
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return game.ErrGameNotFound
	}
	if tx.saved != nil {
		s.games[gameID] = tx.saved
	}
	s.rounds[gameID] = tx.rounds
	for _, r := range tx.results {
		a, ok := s.agents[r.AgentID]
		if !ok {
			continue
		}
		a.Stats.TotalPoints += r.Points
		a.Stats.GamesPlayed++
		if r.Won {
			a.Stats.TotalWins++
		}
		if r.PersonaGuessCorrect {
			a.Stats.CorrectPersonaGuesses++
		}
	}
	return nil
}

func roundWhere(rounds []game.Round, match func(*game.Round) bool) *game.Round {
	for i := range rounds {
		if match(&rounds[i]) {
			c := rounds[i].Clone()
			return &c
		}
	}
	return nil
}

func cloneRounds(rounds []game.Round) []game.Round {
	out := make([]game.Round, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, r.Clone())
	}
	return out
}

// memTx 暂存的工作副本
type memTx struct {
	store   *MemoryStore
	game    *game.Game
	saved   *game.Game
	rounds  []game.Round
	results []game.AgentResult
}

func (t *memTx) Game() *game.Game {
	return t.game
}

func (t *memTx) SaveGame(_ context.Context, g *game.Game) error {
	c := g.Clone()
	t.saved = &c
	return nil
}

func (t *memTx) AgentName(_ context.Context, id string) (string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if a, ok := t.store.agents[id]; ok {
		return a.Name, nil
	}
	return "", nil
}

func (t *memTx) CommitResults(_ context.Context, results []game.AgentResult) error {
	t.results = append(t.results, results...)
	return nil
}

func (t *memTx) Round(_ context.Context, number int) (*game.Round, error) {
	return roundWhere(t.rounds, func(r *game.Round) bool { return r.Number == number }), nil
}

func (t *memTx) RoundByID(_ context.Context, id string) (*game.Round, error) {
	return roundWhere(t.rounds, func(r *game.Round) bool { return r.ID == id }), nil
}

func (t *memTx) OpenRound(_ context.Context) (*game.Round, error) {
	var open *game.Round
	for i := range t.rounds {
		if t.rounds[i].Status == game.RoundOpen && (open == nil || t.rounds[i].Number > open.Number) {
			open = &t.rounds[i]
		}
	}
	if open == nil {
		return nil, nil
	}
	c := open.Clone()
	return &c, nil
}

func (t *memTx) InsertRound(_ context.Context, r *game.Round) error {
	t.rounds = append(t.rounds, r.Clone())
	slices.SortFunc(t.rounds, func(a, b game.Round) int { return cmp.Compare(a.Number, b.Number) })
	return nil
}

func (t *memTx) SaveRound(_ context.Context, r *game.Round) error {
	for i := range t.rounds {
		if t.rounds[i].ID == r.ID {
			t.rounds[i] = r.Clone()
			return nil
		}
	}
	return nil
}
