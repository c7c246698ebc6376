package game

import (
	"slices"
	"time"
)

// PlayerView 对外展示的玩家得分
type PlayerView struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// GameSummary 对外展示的游戏概要
type GameSummary struct {
	ID           string       `json:"id"`
	Status       GameStatus   `json:"status"`
	Players      []PlayerView `json:"players"`
	CurrentRound int          `json:"currentRound"`
	PointsToWin  int          `json:"pointsToWin"`
	WinnerName   string       `json:"winnerName,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}

// Summarize 生成游戏概要
func Summarize(g *Game) GameSummary {
	players := make([]PlayerView, 0, len(g.Scores))
	for _, s := range g.Scores {
		players = append(players, PlayerView{Name: s.AgentName, Points: s.Points})
	}
	return GameSummary{
		ID:           g.ID,
		Status:       g.Status,
		Players:      players,
		CurrentRound: g.CurrentRound,
		PointsToWin:  g.PointsToWin,
		WinnerName:   g.WinnerName,
		CreatedAt:    g.CreatedAt,
		FinishedAt:   g.FinishedAt,
	}
}

// RoundResults 回合计分后才公开的字段
type RoundResults struct {
	DealerPersona       Persona  `json:"dealerPersona"`
	DealerPickIndex     int      `json:"dealerPickIndex"`
	Winners             []string `json:"winners"`
	PersonaGuessWinners []string `json:"personaGuessWinners"`
}

// RoundView 对外展示的回合
// 计分前 RoundResults 为 nil，序列化时其字段整体缺省
type RoundView struct {
	ID               string       `json:"id"`
	RoundNumber      int          `json:"roundNumber"`
	DealerName       string       `json:"dealerName"`
	SystemDealer     bool         `json:"systemDealer"`
	WhiteCard        string       `json:"whiteCard"`
	BlackCards       []string     `json:"blackCards"`
	Deadline         time.Time    `json:"deadline"`
	Status           RoundStatus  `json:"status"`
	SubmissionsCount int          `json:"submissionsCount"`
	TotalPlayers     int          `json:"totalPlayers"`
	AlreadySubmitted bool         `json:"alreadySubmitted"`
	IsDealer         bool         `json:"isDealer"`
	Submissions      []Submission `json:"submissions,omitempty"`
	*RoundResults
	Hint string `json:"hint,omitempty"`
}

// ViewRound 按可见性规则生成回合视图，viewerID 为空表示匿名观察者
func ViewRound(r *Round, g *Game, viewerID string) *RoundView {
	if r == nil {
		return nil
	}
	v := &RoundView{
		ID:               r.ID,
		RoundNumber:      r.Number,
		DealerName:       r.Dealer.Name,
		SystemDealer:     r.Dealer.System,
		WhiteCard:        r.Prompt,
		BlackCards:       slices.Clone(r.Answers),
		Deadline:         r.Deadline,
		Status:           r.Status,
		SubmissionsCount: len(r.Submissions),
		TotalPlayers:     len(g.Players),
	}
	if viewerID != "" {
		v.AlreadySubmitted = r.HasSubmitted(viewerID)
		v.IsDealer = r.Dealer.Is(viewerID)
	}

	switch {
	case r.Status == RoundScored:
		v.Submissions = slices.Clone(r.Submissions)
		v.RoundResults = &RoundResults{
			DealerPersona:       r.Persona,
			DealerPickIndex:     r.PickIndex,
			Winners:             nonNil(r.Winners),
			PersonaGuessWinners: nonNil(r.PersonaWinners),
		}
	case r.Status == RoundClosed && v.IsDealer:
		// 发牌人在关闭后可以看到提交明细，但看不到真实人格
		v.Submissions = slices.Clone(r.Submissions)
	}

	v.Hint = roundHint(r, v)
	return v
}

func roundHint(r *Round, v *RoundView) string {
	switch r.Status {
	case RoundOpen:
		if v.IsDealer {
			return "You are the dealer. Wait for submissions, then pick your favourite with POST /api/rounds/dealer-pick"
		}
		if v.AlreadySubmitted {
			return "Waiting for other players to submit or the deadline to pass."
		}
		return "Submit your answer with POST /api/rounds/submit"
	case RoundClosed:
		if v.IsDealer {
			return "All answers are in! Pick your favourite with POST /api/rounds/dealer-pick"
		}
		return "Waiting for the dealer to pick their favourite."
	case RoundScored:
		return "Round scored. Poll GET /api/rounds/current for the next round."
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
