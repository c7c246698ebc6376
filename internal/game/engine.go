package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine 游戏引擎：在单局事务内驱动游戏与回合的状态机
type Engine struct {
	repo        Repository
	content     ContentSource
	rng         Rand
	now         func() time.Time
	pointsToWin int
	window      time.Duration
	dealerGrace time.Duration
}

// Option 引擎选项
type Option func(*Engine)

// WithRand 注入随机源，非并发安全的随机源会被加锁包装
func WithRand(rng Rand) Option {
	return func(e *Engine) {
		e.rng = &lockedRand{rng: rng}
	}
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithPointsToWin 新游戏的获胜分数
func WithPointsToWin(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pointsToWin = n
		}
	}
}

// WithRoundWindow 回合提交窗口
func WithRoundWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithDealerGrace 代理发牌人截止后的宽限期，超时由系统随机选择；0 表示一直等待
func WithDealerGrace(d time.Duration) Option {
	return func(e *Engine) {
		e.dealerGrace = max(d, 0)
	}
}

// NewEngine 创建引擎
func NewEngine(repo Repository, content ContentSource, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		content:     content,
		rng:         globalRand{},
		now:         time.Now,
		pointsToWin: DefaultPointsToWin,
		window:      DefaultRoundWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now 引擎时钟
func (e *Engine) Now() time.Time {
	return e.now()
}

// inGame 在单局事务中执行 fn
// 业务错误视为正常结果：之前的惰性推进照常提交，错误原样返回给调用方
func (e *Engine) inGame(ctx context.Context, gameID string, fn func(tx Tx, now time.Time) error) error {
	var opErr error
	err := e.repo.InGame(ctx, gameID, func(tx Tx) error {
		opErr = fn(tx, e.now())
		if _, ok := AsError(opErr); ok {
			return nil
		}
		return opErr
	})
	if err != nil {
		return err
	}
	return opErr
}

// tick 惰性推进当前回合：到期关闭、计分，计分后推进游戏
func (e *Engine) tick(ctx context.Context, tx Tx, now time.Time) (bool, error) {
	g := tx.Game()
	if g.Status != GameActive {
		return false, nil
	}

	current, err := tx.Round(ctx, g.CurrentRound)
	if err != nil {
		return false, fmt.Errorf("读取当前回合失败: %w", err)
	}
	if current == nil {
		return false, nil
	}

	next, changed := Tick(*current, now)
	if overdue(&next, now, e.dealerGrace) {
		if !changed {
			next = next.Clone()
		}
		next.PickIndex = e.rng.IntN(AnswerCount)
		score(&next, now)
		changed = true
		slog.Warn("发牌人超时未选择，系统代选",
			"game", g.ID, "round", next.Number, "dealer", next.Dealer.AgentID, "pick", next.PickIndex)
	}
	if !changed {
		return false, nil
	}

	if err := tx.SaveRound(ctx, &next); err != nil {
		return false, fmt.Errorf("保存回合失败: %w", err)
	}
	slog.Info("回合到期", "game", g.ID, "round", next.Number, "status", next.Status)

	if next.Status == RoundScored {
		if err := e.advance(ctx, tx, &next, now); err != nil {
			return false, err
		}
	}
	return true, nil
}

// advance 回合计分后结算得分，判断胜负或开启下一回合
func (e *Engine) advance(ctx context.Context, tx Tx, r *Round, now time.Time) error {
	g := tx.Game()
	applyRound(g, r)
	g.UpdatedAt = now

	if winner, ok := leader(g); ok {
		finish(g, winner, now)
		if err := tx.CommitResults(ctx, results(g, r)); err != nil {
			return fmt.Errorf("提交生涯统计失败: %w", err)
		}
		slog.Info("游戏结束", "game", g.ID, "winner", winner.AgentName, "rounds", g.CurrentRound)
	} else {
		g.CurrentRound++
		if err := e.openRound(ctx, tx, g, now); err != nil {
			return err
		}
	}

	if err := tx.SaveGame(ctx, g); err != nil {
		return fmt.Errorf("保存游戏失败: %w", err)
	}
	return nil
}

// openRound 为 g.CurrentRound 发牌并落库
func (e *Engine) openRound(ctx context.Context, tx Tx, g *Game, now time.Time) error {
	name := func(id string) string {
		n, err := tx.AgentName(ctx, id)
		if err == nil && n != "" {
			return n
		}
		if err != nil {
			slog.Warn("解析发牌人名称失败", "agent", id, "error", err)
		}
		if s, ok := scoreOf(g, id); ok && s.AgentName != "" {
			return s.AgentName
		}
		return UnknownAgentName
	}

	r, err := dealRound(e.rng, e.content, g, g.CurrentRound, name, now, e.window)
	if err != nil {
		return err
	}
	if err := tx.InsertRound(ctx, r); err != nil {
		return fmt.Errorf("创建回合失败: %w", err)
	}
	slog.Info("新回合", "game", g.ID, "round", r.Number, "dealer", r.Dealer.Name, "system", r.Dealer.System)
	return nil
}

// CreateGame 创建游戏
func (e *Engine) CreateGame(ctx context.Context, creator *Agent) (*Game, error) {
	g := newGame(creator, e.pointsToWin, e.now())
	if err := e.repo.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("创建游戏失败: %w", err)
	}
	slog.Info("创建游戏", "game", g.ID, "creator", creator.Name)
	return g, nil
}

// ListGames 等待中与进行中的游戏，最新的在前
func (e *Engine) ListGames(ctx context.Context, limit int) ([]GameSummary, error) {
	games, err := e.repo.ListGames(ctx, []GameStatus{GameWaiting, GameActive}, limit)
	if err != nil {
		return nil, fmt.Errorf("获取游戏列表失败: %w", err)
	}
	out := make([]GameSummary, 0, len(games))
	for i := range games {
		out = append(out, Summarize(&games[i]))
	}
	return out, nil
}

// JoinResult 加入结果
type JoinResult struct {
	Game  GameSummary `json:"game"`
	Round *RoundView  `json:"round"`
}

// Join 加入游戏；满 2 人时开局并发出第 1 回合
func (e *Engine) Join(ctx context.Context, gameID string, agent *Agent) (*JoinResult, error) {
	var res *JoinResult
	err := e.inGame(ctx, gameID, func(tx Tx, now time.Time) error {
		if _, err := e.tick(ctx, tx, now); err != nil {
			return err
		}

		g := tx.Game()
		if g.Status == GameFinished {
			return ErrGameFinished
		}

		changed := addPlayer(g, agent)
		if shouldStart(g) {
			g.Status = GameActive
			g.CurrentRound = 1
			if err := e.openRound(ctx, tx, g, now); err != nil {
				return err
			}
			changed = true
			slog.Info("游戏开始", "game", g.ID, "players", len(g.Players))
		}
		if changed {
			g.UpdatedAt = now
			if err := tx.SaveGame(ctx, g); err != nil {
				return fmt.Errorf("保存游戏失败: %w", err)
			}
		}

		open, err := tx.OpenRound(ctx)
		if err != nil {
			return fmt.Errorf("读取开放回合失败: %w", err)
		}
		res = &JoinResult{Game: Summarize(g)}
		if open != nil && open.Number == g.CurrentRound {
			res.Round = ViewRound(open, g, agent.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CurrentResult 当前回合
type CurrentResult struct {
	Game     GameSummary `json:"game"`
	Round    *RoundView  `json:"round"`
	Previous *RoundView  `json:"previousRound,omitempty"`
	Hint     string      `json:"hint,omitempty"`
}

// Current 惰性推进后返回当前回合，附带上一回合的结果
func (e *Engine) Current(ctx context.Context, gameID string, viewer *Agent) (*CurrentResult, error) {
	var res *CurrentResult
	err := e.inGame(ctx, gameID, func(tx Tx, now time.Time) error {
		if _, err := e.tick(ctx, tx, now); err != nil {
			return err
		}

		g := tx.Game()
		res = &CurrentResult{Game: Summarize(g)}

		r, err := tx.Round(ctx, g.CurrentRound)
		if err != nil {
			return fmt.Errorf("读取当前回合失败: %w", err)
		}
		res.Round = ViewRound(r, g, viewer.ID)

		if g.CurrentRound > 1 && g.Status != GameFinished {
			prev, err := tx.Round(ctx, g.CurrentRound-1)
			if err != nil {
				return fmt.Errorf("读取上一回合失败: %w", err)
			}
			res.Previous = ViewRound(prev, g, viewer.ID)
		}

		switch {
		case g.Status == GameFinished:
			res.Hint = "Game over! " + g.WinnerName + " won."
		case r == nil:
			res.Hint = "Waiting for round to start"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitRequest 提交答案
type SubmitRequest struct {
	GameID       string
	RoundID      string
	Agent        *Agent
	AnswerIndex  int
	PersonaGuess string
}

// SubmitResult 提交结果
type SubmitResult struct {
	ChosenCard   string      `json:"chosenCard"`
	PersonaGuess Persona     `json:"personaGuess"`
	RoundStatus  RoundStatus `json:"roundStatus"`
	Hint         string      `json:"hint"`
}

// Submit 提交答案与人格猜测
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	var res *SubmitResult
	err := e.inGame(ctx, req.GameID, func(tx Tx, now time.Time) error {
		r, err := tx.RoundByID(ctx, req.RoundID)
		if err != nil {
			return fmt.Errorf("读取回合失败: %w", err)
		}
		if r == nil {
			return ErrRoundNotFound
		}
		if r.GameID != req.GameID {
			return ErrRoundMismatch
		}
		if !tx.Game().HasPlayer(req.Agent.ID) {
			return ErrNotMember
		}

		// 先按库中状态校验，再做惰性推进，这样过期提交得到的是 Deadline passed
		checkErr := checkSubmission(r, req.Agent.ID, req.AnswerIndex, req.PersonaGuess, now)
		if _, err := e.tick(ctx, tx, now); err != nil {
			return err
		}
		if checkErr != nil {
			return checkErr
		}

		r, err = tx.RoundByID(ctx, req.RoundID)
		if err != nil {
			return fmt.Errorf("读取回合失败: %w", err)
		}
		if r.Status != RoundOpen {
			return ErrRoundClosed
		}

		g := tx.Game()
		guess := Persona(req.PersonaGuess)
		addSubmission(r, g, req.Agent, req.AnswerIndex, guess, now)
		if err := tx.SaveRound(ctx, r); err != nil {
			return fmt.Errorf("保存提交失败: %w", err)
		}
		if r.Status == RoundScored {
			if err := e.advance(ctx, tx, r, now); err != nil {
				return err
			}
		}

		res = &SubmitResult{
			ChosenCard:   answerText(r, req.AnswerIndex),
			PersonaGuess: guess,
			RoundStatus:  r.Status,
		}
		switch r.Status {
		case RoundOpen:
			res.Hint = "Waiting for other players to submit or the deadline to pass."
		case RoundClosed:
			res.Hint = "All players have submitted. Waiting for the dealer to pick their favourite."
		case RoundScored:
			res.Hint = "All players have submitted and the round is scored. Poll the current round for results."
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PickRequest 发牌人选择
type PickRequest struct {
	GameID    string
	RoundID   string
	Agent     *Agent
	PickIndex int
}

// PickResult 发牌人选择结果
type PickResult struct {
	PickedCard          string       `json:"pickedCard"`
	DealerPersona       Persona      `json:"dealerPersona"`
	Winners             []string     `json:"winners"`
	PersonaGuessWinners []string     `json:"personaGuessWinners"`
	Scores              []PlayerView `json:"scores"`
	GameOver            bool         `json:"gameOver"`
	GameWinner          *string      `json:"gameWinner"`
	NextRound           *int         `json:"nextRound"`
}

// DealerPick 代理发牌人选择最喜欢的答案并计分
func (e *Engine) DealerPick(ctx context.Context, req PickRequest) (*PickResult, error) {
	var res *PickResult
	err := e.inGame(ctx, req.GameID, func(tx Tx, now time.Time) error {
		if _, err := e.tick(ctx, tx, now); err != nil {
			return err
		}

		r, err := tx.RoundByID(ctx, req.RoundID)
		if err != nil {
			return fmt.Errorf("读取回合失败: %w", err)
		}
		if r == nil {
			return ErrRoundNotFound
		}
		if r.GameID != req.GameID {
			return ErrRoundMismatch
		}
		if err := checkPick(r, req.Agent.ID, req.PickIndex); err != nil {
			return err
		}

		r.PickIndex = req.PickIndex
		score(r, now)
		if err := tx.SaveRound(ctx, r); err != nil {
			return fmt.Errorf("保存回合失败: %w", err)
		}
		if err := e.advance(ctx, tx, r, now); err != nil {
			return err
		}
		slog.Info("发牌人已选择", "game", req.GameID, "round", r.Number, "pick", r.PickIndex,
			"winners", len(r.Winners), "personaWinners", len(r.PersonaWinners))

		g := tx.Game()
		summary := Summarize(g)
		res = &PickResult{
			PickedCard:          answerText(r, r.PickIndex),
			DealerPersona:       r.Persona,
			Winners:             submissionNames(r, r.Winners),
			PersonaGuessWinners: submissionNames(r, r.PersonaWinners),
			Scores:              summary.Players,
			GameOver:            g.Status == GameFinished,
		}
		if res.GameOver {
			res.GameWinner = &g.WinnerName
		} else {
			next := g.CurrentRound
			res.NextRound = &next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Refresh 只做惰性推进，返回状态是否变化
func (e *Engine) Refresh(ctx context.Context, gameID string) (bool, error) {
	var changed bool
	err := e.inGame(ctx, gameID, func(tx Tx, now time.Time) error {
		var err error
		changed, err = e.tick(ctx, tx, now)
		return err
	})
	return changed, err
}

// Sweep 推进所有已过期的当前回合，供定时任务调用
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.repo.StaleGameIDs(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("查询过期回合失败: %w", err)
	}

	count := 0
	for _, id := range ids {
		changed, err := e.Refresh(ctx, id)
		if err != nil {
			slog.Error("推进过期回合失败", "game", id, "error", err)
			continue
		}
		if changed {
			count++
		}
	}
	return count, nil
}

// LiveGame 实况面板中的一局游戏
type LiveGame struct {
	GameSummary
	Round *RoundView `json:"round"`
}

// Live 实况面板：只读，到期状态仅在内存中推算，不落库
func (e *Engine) Live(ctx context.Context, limit int) ([]LiveGame, error) {
	games, err := e.repo.ListGames(ctx, []GameStatus{GameWaiting, GameActive}, limit)
	if err != nil {
		return nil, fmt.Errorf("获取游戏列表失败: %w", err)
	}

	now := e.now()
	out := make([]LiveGame, 0, len(games))
	for i := range games {
		g := &games[i]
		lg := LiveGame{GameSummary: Summarize(g)}

		r, err := e.repo.Round(ctx, g.ID, g.CurrentRound)
		if err != nil {
			return nil, fmt.Errorf("读取当前回合失败: %w", err)
		}
		if r != nil {
			ticked, _ := Tick(*r, now)
			lg.Round = ViewRound(&ticked, g, "")
		}
		out = append(out, lg)
	}
	return out, nil
}

// Export 导出成员可见的全部回合
func (e *Engine) Export(ctx context.Context, gameID string, agent *Agent) (*GameSummary, []RoundView, error) {
	g, err := e.repo.Game(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("读取游戏失败: %w", err)
	}
	if g == nil {
		return nil, nil, ErrGameNotFound
	}
	if !g.HasPlayer(agent.ID) {
		return nil, nil, ErrNotMember
	}

	rounds, err := e.repo.Rounds(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("读取回合失败: %w", err)
	}
	views := make([]RoundView, 0, len(rounds))
	for i := range rounds {
		views = append(views, *ViewRound(&rounds[i], g, agent.ID))
	}
	summary := Summarize(g)
	return &summary, views, nil
}
