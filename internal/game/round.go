package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Rand 可注入的随机源，*rand.Rand 满足该接口
type Rand interface {
	IntN(n int) int
}

// ContentSource 题目内容源
type ContentSource interface {
	Draw(rng Rand, persona Persona) (Card, error)
	RandomPersona(rng Rand) Persona
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// lockedRand 让非并发安全的随机源可以在多个请求间共享
type lockedRand struct {
	mu  sync.Mutex
	rng Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// dealRound 生成新回合（不落库）
// 人数不足 2 人或抛硬币为正面时使用系统发牌人，否则按加入顺序轮值
func dealRound(rng Rand, content ContentSource, g *Game, number int, dealerName func(id string) string, now time.Time, window time.Duration) (*Round, error) {
	r := &Round{
		ID:             uuid.NewString(),
		GameID:         g.ID,
		Number:         number,
		PickIndex:      NoPick,
		Submissions:    []Submission{},
		Status:         RoundOpen,
		Deadline:       now.Add(window),
		Winners:        []string{},
		PersonaWinners: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	system := len(g.Players) < 2 || rng.IntN(2) == 0
	if system {
		r.Dealer = SystemDealer()
		r.Persona = Personas[rng.IntN(len(Personas))]
	} else {
		dealerID := g.Players[(number-1)%len(g.Players)]
		r.Dealer = AgentDealer(dealerID, dealerName(dealerID))
		r.Persona = content.RandomPersona(rng)
	}

	card, err := content.Draw(rng, r.Persona)
	if err != nil {
		return nil, fmt.Errorf("抽取题目失败: %w", err)
	}
	if len(card.Answers) != AnswerCount {
		return nil, fmt.Errorf("题目答案数量错误: %d", len(card.Answers))
	}
	r.Prompt = card.Prompt
	r.Answers = slices.Clone(card.Answers)
	if system {
		r.PickIndex = card.PickIndex
	}

	return r, nil
}

// checkSubmission 按固定顺序校验提交，第一个失败的条件决定错误
func checkSubmission(r *Round, agentID string, index int, guess string, now time.Time) error {
	if r.Status != RoundOpen {
		return ErrRoundClosed
	}
	if now.After(r.Deadline) {
		return ErrDeadlinePassed
	}
	if r.Dealer.Is(agentID) {
		return ErrDealerSubmit
	}
	if r.HasSubmitted(agentID) {
		return ErrAlreadySubmitted
	}
	if index < 0 || index >= AnswerCount {
		return ErrInvalidAnswer
	}
	if _, ok := ParsePersona(guess); !ok {
		return ErrInvalidPersona
	}
	return nil
}

// quorum 非发牌人的玩家数量
func quorum(r *Round, g *Game) int {
	n := 0
	for _, p := range g.Players {
		if !r.Dealer.Is(p) {
			n++
		}
	}
	return n
}

// addSubmission 追加提交并在达到法定人数时关闭回合；已有参考答案的回合当场计分
func addSubmission(r *Round, g *Game, agent *Agent, index int, guess Persona, now time.Time) {
	r.Submissions = append(r.Submissions, Submission{
		AgentID:      agent.ID,
		AgentName:    agent.Name,
		AnswerIndex:  index,
		PersonaGuess: guess,
		SubmittedAt:  now,
	})
	r.UpdatedAt = now

	if len(r.Submissions) >= quorum(r, g) {
		r.Status = RoundClosed
		if r.HasPick() {
			score(r, now)
		}
	}
}

// checkPick 发牌人选择的前置条件
func checkPick(r *Round, agentID string, index int) error {
	if !r.Dealer.Is(agentID) {
		return ErrNotDealer
	}
	if r.Status != RoundClosed {
		return ErrRoundNotClosed
	}
	if index < 0 || index >= AnswerCount {
		return ErrInvalidPick
	}
	return nil
}

// score 按参考答案和真实人格计算赢家
func score(r *Round, now time.Time) {
	winners := make([]string, 0, len(r.Submissions))
	personaWinners := make([]string, 0, len(r.Submissions))
	for _, s := range r.Submissions {
		if s.AnswerIndex == r.PickIndex {
			winners = append(winners, s.AgentID)
		}
		if s.PersonaGuess == r.Persona {
			personaWinners = append(personaWinners, s.AgentID)
		}
	}
	r.Winners = winners
	r.PersonaWinners = personaWinners
	r.Status = RoundScored
	r.UpdatedAt = now
}

// Tick 惰性到期检查
// 已计分的回合原样返回；开放回合超过截止时间后关闭，若已有参考答案则直接计分。
// 没有参考答案的代理发牌回合停留在 closed，等待发牌人选择。
func Tick(r Round, now time.Time) (Round, bool) {
	if r.Status == RoundScored {
		return r, false
	}

	changed := false
	if r.Status == RoundOpen && now.After(r.Deadline) {
		r = r.Clone()
		r.Status = RoundClosed
		r.UpdatedAt = now
		changed = true
	}
	if r.Status == RoundClosed && r.HasPick() {
		if !changed {
			r = r.Clone()
		}
		score(&r, now)
		changed = true
	}
	return r, changed
}

// overdue 代理发牌人超过宽限期仍未选择
func overdue(r *Round, now time.Time, grace time.Duration) bool {
	return grace > 0 &&
		r.Status == RoundClosed &&
		!r.HasPick() &&
		!r.Dealer.System &&
		now.After(r.Deadline.Add(grace))
}

// answerText 安全地取答案文本
func answerText(r *Round, index int) string {
	if index < 0 || index >= len(r.Answers) {
		return ""
	}
	return r.Answers[index]
}

// submissionNames 按提交顺序取出指定代理的名称
func submissionNames(r *Round, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, s := range r.Submissions {
		if slices.Contains(ids, s.AgentID) {
			names = append(names, s.AgentName)
		}
	}
	return names
}
