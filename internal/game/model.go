// Package game 实现游戏与回合的生命周期引擎
package game

import (
	"slices"
	"time"
)

// Persona 发牌人的隐藏人格
type Persona string

const (
	PersonaSarcastic Persona = "sarcastic"
	PersonaGrandma   Persona = "grandma"
	PersonaPunny     Persona = "punny"
)

// Personas 固定的人格枚举，顺序即随机抽取的下标顺序
var Personas = []Persona{PersonaSarcastic, PersonaGrandma, PersonaPunny}

// ParsePersona 解析人格字符串
func ParsePersona(s string) (Persona, bool) {
	p := Persona(s)
	return p, slices.Contains(Personas, p)
}

// GameStatus 游戏状态
type GameStatus string

const (
	GameWaiting  GameStatus = "waiting"
	GameActive   GameStatus = "active"
	GameFinished GameStatus = "finished"
)

// RoundStatus 回合状态
type RoundStatus string

const (
	RoundOpen   RoundStatus = "open"
	RoundClosed RoundStatus = "closed"
	RoundScored RoundStatus = "scored"
)

// ClaimStatus 代理认领状态
type ClaimStatus string

const (
	ClaimPending ClaimStatus = "pending_claim"
	ClaimClaimed ClaimStatus = "claimed"
)

const (
	// NoPick 表示尚未选定参考答案，与下标 0 严格区分
	NoPick = -1
	// AnswerCount 每回合候选答案数量
	AnswerCount = 4
	// DefaultPointsToWin 默认获胜分数
	DefaultPointsToWin = 5
	// DefaultRoundWindow 默认提交窗口
	DefaultRoundWindow = 5 * time.Minute

	// MysteryDealerName 系统发牌人显示名
	MysteryDealerName = "Mystery Dealer"
	// UnknownAgentName 无法解析代理名称时的回退名
	UnknownAgentName = "Unknown"

	// WinnerPoints 猜中发牌人选择的得分
	WinnerPoints = 2
	// PersonaGuessPoints 猜中人格的得分
	PersonaGuessPoints = 1
)

// CareerStats 代理生涯统计，只在游戏结束时累加
type CareerStats struct {
	TotalPoints           int `json:"totalPoints"`
	TotalWins             int `json:"totalWins"`
	GamesPlayed           int `json:"gamesPlayed"`
	CorrectPersonaGuesses int `json:"correctPersonaGuesses"`
}

// Agent 已注册的参与者
type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	APIKey      string      `json:"-"`
	ClaimToken  string      `json:"-"`
	ClaimStatus ClaimStatus `json:"claimStatus"`
	LastActive  time.Time   `json:"lastActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	Stats       CareerStats `json:"stats"`
}

// PlayerScore 单局内的玩家得分
type PlayerScore struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Points    int    `json:"points"`
}

// Game 一局游戏
type Game struct {
	ID           string        `json:"id"`
	Status       GameStatus    `json:"status"`
	Players      []string      `json:"players"`
	Scores       []PlayerScore `json:"playerScores"`
	CurrentRound int           `json:"currentRound"`
	PointsToWin  int           `json:"pointsToWin"`
	WinnerID     string        `json:"winnerId,omitempty"`
	WinnerName   string        `json:"winnerName,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	FinishedAt   *time.Time    `json:"finishedAt,omitempty"`
}

// HasPlayer 判断代理是否已加入
func (g *Game) HasPlayer(agentID string) bool {
	return slices.Contains(g.Players, agentID)
}

// Clone 深拷贝
func (g Game) Clone() Game {
	g.Players = slices.Clone(g.Players)
	g.Scores = slices.Clone(g.Scores)
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		g.FinishedAt = &t
	}
	return g
}

// Dealer 发牌人：系统人格或轮值代理
type Dealer struct {
	System  bool   `json:"system"`
	AgentID string `json:"agentId,omitempty"`
	Name    string `json:"name"`
}

// SystemDealer 系统发牌人
func SystemDealer() Dealer {
	return Dealer{System: true, Name: MysteryDealerName}
}

// AgentDealer 代理发牌人
func AgentDealer(agentID, name string) Dealer {
	return Dealer{AgentID: agentID, Name: name}
}

// Is 判断代理是否为本回合发牌人，系统发牌人永远返回 false
func (d Dealer) Is(agentID string) bool {
	return !d.System && d.AgentID != "" && d.AgentID == agentID
}

// Submission 玩家提交
type Submission struct {
	AgentID      string    `json:"agentId"`
	AgentName    string    `json:"agentName"`
	AnswerIndex  int       `json:"chosenCardIndex"`
	PersonaGuess Persona   `json:"personaGuess"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Round 一个回合
type Round struct {
	ID             string       `json:"id"`
	GameID         string       `json:"gameId"`
	Number         int          `json:"roundNumber"`
	Dealer         Dealer       `json:"dealer"`
	Persona        Persona      `json:"dealerPersona"`
	Prompt         string       `json:"whiteCard"`
	Answers        []string     `json:"blackCards"`
	PickIndex      int          `json:"dealerPickIndex"`
	Submissions    []Submission `json:"submissions"`
	Status         RoundStatus  `json:"status"`
	Deadline       time.Time    `json:"deadline"`
	Winners        []string     `json:"winners"`
	PersonaWinners []string     `json:"personaGuessWinners"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Clone 深拷贝
func (r Round) Clone() Round {
	r.Answers = slices.Clone(r.Answers)
	r.Submissions = slices.Clone(r.Submissions)
	r.Winners = slices.Clone(r.Winners)
	r.PersonaWinners = slices.Clone(r.PersonaWinners)
	return r
}

// HasSubmitted 判断代理是否已提交
func (r *Round) HasSubmitted(agentID string) bool {
	return slices.ContainsFunc(r.Submissions, func(s Submission) bool {
		return s.AgentID == agentID
	})
}

// HasPick 是否已有参考答案
func (r *Round) HasPick() bool {
	return r.PickIndex != NoPick
}

// Card 内容源抽出的一组题目
type Card struct {
	Persona   Persona  `yaml:"persona" json:"persona"`
	Prompt    string   `yaml:"prompt" json:"prompt"`
	Answers   []string `yaml:"answers" json:"answers"`
	PickIndex int      `yaml:"pick" json:"pick"`
}

// AgentResult 游戏结束时提交给代理目录的结算
type AgentResult struct {
	AgentID             string
	Points              int
	Won                 bool
	PersonaGuessCorrect bool
}
