// Package content 提供卡牌池与人格说明
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCards []byte

// PersonaInfo 人格说明
type PersonaInfo struct {
	ID          game.Persona `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Guide       string       `yaml:"guide" json:"guide"`
}

type file struct {
	Cards    []game.Card   `yaml:"cards"`
	Personas []PersonaInfo `yaml:"personas"`
}

// Pool 卡牌池，加载后只读
type Pool struct {
	cards     []game.Card
	byPersona map[game.Persona][]int
	personas  []PersonaInfo
}

// ErrEmptyPool 指定人格下没有可用卡牌
var ErrEmptyPool = errors.New("卡牌池为空")

// Default 内置卡牌池
func Default() *Pool {
	p, err := Parse(defaultCards)
	if err != nil {
		panic(fmt.Sprintf("内置卡牌池无效: %v", err))
	}
	return p
}

// LoadFile 从 YAML 文件加载卡牌池，path 为空时返回内置卡牌池
func LoadFile(path string) (*Pool, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取卡牌文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析并校验卡牌池
func Parse(data []byte) (*Pool, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析卡牌文件失败: %w", err)
	}

	p := &Pool{
		byPersona: make(map[game.Persona][]int),
		personas:  f.Personas,
	}
	for i, c := range f.Cards {
		if _, ok := game.ParsePersona(string(c.Persona)); !ok {
			return nil, fmt.Errorf("第 %d 张卡牌人格未知: %q", i+1, c.Persona)
		}
		if c.Prompt == "" {
			return nil, fmt.Errorf("第 %d 张卡牌缺少题面", i+1)
		}
		if len(c.Answers) != game.AnswerCount {
			return nil, fmt.Errorf("第 %d 张卡牌需要 %d 个答案，实际 %d 个", i+1, game.AnswerCount, len(c.Answers))
		}
		if c.PickIndex < 0 || c.PickIndex >= game.AnswerCount {
			return nil, fmt.Errorf("第 %d 张卡牌参考答案下标越界: %d", i+1, c.PickIndex)
		}
		p.byPersona[c.Persona] = append(p.byPersona[c.Persona], len(p.cards))
		p.cards = append(p.cards, c)
	}

	for _, persona := range game.Personas {
		if len(p.byPersona[persona]) == 0 {
			return nil, fmt.Errorf("人格 %s 没有卡牌: %w", persona, ErrEmptyPool)
		}
	}
	return p, nil
}

// Draw 随机抽取一张卡牌，persona 为空时在全部卡牌中抽取
func (p *Pool) Draw(rng game.Rand, persona game.Persona) (game.Card, error) {
	var c game.Card
	if persona == "" {
		if len(p.cards) == 0 {
			return game.Card{}, ErrEmptyPool
		}
		c = p.cards[rng.IntN(len(p.cards))]
	} else {
		idx := p.byPersona[persona]
		if len(idx) == 0 {
			return game.Card{}, fmt.Errorf("人格 %s: %w", persona, ErrEmptyPool)
		}
		c = p.cards[idx[rng.IntN(len(idx))]]
	}
	c.Answers = append([]string(nil), c.Answers...)
	return c, nil
}

// RandomPersona 均匀随机一个人格
func (p *Pool) RandomPersona(rng game.Rand) game.Persona {
	return game.Personas[rng.IntN(len(game.Personas))]
}

// Personas 人格说明
func (p *Pool) Personas() []PersonaInfo {
	return append([]PersonaInfo(nil), p.personas...)
}

// Len 卡牌数量
func (p *Pool) Len() int {
	return len(p.cards)
}
