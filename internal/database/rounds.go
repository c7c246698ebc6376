package database

import (
	"context"
	"errors"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"github.com/jackc/pgx/v5"
)

const selectRound = `
	SELECT id, game_id, round_number, dealer_system, dealer_id, dealer_name, dealer_persona,
		white_card, black_cards, dealer_pick_index, submissions, status, deadline,
		winners, persona_guess_winners, created_at, updated_at
	FROM rounds
`

func scanRound(row rowScanner) (*game.Round, error) {
	var r game.Round
	var dealerID *string
	var persona, status string
	var j roundJSON
	err := row.Scan(
		&r.ID, &r.GameID, &r.Number, &r.Dealer.System, &dealerID, &r.Dealer.Name, &persona,
		&r.Prompt, &j.Answers, &r.PickIndex, &j.Submissions, &status, &r.Deadline,
		&j.Winners, &j.PersonaWinners, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dealerID != nil {
		r.Dealer.AgentID = *dealerID
	}
	r.Persona = game.Persona(persona)
	r.Status = game.RoundStatus(status)
	if err := decodeRound(&r, j); err != nil {
		return nil, err
	}
	return &r, nil
}

func pgRound(ctx context.Context, q querier, where string, args ...any) (*game.Round, error) {
	r, err := scanRound(q.QueryRow(ctx, selectRound+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func pgInsertRound(ctx context.Context, q querier, r *game.Round) error {
	j, err := encodeRound(r)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO rounds (id, game_id, round_number, dealer_system, dealer_id, dealer_name, dealer_persona,
			white_card, black_cards, dealer_pick_index, submissions, status, deadline,
			winners, persona_guess_winners, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, r.ID, r.GameID, r.Number, r.Dealer.System, nullable(r.Dealer.AgentID), r.Dealer.Name, string(r.Persona),
		r.Prompt, j.Answers, r.PickIndex, j.Submissions, string(r.Status), r.Deadline,
		j.Winners, j.PersonaWinners, r.CreatedAt, r.UpdatedAt)
	return err
}

func pgSaveRound(ctx context.Context, q querier, r *game.Round) error {
	j, err := encodeRound(r)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		UPDATE rounds
		SET dealer_pick_index = $1, submissions = $2, status = $3,
			winners = $4, persona_guess_winners = $5, updated_at = $6
		WHERE id = $7
	`, r.PickIndex, j.Submissions, string(r.Status), j.Winners, j.PersonaWinners, r.UpdatedAt, r.ID)
	return err
}

// Round 根据游戏与回合号获取回合
func (s *PGStore) Round(ctx context.Context, gameID string, number int) (*game.Round, error) {
	return pgRound(ctx, DB, "WHERE game_id = $1 AND round_number = $2", gameID, number)
}

// Rounds 获取游戏的全部回合，按回合号排序
func (s *PGStore) Rounds(ctx context.Context, gameID string) ([]game.Round, error) {
	rows, err := DB.Query(ctx, selectRound+"WHERE game_id = $1 ORDER BY round_number", gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []game.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}
