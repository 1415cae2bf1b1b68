// Package oracle adapts the chess rules library to the coordinator.
// The coordinator never inspects positions itself: it asks the oracle to
// apply a move, to name the side to move, and for a serialized snapshot.
package oracle

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies a playing side.
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Outcome is the oracle's verdict on a position.
type Outcome string

const (
	OutcomeNone  Outcome = ""
	OutcomeWhite Outcome = "white"
	OutcomeBlack Outcome = "black"
	OutcomeDraw  Outcome = "draw"
)

var ErrIllegalMove = errors.New("illegal move")

// Move is a structured move request. Promotion is empty or a single
// lowercase piece letter (q, r, b, n).
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the move in coordinate notation, e.g. "e7e8q".
func (m Move) UCI() string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

// Board owns one game's position. Not safe for concurrent use; callers
// serialize access (the session holds its own lock).
type Board struct {
	game *nchess.Game
}

// NewBoard returns a board at the initial position.
func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// TurnOwner reports which side the position expects to move.
func (b *Board) TurnOwner() Side {
	if b.game.Position().Turn() == nchess.White {
		return SideWhite
	}
	return SideBlack
}

// FEN serializes the current position.
func (b *Board) FEN() string {
	return b.game.FEN()
}

// Apply validates and applies a move. On success it returns the move in
// algebraic notation; on failure it returns ErrIllegalMove and leaves the
// position untouched.
func (b *Board) Apply(m Move) (string, error) {
	uci := m.UCI()
	if uci == "" {
		return "", fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	pos := b.game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := b.game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return san, nil
}

// Outcome reports the terminal verdict, or OutcomeNone while play continues.
func (b *Board) Outcome() Outcome {
	switch b.game.Outcome() {
	case nchess.WhiteWon:
		return OutcomeWhite
	case nchess.BlackWon:
		return OutcomeBlack
	case nchess.Draw:
		return OutcomeDraw
	}
	return OutcomeNone
}

// Replay rebuilds a board by applying moves from the initial position.
// Replaying a session's history must reproduce its live position exactly.
func Replay(moves []Move) (*Board, error) {
	b := NewBoard()
	for i, m := range moves {
		if _, err := b.Apply(m); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, m.UCI(), err)
		}
	}
	return b, nil
}
