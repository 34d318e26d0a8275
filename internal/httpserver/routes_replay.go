// internal/httpserver/routes_replay.go
//
// Replay read path.
// POST /api/load_game resolves a slug and turn number to a stored snapshot
// and returns a client-safe projection: the shared board, each player's
// public information, the turn number, and whose turn it is. Unknown slugs
// and turns are a 404, not an error.
//
// The read path talks to storage only; it is independent of the live
// session registries, so replays work whether or not the game is still
// connected.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pashneal/stourney-platform/internal/game"
	"github.com/pashneal/stourney-platform/internal/storage"
)

type loadGameReq struct {
	Slug       string `json:"slug"`
	TurnNumber int    `json:"turnNumber"`
}

// Projection DTOs. Deliberately separate from the payload types so the
// public surface can evolve without touching the stored format.

type cardView struct {
	ID     int        `json:"id"`
	Cost   game.Cost  `json:"cost"`
	Points int        `json:"points"`
	Color  game.Color `json:"color"`
}

type nobleView struct {
	Cost game.Cost `json:"cost"`
}

type boardView struct {
	DeckCounts     [3]int       `json:"deckCounts"`
	AvailableCards [][]cardView `json:"availableCards"`
	Nobles         []nobleView  `json:"nobles"`
	Bank           game.Gems    `json:"bank"`
}

type playerView struct {
	Bank             game.Gems `json:"bank"`
	Developments     game.Cost `json:"developments"`
	NumReservedCards int       `json:"numReservedCards"`
	TotalPoints      int       `json:"totalPoints"`
}

type turnView struct {
	TurnNumber    int          `json:"turnNumber"`
	Board         boardView    `json:"board"`
	Players       []playerView `json:"players"`
	CurrentPlayer int          `json:"currentPlayer"`
}

// handleLoadGame serves one stored turn snapshot.
func (s *Server) handleLoadGame(w http.ResponseWriter, r *http.Request) {
	var req loadGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	id, err := s.store.SlugID(r.Context(), req.Slug)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	u, err := s.store.LoadUpdate(r.Context(), id, req.TurnNumber)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(projectTurn(u))
}

// projectTurn reshapes a stored snapshot into the public view.
func projectTurn(u *game.Update) turnView {
	board := boardView{
		DeckCounts: u.Info.Board.DeckCounts,
		Bank:       u.Info.Board.Bank,
	}
	for _, tier := range u.Info.Board.AvailableCards {
		cards := make([]cardView, 0, len(tier))
		for _, c := range tier {
			cards = append(cards, cardView{ID: c.ID, Cost: c.Cost, Points: c.Points, Color: c.Color})
		}
		board.AvailableCards = append(board.AvailableCards, cards)
	}
	for _, n := range u.Info.Board.Nobles {
		board.Nobles = append(board.Nobles, nobleView{Cost: n.Cost})
	}

	players := make([]playerView, 0, len(u.Info.Players))
	for _, p := range u.Info.Players {
		players = append(players, playerView{
			Bank:             p.Bank,
			Developments:     p.Developments,
			NumReservedCards: p.NumReserved,
			TotalPoints:      p.Points,
		})
	}

	return turnView{
		TurnNumber:    u.TurnNumber,
		Board:         board,
		Players:       players,
		CurrentPlayer: u.Info.CurrentPlayer,
	}
}
