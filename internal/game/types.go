// internal/game/types.go
//
// Turn snapshot payload types for the arena protocol.
// Defines:
//   - Gems: a bank of tokens by color (gold is the wild token).
//   - Card / Noble: face-up board pieces with their public attributes.
//   - Board: shared table state (deck counts, face-up cards, nobles, bank).
//   - PlayerInfo: one player's public information.
//   - ClientInfo: everything a spectator may see for one turn.
//   - Update: a ClientInfo snapshot keyed by turn number.
//
// The server treats these as opaque data: it stores and replays snapshots
// but never validates game rules. Cards carry their own cost, points, and
// color so the replay projection needs no card catalog.

package game

// Color identifies a gem color. Serialized lowercase on the wire.
type Color string

const (
	Onyx     Color = "onyx"
	Sapphire Color = "sapphire"
	Emerald  Color = "emerald"
	Ruby     Color = "ruby"
	Diamond  Color = "diamond"
	Gold     Color = "gold"
)

// Gems is a token bank keyed by color.
type Gems struct {
	Onyx     int `json:"onyx"`
	Sapphire int `json:"sapphire"`
	Emerald  int `json:"emerald"`
	Ruby     int `json:"ruby"`
	Diamond  int `json:"diamond"`
	Gold     int `json:"gold"`
}

// Cost is a gem requirement. Gold never appears in a cost.
type Cost struct {
	Onyx     int `json:"onyx"`
	Sapphire int `json:"sapphire"`
	Emerald  int `json:"emerald"`
	Ruby     int `json:"ruby"`
	Diamond  int `json:"diamond"`
}

// Card is a face-up development card.
type Card struct {
	ID     int   `json:"id"`
	Cost   Cost  `json:"cost"`
	Points int   `json:"points"`
	Color  Color `json:"color"`
}

// Noble is a face-up noble tile. Only its requirement is public.
type Noble struct {
	Cost Cost `json:"cost"`
}

// Board is the shared table state for one turn.
// AvailableCards holds the face-up cards per tier (index 0 = tier one).
type Board struct {
	DeckCounts     [3]int   `json:"deckCounts"`
	AvailableCards [][]Card `json:"availableCards"`
	Nobles         []Noble  `json:"nobles"`
	Bank           Gems     `json:"bank"`
}

// PlayerInfo is the public view of one player.
type PlayerInfo struct {
	Bank         Gems `json:"bank"`
	Developments Cost `json:"developments"`
	NumReserved  int  `json:"numReserved"`
	Points       int  `json:"points"`
}

// ClientInfo is the full spectator-safe state for one turn.
type ClientInfo struct {
	Board         Board        `json:"board"`
	Players       []PlayerInfo `json:"players"`
	CurrentPlayer int          `json:"currentPlayer"`
}

// Update is one turn's snapshot. Turn 0 is the initial position.
type Update struct {
	TurnNumber int        `json:"turnNumber"`
	Info       ClientInfo `json:"info"`
}
