package cricket

import "github.com/google/uuid"

type PlayerID string

// LocalID identifies a player that only exists on this client. It is a
// separate type from PlayerID so it can't end up in an XI or a role slot.
type LocalID string

// Player is either a RegisteredPlayer or a PendingPlayer.
type Player interface {
	isPlayer()
	DisplayName() string
}

type RegisteredPlayer struct {
	ID    PlayerID
	Name  string
	Role  string // free text, e.g. "Batsman"
	Phone string
}

type PendingPlayer struct {
	LocalID LocalID
	Name    string
	Role    string
	Phone   string
}

func (RegisteredPlayer) isPlayer() {}
func (PendingPlayer) isPlayer()    {}

func (p RegisteredPlayer) DisplayName() string { return p.Name }
func (p PendingPlayer) DisplayName() string    { return p.Name }

// NewPendingPlayer creates an ad-hoc player with a fresh local id.
func NewPendingPlayer(name, role, phone string) PendingPlayer {
	return PendingPlayer{
		LocalID: LocalID(uuid.NewString()),
		Name:    name,
		Role:    role,
		Phone:   phone,
	}
}

// Resolve turns a pending player into a registered one once the backend
// has assigned it an id.
func (p PendingPlayer) Resolve(id PlayerID) RegisteredPlayer {
	return RegisteredPlayer{ID: id, Name: p.Name, Role: p.Role, Phone: p.Phone}
}

// PlayerRef is the light reference used inside dismissals.
type PlayerRef struct {
	ID   PlayerID `json:"_id,omitempty"`
	Name string   `json:"name"`
}
