package cricket

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrDuplicatePlayer = errors.New("player already in team")
var ErrUnknownPlayer = errors.New("player not in team")

type TeamID string

type Team struct {
	ID      TeamID
	Name    string
	Logo    string
	Captain PlayerID
	Roster  []Player
}

// AddPlayer appends p to the roster. Ids are unique per team across both
// registered and pending players.
func (t *Team) AddPlayer(p Player) error {
	if t.has(p) {
		return ErrDuplicatePlayer
	}
	t.Roster = append(slices.Clip(t.Roster), p)
	return nil
}

// RemovePlayer drops the registered player with the given id.
func (t *Team) RemovePlayer(id PlayerID) error {
	for i, p := range t.Roster {
		if rp, ok := p.(RegisteredPlayer); ok && rp.ID == id {
			// Rosters are shared between cloned states; never edit in place.
			t.Roster = slices.Delete(slices.Clone(t.Roster), i, i+1)
			if t.Captain == id {
				t.Captain = ""
			}
			return nil
		}
	}
	return ErrUnknownPlayer
}

// ResolvePending swaps a pending player for its registered form,
// keeping roster order.
func (t *Team) ResolvePending(local LocalID, id PlayerID) error {
	if _, ok := t.Registered(id); ok {
		return ErrDuplicatePlayer
	}
	for i, p := range t.Roster {
		if pp, ok := p.(PendingPlayer); ok && pp.LocalID == local {
			t.Roster = slices.Clone(t.Roster)
			t.Roster[i] = pp.Resolve(id)
			return nil
		}
	}
	return fmt.Errorf("pending player %s: %w", local, ErrUnknownPlayer)
}

// Registered looks up a registered player by id.
func (t Team) Registered(id PlayerID) (RegisteredPlayer, bool) {
	for _, p := range t.Roster {
		if rp, ok := p.(RegisteredPlayer); ok && rp.ID == id {
			return rp, true
		}
	}
	return RegisteredPlayer{}, false
}

// Pending lists players still waiting for a server id.
func (t Team) Pending() []PendingPlayer {
	var out []PendingPlayer
	for _, p := range t.Roster {
		if pp, ok := p.(PendingPlayer); ok {
			out = append(out, pp)
		}
	}
	return out
}

func (t Team) has(p Player) bool {
	for _, existing := range t.Roster {
		switch e := existing.(type) {
		case RegisteredPlayer:
			if rp, ok := p.(RegisteredPlayer); ok && rp.ID == e.ID {
				return true
			}
		case PendingPlayer:
			if pp, ok := p.(PendingPlayer); ok && pp.LocalID == e.LocalID {
				return true
			}
		}
	}
	return false
}

// Wire form. The roster is flattened into records carrying isManual.

type playerRecord struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
	IsManual bool   `json:"isManual,omitempty"`
}

type teamRecord struct {
	ID      TeamID         `json:"_id"`
	Name    string         `json:"teamName"`
	Logo    string         `json:"logo,omitempty"`
	Captain PlayerID       `json:"captain,omitempty"`
	Players []playerRecord `json:"players"`
}

func (t Team) record() teamRecord {
	rec := teamRecord{ID: t.ID, Name: t.Name, Logo: t.Logo, Captain: t.Captain, Players: make([]playerRecord, 0, len(t.Roster))}
	for _, p := range t.Roster {
		switch v := p.(type) {
		case RegisteredPlayer:
			rec.Players = append(rec.Players, playerRecord{ID: string(v.ID), Name: v.Name, Role: v.Role, Phone: v.Phone})
		case PendingPlayer:
			rec.Players = append(rec.Players, playerRecord{ID: string(v.LocalID), Name: v.Name, Role: v.Role, Phone: v.Phone, IsManual: true})
		}
	}
	return rec
}

func (t *Team) fromRecord(rec teamRecord) {
	t.ID, t.Name, t.Logo, t.Captain = rec.ID, rec.Name, rec.Logo, rec.Captain
	t.Roster = make([]Player, 0, len(rec.Players))
	for _, p := range rec.Players {
		if p.IsManual {
			t.Roster = append(t.Roster, PendingPlayer{LocalID: LocalID(p.ID), Name: p.Name, Role: p.Role, Phone: p.Phone})
			continue
		}
		t.Roster = append(t.Roster, RegisteredPlayer{ID: PlayerID(p.ID), Name: p.Name, Role: p.Role, Phone: p.Phone})
	}
}

func (t Team) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.record())
}

func (t *Team) UnmarshalJSON(data []byte) error {
	var rec teamRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	t.fromRecord(rec)
	return nil
}

func (t Team) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(t.record())
}

func (t *Team) DecodeMsgpack(dec *msgpack.Decoder) error {
	var rec teamRecord
	if err := dec.Decode(&rec); err != nil {
		return err
	}
	t.fromRecord(rec)
	return nil
}
