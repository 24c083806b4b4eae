package session

import (
	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/realtime"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
)

// Msg is anything the session loop accepts. Reply channels must be
// buffered; some replies are sent from I/O goroutines after the loop has
// moved on.
type Msg interface{ isSessionMsg() }

type Subscribe struct {
	ClientID string
	Outbox   chan View // receives the current view at once, then every change
}

func (Subscribe) isSessionMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isSessionMsg() {}

type GetView struct {
	Reply chan View
}

func (GetView) isSessionMsg() {}

// Resync pulls a fresh snapshot even though nothing looks wrong.
type Resync struct{}

func (Resync) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// Roster edits. These stay local until committed.

type ToggleXI struct {
	Team   cricket.TeamID
	Player cricket.PlayerID
	Reply  chan error
}

func (ToggleXI) isSessionMsg() {}

type ToggleBatter struct {
	Player cricket.PlayerID
	Reply  chan error
}

func (ToggleBatter) isSessionMsg() {}

type ToggleBowler struct {
	Player cricket.PlayerID
	Reply  chan error
}

func (ToggleBowler) isSessionMsg() {}

type ConfirmBowler struct{ Reply chan error }

func (ConfirmBowler) isSessionMsg() {}

type CancelBowler struct{ Reply chan error }

func (CancelBowler) isSessionMsg() {}

// CommitRoles sends the drafted striker, non-striker and bowler to the
// backend. The change shows up in the view once its delta arrives.
type CommitRoles struct{ Reply chan error }

func (CommitRoles) isSessionMsg() {}

// Scoring. Each is checked against local state, then published.

type StartMatch struct {
	BattingFirst cricket.TeamID
	Reply        chan error
}

func (StartMatch) isSessionMsg() {}

type RecordBall struct {
	Ball  cricket.Ball
	Reply chan error
}

func (RecordBall) isSessionMsg() {}

type EndInnings struct{ Reply chan error }

func (EndInnings) isSessionMsg() {}

type CompleteMatch struct {
	Result string
	Reply  chan error
}

func (CompleteMatch) isSessionMsg() {}

// Internal traffic from the channels and I/O goroutines.

type deltaMsg struct{ d itypes.Delta }

func (deltaMsg) isSessionMsg() {}

type channelMsg struct {
	channel string
	state   realtime.State
}

func (channelMsg) isSessionMsg() {}

type snapshotResult struct {
	snap itypes.Snapshot
	err  error
}

func (snapshotResult) isSessionMsg() {}
