package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/roster"
	"github.com/DoyleJ11/cricket-live/internal/session"
)

// setRoles steps the session's role selection to want one toggle at a time,
// the same way a scorer tapping through the screen would, and commits it.
// Replacing a bowler who is already set needs confirm.
func setRoles(ctx context.Context, sess *session.Session, want cricket.Roles, confirm bool) error {
	if err := want.Validate(); err != nil {
		return err
	}
	draft, err := currentDraft(ctx, sess)
	if err != nil {
		return err
	}

	toggleBatter := func(id cricket.PlayerID) error {
		return ask(ctx, sess, func(r chan error) session.Msg { return session.ToggleBatter{Player: id, Reply: r} })
	}

	// Clear whichever batting slot holds the wrong player, then fill the
	// empty ones: striker first, as ToggleBatter does.
	if draft.Striker != "" && draft.Striker != want.Striker {
		if err := toggleBatter(draft.Striker); err != nil {
			return fmt.Errorf("striker %s: %w", draft.Striker, err)
		}
		draft.Striker = ""
	}
	if draft.NonStriker != "" && draft.NonStriker != want.NonStriker {
		if err := toggleBatter(draft.NonStriker); err != nil {
			return fmt.Errorf("non-striker %s: %w", draft.NonStriker, err)
		}
		draft.NonStriker = ""
	}
	if want.Striker != "" && draft.Striker == "" {
		if err := toggleBatter(want.Striker); err != nil {
			return fmt.Errorf("striker %s: %w", want.Striker, err)
		}
	}
	if want.NonStriker != "" && draft.NonStriker == "" {
		if err := toggleBatter(want.NonStriker); err != nil {
			return fmt.Errorf("non-striker %s: %w", want.NonStriker, err)
		}
	}

	if want.Bowler != draft.Bowler {
		err := ask(ctx, sess, func(r chan error) session.Msg {
			return session.ToggleBowler{Player: want.Bowler, Reply: r}
		})
		switch {
		case errors.Is(err, roster.ErrConfirmationRequired) && confirm:
			if err := ask(ctx, sess, func(r chan error) session.Msg { return session.ConfirmBowler{Reply: r} }); err != nil {
				return err
			}
		case errors.Is(err, roster.ErrConfirmationRequired):
			_ = ask(ctx, sess, func(r chan error) session.Msg { return session.CancelBowler{Reply: r} })
			return fmt.Errorf("%s is bowling; pass --confirm to replace them: %w", draft.Bowler, err)
		case err != nil:
			return fmt.Errorf("bowler %s: %w", want.Bowler, err)
		}
	}

	return ask(ctx, sess, func(r chan error) session.Msg { return session.CommitRoles{Reply: r} })
}

func currentDraft(ctx context.Context, sess *session.Session) (cricket.Roles, error) {
	reply := make(chan session.View, 1)
	select {
	case sess.Inbox() <- session.GetView{Reply: reply}:
	case <-sess.Done():
		return cricket.Roles{}, errors.New("session closed")
	}
	select {
	case v := <-reply:
		return v.Draft, nil
	case <-ctx.Done():
		return cricket.Roles{}, ctx.Err()
	}
}
