package types

import (
	"fmt"
	"strings"
)

// STOMP destinations.
//
// Client -> Relay (SEND /app/match/{id}/score), body is a scoring command:
//   type: "StartMatch" | "RecordBall" | "SetRoles" | "EndInnings" | "CompleteMatch"
//   battingFirst: team id            (StartMatch)
//   playingXI: { teamId: playerId[] } (StartMatch)
//   ball: { runs, wicket, noBall, wide, bye, legBye, wicketDetails } (RecordBall)
//   roles: { striker, nonStriker, bowler } (SetRoles)
//   result: string                   (CompleteMatch, optional)
//
// Relay -> Client (MESSAGE on /topic/match/{id}), body is a delta:
//   matchId: string
//   seq: number  // strictly increasing per match, starts at 1
//   event: { type, ... }
//
// Relay -> Client (ERROR), when a command is rejected:
//   header message: short reason
//   body: { error: string }

const (
	topicPrefix = "/topic/match/"
	appPrefix   = "/app/match/"
	scoreSuffix = "/score"
)

// MatchTopic is the live delta feed for one match.
func MatchTopic(matchID string) string { return topicPrefix + matchID }

// ScoreDestination is where the scorer sends commands.
func ScoreDestination(matchID string) string { return appPrefix + matchID + scoreSuffix }

// ParseMatchTopic extracts the match id from a subscribe destination.
func ParseMatchTopic(dest string) (string, bool) {
	id, ok := strings.CutPrefix(dest, topicPrefix)
	return id, ok && id != "" && !strings.Contains(id, "/")
}

// ParseScoreDestination extracts the match id from a send destination.
func ParseScoreDestination(dest string) (string, bool) {
	rest, ok := strings.CutPrefix(dest, appPrefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, scoreSuffix)
	return id, ok && id != "" && !strings.Contains(id, "/")
}

// Subprotocols the relay accepts on /ws, newest first.
var Subprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

func SubscriptionID(matchID string) string { return fmt.Sprintf("sub-%s", matchID) }
