package types

import "net/url"

// REST surface.
//
// GET  /matches/matchstate/{id}      -> { matchId, seq, state }
// POST /matches/{id}/players/update  <- { striker, nonStriker, bowler }
// POST /matches                      <- match document, -> { matchId }
//
// state:
//   match: { _id, team1, team2, overs, venue, matchDate, status, result }
//   playingXI: { teamId: playerId[] }
//   innings: [{ number, battingTeam, bowlingTeam, score, wickets, extras,
//               completedOvers, currentOverBalls, battingOrder, bowlingOrder, closed }]
//   roles: { striker, nonStriker, bowler }

func SnapshotPath(matchID string) string {
	return "/matches/matchstate/" + url.PathEscape(matchID)
}

func RolesPath(matchID string) string {
	return "/matches/" + url.PathEscape(matchID) + "/players/update"
}

const MatchesPath = "/matches"
