package convlog

import (
	"math"
	"time"

	"swearena-api/pkg/arena"
)

// EventType tags one conversation log line.
type EventType string

const (
	EventChat      EventType = "chat"
	EventLeftVote  EventType = "leftvote"
	EventRightVote EventType = "rightvote"
	EventTieVote   EventType = "tievote"
	EventBothBad   EventType = "bothbad_vote"
)

// State is the conversation snapshot embedded in every record. Messages is
// the complete history at the time of the event, not a diff; replaying all
// records for one conv_id in tstamp order reconstructs the transcript at
// every point.
type State struct {
	ConvID        string          `json:"conv_id"`
	ChatSessionID string          `json:"chat_session_id"`
	Messages      []arena.Message `json:"messages"`
}

// Record is one JSON line in a conversation log file.
type Record struct {
	Tstamp float64   `json:"tstamp"`
	Type   EventType `json:"type"`
	Model  string    `json:"model,omitempty"`
	State  State     `json:"state"`
}

// Timestamp converts an event time to the unix-seconds float stored in
// records, rounded to 4 decimals to match historical logs.
func Timestamp(t time.Time) float64 {
	return math.Round(float64(t.UnixNano())/1e9*1e4) / 1e4
}

// Time converts a record timestamp back to a time value.
func (r Record) Time() time.Time {
	sec, frac := math.Modf(r.Tstamp)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Snapshot builds a State from live model state.
func Snapshot(s *arena.ModelState) State {
	return State{
		ConvID:        s.ConvID(),
		ChatSessionID: s.SessionID(),
		Messages:      s.Snapshot(),
	}
}
