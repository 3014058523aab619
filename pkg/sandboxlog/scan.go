package sandboxlog

import (
	"path/filepath"
)

// RoundState is what a filename scan recovers for one conversation: the
// highest chat round seen and, per chat round, the highest run round.
type RoundState struct {
	MaxChatRound int
	MaxRunByChat map[int]int
}

// ScanRounds rebuilds counter state for a conversation from the sandbox log
// filenames in one date partition. Used after process memory is lost or when
// a round desync is detected; counters resume at max+1. Sessions that span a
// UTC midnight should merge scans of both partitions.
func ScanRounds(baseDir, date, convID string) (RoundState, error) {
	state := RoundState{MaxRunByChat: make(map[int]int)}
	matches, err := filepath.Glob(GlobPattern(baseDir, date, convID))
	if err != nil {
		return state, err
	}
	for _, path := range matches {
		id, chat, run, ok := ParseFileName(path)
		if !ok || id != convID {
			continue
		}
		if chat > state.MaxChatRound {
			state.MaxChatRound = chat
		}
		if run > state.MaxRunByChat[chat] {
			state.MaxRunByChat[chat] = run
		}
	}
	return state, nil
}
