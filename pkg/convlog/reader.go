package convlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"swearena-api/pkg/arena"
)

// GlobPattern matches every session log within one (date, mode) partition.
func GlobPattern(baseDir, date string, mode arena.ChatMode) string {
	return filepath.Join(baseDir, date, DirName, string(mode), "conv-log-*.json")
}

// ParseFileName recovers the session identifier from a log filename.
func ParseFileName(name string) (sessionID string, ok bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, "conv-log-") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, "conv-log-"), ".json")
	return id, id != ""
}

// ReadFile parses a conversation log file into records, skipping blank lines.
// Lines that fail to parse abort the read; a well-formed writer never
// produces them.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// FilterConv keeps only the records belonging to one conversation.
func FilterConv(records []Record, convID string) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.State.ConvID == convID {
			out = append(out, rec)
		}
	}
	return out
}

// SortByTstamp orders records by their embedded timestamps. Appends are
// ordered by arrival, which for a single conversation matches event creation.
func SortByTstamp(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Tstamp < records[j].Tstamp
	})
}
