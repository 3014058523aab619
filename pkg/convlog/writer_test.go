package convlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swearena-api/pkg/arena"
)

func fixedTime() time.Time {
	return time.Date(2026, 8, 31, 15, 4, 5, 123400000, time.UTC)
}

func testRecord(sessionID, convID string, msgs ...arena.Message) Record {
	return Record{
		Tstamp: Timestamp(fixedTime()),
		Type:   EventChat,
		Model:  "model-a",
		State: State{
			ConvID:        convID,
			ChatSessionID: sessionID,
			Messages:      msgs,
		},
	}
}

func TestAppendCreatesDatePartitionedFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	w.Append(arena.ModeBattleAnony, testRecord("S1", "CA",
		arena.NewMessage(arena.RoleUser, "hi"),
		arena.NewMessage(arena.RoleAssistant, "hello"),
	))

	path := FilePath(dir, "2026_08_31", arena.ModeBattleAnony, "S1")
	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, EventChat, records[0].Type)
	require.Equal(t, "CA", records[0].State.ConvID)
	require.Len(t, records[0].State.Messages, 2)
	require.Equal(t, arena.RoleUser, records[0].State.Messages[0].Role())
}

func TestAppendIsAppendOnly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	rec1 := testRecord("S1", "CA", arena.NewMessage(arena.RoleUser, "q1"))
	w.Append(arena.ModeSingle, rec1)

	path := FilePath(dir, "2026_08_31", arena.ModeSingle, "S1")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	rec2 := testRecord("S1", "CA",
		arena.NewMessage(arena.RoleUser, "q1"),
		arena.NewMessage(arena.RoleAssistant, "a1"),
	)
	rec2.Tstamp = rec1.Tstamp + 1
	w.Append(arena.ModeSingle, rec2)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after[:len(before)]),
		"existing bytes changed; the log must only ever be extended")

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestBothSlotsShareOneFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	w.Append(arena.ModeBattleAnony, testRecord("S1", "CA", arena.NewMessage(arena.RoleUser, "q")))
	w.Append(arena.ModeBattleAnony, testRecord("S1", "CB", arena.NewMessage(arena.RoleUser, "q")))

	records, err := ReadFile(FilePath(dir, "2026_08_31", arena.ModeBattleAnony, "S1"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, FilterConv(records, "CA"), 1)
	require.Len(t, FilterConv(records, "CB"), 1)
}

func TestConcurrentAppendsNeverTear(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	const perSlot = 50
	var wg sync.WaitGroup
	for _, convID := range []string{"CA", "CB"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perSlot; i++ {
				w.Append(arena.ModeBattleAnony, testRecord("S1", id,
					arena.NewMessage(arena.RoleUser, "prompt"),
				))
			}
		}(convID)
	}
	wg.Wait()

	records, err := ReadFile(FilePath(dir, "2026_08_31", arena.ModeBattleAnony, "S1"))
	require.NoError(t, err, "interleaved lines must stay parseable")
	require.Len(t, records, 2*perSlot)
	require.Len(t, FilterConv(records, "CA"), perSlot)
	require.Len(t, FilterConv(records, "CB"), perSlot)
}

func TestAppendFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644)) // a file where a dir is needed

	w := NewWriter(blocked)
	w.nowFn = fixedTime

	// Must not panic and must not return anything; the contract is
	// fire-and-forget.
	w.Append(arena.ModeSingle, testRecord("S1", "CA"))
}

func TestAppendWithoutSessionIDIsDropped(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	w.Append(arena.ModeSingle, Record{Type: EventChat})

	matches, err := filepath.Glob(filepath.Join(dir, "*", DirName, "*", "*.json"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestTimestampRounding(t *testing.T) {
	ts := Timestamp(time.Unix(1756652645, 123440000))
	require.Equal(t, 1756652645.1234, ts)

	ts = Timestamp(time.Unix(1756652645, 123460000))
	require.Equal(t, 1756652645.1235, ts)
}

func TestRecordTimeRoundTripsDatePartition(t *testing.T) {
	rec := Record{Tstamp: Timestamp(fixedTime())}
	require.Equal(t, "2026_08_31", DatePartition(rec.Time()))
}
