package arena

import (
	"sync"
)

// ChatMode labels which arena surface produced a session. The UI supplies it;
// this package only threads it into log paths.
type ChatMode string

const (
	ModeBattleAnony ChatMode = "battle_anony"
	ModeBattleNamed ChatMode = "battle_named"
	ModeSingle      ChatMode = "single"
)

// Roles used in message pairs.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a (role, content) pair. It marshals as a two-element JSON array
// to match the on-disk conversation log schema.
type Message [2]string

// Role returns the speaker role of the message.
func (m Message) Role() string { return m[0] }

// Content returns the message body.
func (m Message) Content() string { return m[1] }

// NewMessage builds a message pair.
func NewMessage(role, content string) Message { return Message{role, content} }

// Session is one battle instance: a session identifier shared by the model
// slots plus one ModelState per slot (two in battle modes, one in single
// mode). Identifiers are minted once at battle start and never change for the
// session's lifetime.
type Session struct {
	ID     string
	Mode   ChatMode
	Models []*ModelState
}

// NewBattleSession allocates a session with two model slots. Each slot gets
// its own conversation identifier; the session identifier is shared.
func NewBattleSession(mode ChatMode, modelA, modelB string) *Session {
	s := &Session{ID: NewSessionID(), Mode: mode}
	s.Models = []*ModelState{
		newModelState(s.ID, modelA),
		newModelState(s.ID, modelB),
	}
	return s
}

// NewSingleSession allocates a session with one model slot.
func NewSingleSession(modelName string) *Session {
	s := &Session{ID: NewSessionID(), Mode: ModeSingle}
	s.Models = []*ModelState{newModelState(s.ID, modelName)}
	return s
}

// ModelByConv finds the model slot owning convID, nil when the conversation
// does not belong to this session.
func (s *Session) ModelByConv(convID string) *ModelState {
	for _, m := range s.Models {
		if m.ConvID() == convID {
			return m
		}
	}
	return nil
}

// ModelState is one model's turn sequence within a session. It owns the round
// counters for its conversation: chat rounds advance once per user prompt
// cycle, and each chat round carries its own sandbox run-round sequence.
// Counters live in process memory only; they are reconstructible from sandbox
// log filenames (see RecoverRounds), so nothing here is persisted separately.
//
// All methods are safe for concurrent use. The mutex is what guarantees that
// no two callers can claim the same round number for one conversation.
type ModelState struct {
	mu sync.Mutex

	convID    string
	sessionID string
	modelName string

	messages []Message

	nextChat    int
	nextSandbox map[int]int
}

func newModelState(sessionID, modelName string) *ModelState {
	return &ModelState{
		convID:      NewConversationID(),
		sessionID:   sessionID,
		modelName:   modelName,
		nextChat:    1,
		nextSandbox: make(map[int]int),
	}
}

// ConvID returns the conversation identifier.
func (s *ModelState) ConvID() string { return s.convID }

// SessionID returns the owning session identifier.
func (s *ModelState) SessionID() string { return s.sessionID }

// ModelName returns the model served by this slot.
func (s *ModelState) ModelName() string { return s.modelName }

// NextChatRound claims the next chat round. Call exactly once per
// user-initiated prompt cycle; the returned values form a contiguous
// sequence starting at 1.
func (s *ModelState) NextChatRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.nextChat
	s.nextChat++
	return n
}

// NextSandboxRound claims the next sandbox run round within chatRound. The
// sequence restarts at 1 for every new chat round.
func (s *ModelState) NextSandboxRound(chatRound int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.nextSandbox[chatRound]
	if n == 0 {
		n = 1
	}
	s.nextSandbox[chatRound] = n + 1
	return n
}

// CurrentChatRound reports the most recently claimed chat round, 0 before the
// first prompt.
func (s *ModelState) CurrentChatRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextChat - 1
}

// RecoverRounds resets the counters from on-disk state after process memory
// was lost. maxRunByChat maps chat round -> highest sandbox run round found
// in sandbox log filenames for this conversation; maxChat is the highest chat
// round observed anywhere (conversation or sandbox logs). Counters resume at
// max+1 so already-written files are never clobbered.
func (s *ModelState) RecoverRounds(maxChat int, maxRunByChat map[int]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxChat+1 > s.nextChat {
		s.nextChat = maxChat + 1
	}
	for round, maxRun := range maxRunByChat {
		if maxRun+1 > s.nextSandbox[round] {
			s.nextSandbox[round] = maxRun + 1
		}
	}
}

// AppendUser appends a user prompt to the transcript.
func (s *ModelState) AppendUser(content string) {
	s.append(NewMessage(RoleUser, content))
}

// AppendAssistant appends a model response to the transcript.
func (s *ModelState) AppendAssistant(content string) {
	s.append(NewMessage(RoleAssistant, content))
}

func (s *ModelState) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// UpdateLastMessage replaces the content of the trailing message while the
// model is still streaming its answer. The transcript only becomes immutable
// once an event carrying it has been logged.
func (s *ModelState) UpdateLastMessage(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return
	}
	last := len(s.messages) - 1
	s.messages[last] = NewMessage(s.messages[last].Role(), content)
}

// TruncateForRegenerate drops the trailing assistant message so the user can
// regenerate. Logged history is untouched; the regenerated exchange claims a
// fresh chat round instead of mutating an old one.
func (s *ModelState) TruncateForRegenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.messages); n > 0 && s.messages[n-1].Role() == RoleAssistant {
		s.messages = s.messages[:n-1]
	}
}

// Snapshot returns a copy of the transcript safe to hand to log writers while
// other goroutines keep appending.
func (s *ModelState) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
