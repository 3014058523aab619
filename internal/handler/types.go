package handler

// Request/response shapes for the arena logging API. The serving process in
// front of the models calls these endpoints after each user-facing action;
// model invocation itself happens elsewhere.

type CreateBattleRequest struct {
	Mode   string `json:"mode,options=battle_anony|battle_named|single"`
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b,optional"`
}

type ConversationInfo struct {
	ConvID string `json:"conv_id"`
	Model  string `json:"model"`
}

type CreateBattleResponse struct {
	ChatSessionID string             `json:"chat_session_id"`
	Mode          string             `json:"mode"`
	Conversations []ConversationInfo `json:"conversations"`
}

type ModelReply struct {
	ConvID  string `json:"conv_id"`
	Content string `json:"content"`
}

type ChatRequest struct {
	SessionID string `path:"session"`
	Prompt    string `json:"prompt"`
	// Regenerate marks an edit-and-regenerate cycle: the trailing assistant
	// message is dropped before the new exchange is applied, and the cycle
	// still claims a fresh chat round.
	Regenerate bool         `json:"regenerate,optional"`
	Replies    []ModelReply `json:"replies"`
}

type ChatRoundInfo struct {
	ConvID    string `json:"conv_id"`
	ChatRound int    `json:"chat_round"`
}

type ChatResponse struct {
	Rounds []ChatRoundInfo `json:"rounds"`
}

type VoteRequest struct {
	SessionID string `json:"-" path:"session"`
	VoteType  string `json:"vote_type,options=leftvote|rightvote|tievote|bothbad_vote"`
	ConvID    string `json:"conv_id"`
}

type VoteResponse struct {
	Logged bool `json:"logged"`
}

type SandboxRunRequest struct {
	SessionID string `path:"session"`
	ConvID    string `json:"conv_id"`
	// ChatRound defaults to the conversation's current round when omitted.
	ChatRound    int              `json:"chat_round,optional"`
	SandboxID    string           `json:"sandbox_id"`
	Code         string           `json:"code"`
	Output       string           `json:"output,optional"`
	Stderr       string           `json:"stderr,optional"`
	Status       string           `json:"status,optional,options=|completed|cancelled|failed"`
	Interactions []map[string]any `json:"interactions,optional"`
}

type SandboxRunResponse struct {
	ChatRound int    `json:"chat_round"`
	RunRound  int    `json:"sandbox_run_round"`
	Path      string `json:"path"`
}

type CloseBattleRequest struct {
	SessionID string `path:"session"`
}

type CloseBattleResponse struct {
	Closed bool `json:"closed"`
}

type ListRunsRequest struct {
	ConvID string `form:"conv_id"`
	Date   string `form:"date,optional"` // YYYY_MM_DD, defaults to today (UTC)
}

type RunInfo struct {
	ChatRound int    `json:"chat_round"`
	RunRound  int    `json:"sandbox_run_round"`
	Path      string `json:"path"`
}

type ListRunsResponse struct {
	ConvID string    `json:"conv_id"`
	Date   string    `json:"date"`
	Runs   []RunInfo `json:"runs"`
}
