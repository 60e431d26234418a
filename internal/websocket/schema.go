package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionClear    Action = "clear"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records or overwrites the answer for one question.
type AnswerRequest struct {
	Action         Action `json:"action"`
	QuestionNumber int    `json:"question_number"`
	Answer         string `json:"answer"`
}

// ClearRequest removes the answer for one question.
type ClearRequest struct {
	Action         Action `json:"action"`
	QuestionNumber int    `json:"question_number"`
}

// NavigateRequest moves the candidate to another question.
type NavigateRequest struct {
	Action         Action `json:"action"`
	QuestionNumber int    `json:"question_number"`
}

// SubmitRequest finishes and scores the session.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventState     Event = "state"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

// SavedResponse acknowledges an answer, clear or navigate action.
type SavedResponse struct {
	Event          Event `json:"event"`
	QuestionNumber int   `json:"question_number"`
	AnsweredCount  int   `json:"answered_count"`
}

// StateResponse carries a full session snapshot.
type StateResponse struct {
	Event Event       `json:"event"`
	State interface{} `json:"state"`
}

// CompletedResponse announces the finalized result. Sent to the client on
// manual submit and pushed unsolicited when the clock expires.
type CompletedResponse struct {
	Event      Event   `json:"event"`
	Score      float64 `json:"score"`
	Percentage int     `json:"percentage"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}
