package model

// Phase is the view the presentation layer should render.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// ErrorKind classifies the failure behind an error state.
type ErrorKind string

const (
	ErrorKindMissingField  ErrorKind = "missing_field"
	ErrorKindMalformedDate ErrorKind = "malformed_date"
	ErrorKindUnauthorized  ErrorKind = "unauthorized"
	ErrorKindServiceError  ErrorKind = "service_error"
	ErrorKindUnreachable   ErrorKind = "unreachable"
)

// SessionState is a snapshot of what a session's interface displays.
// Token identifies the submission that produced the snapshot.
type SessionState struct {
	Phase     Phase     `json:"phase"`
	Report    string    `json:"report,omitempty"`
	Message   string    `json:"message,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Token     uint64    `json:"token"`
}

// IdleState is the state before any submission or after a reset.
func IdleState(token uint64) SessionState {
	return SessionState{Phase: PhaseIdle, Token: token}
}

// LoadingState marks a generation call in flight.
func LoadingState(token uint64) SessionState {
	return SessionState{Phase: PhaseLoading, Token: token}
}

// SuccessState carries the generated report.
func SuccessState(token uint64, report string) SessionState {
	return SessionState{Phase: PhaseSuccess, Report: report, Token: token}
}

// ErrorState carries a user-facing failure message and its kind.
func ErrorState(token uint64, kind ErrorKind, message string) SessionState {
	return SessionState{Phase: PhaseError, ErrorKind: kind, Message: message, Token: token}
}
