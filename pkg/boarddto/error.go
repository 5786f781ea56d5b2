package boarddto

// Error codes carried in DomainError.Code.
const (
	CodeBadRequest   = "bad_request"
	CodeUnknownKey   = "unknown_key"
	CodeBadSize      = "bad_size"
	CodeMoveInFlight = "move_in_flight"
	CodeInconsistent = "inconsistent_placement"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board service error"
}
