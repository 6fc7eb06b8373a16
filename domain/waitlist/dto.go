package waitlist

type SubmitWaitlistRequest struct {
	Email string `json:"email"`
	// Honeypot is hidden in the form; only bots fill it in.
	Honeypot string `json:"honeypot"`
}

type SubmitWaitlistResponse struct {
	Status Outcome `json:"status"`
}

type WaitlistCountResponse struct {
	Count   int64  `json:"count"`
	Display string `json:"display"`
}

type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeAlreadyRegistered Outcome = "already_registered"
)

// Result is the business outcome of a submission. A duplicate email is a
// successful outcome, not an error.
type Result struct {
	Outcome Outcome
}

func (r Result) Message() string {
	if r.Outcome == OutcomeAlreadyRegistered {
		return "already registered"
	}
	return "registered"
}

func ToSubmitWaitlistResponse(result *Result) SubmitWaitlistResponse {
	if result == nil {
		return SubmitWaitlistResponse{}
	}
	return SubmitWaitlistResponse{Status: result.Outcome}
}
