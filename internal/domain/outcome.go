package domain

// Outcome is the state of a verification session.
type Outcome string

const (
	// OutcomePending means the session is still collecting responses.
	OutcomePending Outcome = "pending"
	// OutcomeSuccess means the member answered the challenge correctly.
	OutcomeSuccess Outcome = "success"
	// OutcomeTimeout means no qualifying response arrived in time.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeExhausted means the member spent every attempt on wrong answers.
	OutcomeExhausted Outcome = "exhausted"
)

// Terminal reports whether the outcome ends the session.
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeTimeout || o == OutcomeExhausted
}

// Failed reports whether the outcome counts as a failed verification.
// Timeouts count as failures for kick-on-failure purposes.
func (o Outcome) Failed() bool {
	return o == OutcomeTimeout || o == OutcomeExhausted
}
