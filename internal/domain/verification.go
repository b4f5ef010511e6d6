package domain

import "time"

// VerificationRecord is the persisted result of one verification session.
type VerificationRecord struct {
	ID            string    `json:"id"`
	MemberID      string    `json:"member_id"`
	Username      string    `json:"username"`
	Outcome       Outcome   `json:"outcome"`
	AttemptsTaken int       `json:"attempts_taken"`
	Responses     []string  `json:"responses"`
	Answer        string    `json:"answer"`
	CreatedAt     time.Time `json:"created_at"`
}
