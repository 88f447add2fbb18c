package domain

// Outcome is the terminal state a download request ended in.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeTooLarge  Outcome = "too_large"
	OutcomeFailed    Outcome = "failed"
	OutcomeBusy      Outcome = "busy"
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	return string(o)
}
