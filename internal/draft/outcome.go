package draft

import "github.com/Con7105/fantasy-valo/internal/models"

// OutcomeKind tags the result of submitting a pick.
type OutcomeKind string

const (
	OutcomeAccepted OutcomeKind = "accepted"
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeConflict means another client won the race; state was resynced.
	OutcomeConflict OutcomeKind = "conflict"
	OutcomeFailed   OutcomeKind = "failed"
)

// ConflictMessage is what a participant sees after losing a pick race.
const ConflictMessage = "someone else just picked, refreshing"

type Outcome struct {
	Kind    OutcomeKind       `json:"kind"`
	Pick    *models.DraftPick `json:"pick,omitempty"`
	Reason  Rejection         `json:"reason,omitempty"`
	Message string            `json:"message,omitempty"`
	// Err is the cause of a failed outcome.
	Err error `json:"-"`
}

func Accepted(p models.DraftPick) Outcome {
	return Outcome{Kind: OutcomeAccepted, Pick: &p}
}

func Rejected(r Rejection) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: r, Message: string(r)}
}

func Conflict() Outcome {
	return Outcome{Kind: OutcomeConflict, Message: ConflictMessage}
}

func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Message: err.Error(), Err: err}
}
