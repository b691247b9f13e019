package domain

type QuoteStatus string

var (
	StatusDraft           QuoteStatus = "DRAFT"
	StatusPendingApproval QuoteStatus = "PENDING_APPROVAL"
	StatusApproved        QuoteStatus = "APPROVED"
	StatusRejected        QuoteStatus = "REJECTED"
	StatusAccepted        QuoteStatus = "ACCEPTED"
	StatusFinalized       QuoteStatus = "FINALIZED"
	StatusCancelled       QuoteStatus = "CANCELLED"
)

// transitions is the quote status state machine. CANCELLED is reachable
// from every non-terminal state and is handled in CanTransitionTo.
var transitions = map[QuoteStatus][]QuoteStatus{
	StatusDraft:           {StatusPendingApproval, StatusApproved},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusAccepted, StatusRejected},
	StatusAccepted:        {StatusFinalized},
}

func (s QuoteStatus) Known() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved,
		StatusRejected, StatusAccepted, StatusFinalized, StatusCancelled:
		return true
	}
	return false
}

func (s QuoteStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusFinalized, StatusCancelled:
		return true
	}
	return false
}

func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	if next == StatusCancelled {
		return !s.IsTerminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SubmitTarget returns the state a DRAFT quote moves to on submit:
// approval-gated quotes park in PENDING_APPROVAL, the rest auto-approve.
func SubmitTarget(requiresApproval bool) QuoteStatus {
	if requiresApproval {
		return StatusPendingApproval
	}
	return StatusApproved
}
