package models

// SetUserStatusRequest is the body of PATCH /admin/users/:id/status.
type SetUserStatusRequest struct {
	Status UserStatus `json:"status" binding:"required,oneof=active blocked"`
}

// VerificationDecisionRequest is the body of POST /admin/providers/:id/verification.
type VerificationDecisionRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Reason  string `json:"reason" binding:"max=500"`
}

// DisputeRequest is the optional body of POST /admin/services/:id/dispute.
type DisputeRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
