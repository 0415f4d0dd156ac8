package dto

// SubmitComplaintRequest is the multipart form for a new complaint.
type SubmitComplaintRequest struct {
	Title        string `form:"title" json:"title" validate:"required"`
	Description  string `form:"description" json:"description" validate:"required"`
	Branch       string `form:"branch" json:"branch" validate:"required"`
	Category     string `form:"category" json:"category" validate:"required"`
	Priority     string `form:"priority" json:"priority" validate:"required"`
	InchargeName string `form:"inchargeName" json:"inchargeName"`
}

// AssignComplaintRequest forwards a complaint to a resolver.
type AssignComplaintRequest struct {
	ResolverID string `json:"resolverId" validate:"required"`
}

// CommentRequest appends a comment.
type CommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// ResolveComplaintRequest closes a complaint.
type ResolveComplaintRequest struct {
	ResolutionComment string `json:"resolutionComment" validate:"required"`
}

// UpdateStatusRequest overwrites the status. ResolutionComment is required when Status is resolved.
type UpdateStatusRequest struct {
	Status            string `json:"status" validate:"required"`
	ResolutionComment string `json:"resolutionComment"`
}
