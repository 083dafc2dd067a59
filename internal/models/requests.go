package models

// VerifyRequest is the body of POST /api/v1/verify.
// Multipart requests carry the media upload in the "file" field.
type VerifyRequest struct {
	InputKind string `json:"input_kind" form:"input_kind" binding:"required"`
	InputData string `json:"input_data" form:"input_data"`
	Title     string `json:"title" form:"title"`
	Source    string `json:"source" form:"source"`
}

// BatchVerifyRequest queues several text verifications
type BatchVerifyRequest struct {
	Items []NewsInput `json:"items" binding:"required,min=1,dive"`
}

// NewsInput is one text item of a batch
type NewsInput struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
	Source  string `json:"source"`
}
