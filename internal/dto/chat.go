package dto

// ChatRequest is a question for the assistant.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	UserID  int64  `json:"userId" validate:"required,gt=0"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Response string `json:"response"`
}
