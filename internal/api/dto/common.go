// Package dto provides request and response types for the InkCircle API.
// These types are used by huma to generate OpenAPI documentation and perform validation.
package dto

// IDParam is a path parameter for resource IDs.
type IDParam struct {
	ID string `path:"id" doc:"Resource identifier"`
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for huma.
type MessageOutput struct {
	Body MessageResponse
}

// Message builds a MessageOutput.
func Message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}
