package chat

import "strings"

// TurnRequest is the raw inbound turn. The same shape travels over the
// retry queue, so redelivery re-enters the pipeline with exactly the
// payload the entry point first saw.
type TurnRequest struct {
	Message        string   `json:"message,omitempty"`
	ImageURLs      []string `json:"imageUrls,omitempty"`
	UserID         string   `json:"userId,omitempty"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Page           string   `json:"page,omitempty"`
	ConversationID string   `json:"conversationId,omitempty"`
}

type TurnResult struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversationId"`
}

// HasContent reports whether the request carries at least a message or
// one image reference.
func (r TurnRequest) HasContent() bool {
	return strings.TrimSpace(r.Message) != "" || len(r.ImageURLs) > 0
}

func (r *TurnRequest) normalize() {
	if strings.TrimSpace(r.UserID) == "" {
		r.UserID = "anonymous"
	}
	if strings.TrimSpace(r.Page) == "" {
		r.Page = "/"
	}
}
