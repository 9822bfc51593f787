package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one question/answer exchange persisted for history.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Question       string             `bson:"question" json:"question"`
	Answer         string             `bson:"answer" json:"answer"`
	Sources        []Source           `bson:"sources,omitempty" json:"sources,omitempty"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

type ChatRequest struct {
	Prompt            string   `json:"prompt" binding:"required"`
	TopK              *int     `json:"top_k,omitempty"`
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	LLMModel          string   `json:"llm_model,omitempty"`
	ConversationID    string   `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Reindexing     bool     `json:"reindexing,omitempty"`
}
