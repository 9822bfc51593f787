package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ragis-server/internal/config"
	"ragis-server/internal/logger"
	"ragis-server/middleware"
	"ragis-server/models"
	"ragis-server/services"
	"ragis-server/utils"
)

const (
	updatingAnswer     = "The knowledge base is currently being updated. Please try again in a moment."
	noInfoAnswer       = "I could not find relevant information in the knowledge base for this question."
	insufficientAnswer = "The knowledge base does not contain enough information to answer this question."
)

func SetupChatRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *mongo.Database,
	indexer *services.Indexer,
	gate *services.Gate,
	query *services.QueryService,
	paramStore *services.ParamStore,
) {
	messages := db.Collection("messages")

	chat := router.Group("/chat")
	chat.Use(middleware.RequireAuth(cfg))

	chat.POST("", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if indexer.Busy() {
			c.JSON(http.StatusServiceUnavailable, models.ChatResponse{
				Answer:     updatingAnswer,
				Sources:    []models.Source{},
				Reindexing: true,
			})
			return
		}

		ctx := c.Request.Context()
		params := paramStore.Resolve(ctx)
		if req.TopK != nil && *req.TopK > 0 {
			params.TopK = *req.TopK
		}
		if req.DistanceThreshold != nil && *req.DistanceThreshold > 0 {
			params.DistanceThreshold = *req.DistanceThreshold
		}
		if req.LLMModel != "" {
			params.LLMModel = req.LLMModel
		}

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		decision, err := gate.Decide(ctx, req.Prompt, params)
		if err != nil {
			logger.Error("Relevance check failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to evaluate question", nil)
			return
		}
		if !decision.Answerable {
			respondAndStore(c, messages, models.ChatResponse{
				Answer:         noInfoAnswer + " " + decision.Reason,
				Sources:        []models.Source{},
				ConversationID: conversationID,
			}, req.Prompt)
			return
		}

		answer, sources, err := query.Answer(ctx, req.Prompt, params)
		if errors.Is(err, services.ErrEmptyIndex) {
			logger.Error("Retrieval returned nothing after a positive gate decision", "error", err)
			utils.RespondWithInternalError(c, "Retrieval failed", nil)
			return
		}
		if err != nil {
			logger.Error("Answer pipeline failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to generate answer", nil)
			return
		}
		if answer == "" {
			answer = insufficientAnswer
		}

		respondAndStore(c, messages, models.ChatResponse{
			Answer:         answer,
			Sources:        sources,
			ConversationID: conversationID,
		}, req.Prompt)
	})

	chat.GET("/history", func(c *gin.Context) {
		filter := bson.M{"username": c.GetString("username")}
		if conversationID := c.Query("conversation_id"); conversationID != "" {
			filter["conversation_id"] = conversationID
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(50)
		cursor, err := messages.Find(c.Request.Context(), filter, opts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		var history []models.Message
		if err := cursor.All(c.Request.Context(), &history); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode history", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": history})
	})
}

// respondAndStore sends the chat response and persists the exchange.
// History is best effort; a storage failure never fails the chat call.
func respondAndStore(c *gin.Context, messages *mongo.Collection, resp models.ChatResponse, question string) {
	c.JSON(http.StatusOK, resp)

	msg := models.Message{
		Username:       c.GetString("username"),
		ConversationID: resp.ConversationID,
		Question:       question,
		Answer:         resp.Answer,
		Sources:        resp.Sources,
		Timestamp:      time.Now().UTC(),
	}
	if _, err := messages.InsertOne(c.Request.Context(), msg); err != nil {
		logger.Warn("Failed to store chat message", "error", err)
	}
}
