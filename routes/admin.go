package routes

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ragis-server/internal/config"
	"ragis-server/internal/logger"
	"ragis-server/internal/queue"
	"ragis-server/middleware"
	"ragis-server/models"
	"ragis-server/services"
	"ragis-server/utils"
)

func SetupAdminRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *mongo.Database,
	store services.VectorStore,
	indexer *services.Indexer,
	paramStore *services.ParamStore,
	queueClient *asynq.Client,
) {
	users := db.Collection("users")

	admin := router.Group("/admin")
	admin.Use(middleware.RequireAuth(cfg), middleware.RequireAdmin())

	admin.POST("/reindex", func(c *gin.Context) {
		params := paramStore.Resolve(c.Request.Context())
		result, err := indexer.Reindex(c.Request.Context(), params)
		if errors.Is(err, services.ErrIndexerBusy) {
			c.JSON(http.StatusConflict, gin.H{"message": "reindex already in progress"})
			return
		}
		if err != nil {
			logger.Error("Reindex failed", "error", err)
			utils.RespondWithInternalError(c, "Reindex failed", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	admin.GET("/index/stats", func(c *gin.Context) {
		stats, err := store.Stats(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read index stats", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"stats":      stats,
			"reindexing": indexer.Busy(),
		})
	})

	admin.GET("/parameters", func(c *gin.Context) {
		overrides, err := paramStore.All(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load parameters", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"effective": paramStore.Resolve(c.Request.Context()),
			"overrides": overrides,
		})
	})

	admin.POST("/parameters", func(c *gin.Context) {
		var req map[string]string
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		for key, value := range req {
			if err := paramStore.Set(c.Request.Context(), key, value); err != nil {
				utils.RespondWithBadRequest(c, "Invalid parameter", gin.H{"key": key, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"effective": paramStore.Resolve(c.Request.Context())})
	})

	admin.GET("/models", func(c *gin.Context) {
		params := paramStore.Resolve(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"models":  params.Models,
			"current": params.LLMModel,
		})
	})

	admin.POST("/upload", func(c *gin.Context) {
		if indexer.Busy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "reindex in progress, retry shortly"})
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files uploaded", nil)
			return
		}

		params := paramStore.Resolve(c.Request.Context())
		saved := make([]string, 0, len(files))
		for _, file := range files {
			name := filepath.Base(file.Filename)
			dest := filepath.Join(params.DataDir, name)
			if err := c.SaveUploadedFile(file, dest); err != nil {
				utils.RespondWithInternalError(c, "Failed to save file", gin.H{"file": name, "error": err.Error()})
				return
			}
			saved = append(saved, name)
		}

		if queueClient != nil {
			task, err := queue.NewReindexTask("upload")
			if err == nil {
				_, err = queueClient.Enqueue(task)
			}
			if err != nil {
				logger.Warn("Failed to enqueue reindex after upload", "error", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"uploaded": saved, "reindex_queued": queueClient != nil})
	})

	admin.GET("/users", func(c *gin.Context) {
		cursor, err := users.Find(c.Request.Context(), bson.M{})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list users", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		var list []models.User
		if err := cursor.All(c.Request.Context(), &list); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode users", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": list})
	})

	admin.POST("/users", func(c *gin.Context) {
		var req models.UserRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
			utils.RespondWithBadRequest(c, "Username and password are required", nil)
			return
		}
		role := req.Role
		if role == "" {
			role = "user"
		}

		hash, err := utils.HashPassword(req.Password, 0)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to hash password", nil)
			return
		}

		_, err = users.InsertOne(c.Request.Context(), models.User{
			Username:     req.Username,
			PasswordHash: hash,
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		})
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "username already exists"})
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"username": req.Username, "role": role})
	})

	admin.PUT("/users/:username", func(c *gin.Context) {
		var req models.UserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", nil)
			return
		}

		update := bson.M{}
		if req.Password != "" {
			hash, err := utils.HashPassword(req.Password, 0)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to hash password", nil)
				return
			}
			update["password_hash"] = hash
		}
		if req.Role != "" {
			update["role"] = req.Role
		}
		if len(update) == 0 {
			utils.RespondWithBadRequest(c, "Nothing to update", nil)
			return
		}

		result, err := users.UpdateOne(c.Request.Context(),
			bson.M{"username": c.Param("username")},
			bson.M{"$set": update})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update user", nil)
			return
		}
		if result.MatchedCount == 0 {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "user updated"})
	})

	admin.DELETE("/users/:username", func(c *gin.Context) {
		username := c.Param("username")
		if username == c.GetString("username") {
			utils.RespondWithBadRequest(c, "Cannot delete your own account", nil)
			return
		}

		result, err := users.DeleteOne(c.Request.Context(), bson.M{"username": username})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete user", nil)
			return
		}
		if result.DeletedCount == 0 {
			utils.RespondWithNotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
	})
}
