package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ragis-server/internal/auth"
	"ragis-server/internal/config"
	"ragis-server/middleware"
	"ragis-server/models"
	"ragis-server/utils"
)

func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, db *mongo.Database) {
	users := db.Collection("users")

	router.POST("/auth/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var user models.User
		err := users.FindOne(c.Request.Context(), bson.M{"username": req.Username}).Decode(&user)
		if err != nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		ttl, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			ttl = 24 * time.Hour
		}
		token, err := auth.CreateToken(cfg.JWTSecret, user.Username, user.Role, ttl)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		c.SetCookie("access_token", token, int(ttl.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, models.LoginResponse{
			Token:    token,
			Username: user.Username,
			Role:     user.Role,
		})
	})

	router.POST("/auth/logout", func(c *gin.Context) {
		c.SetCookie("access_token", "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	})

	me := router.Group("/auth")
	me.Use(middleware.RequireAuth(cfg))
	me.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"username": c.GetString("username"),
			"role":     c.GetString("role"),
		})
	})
}

// EnsureDefaultAdmin creates the bootstrap admin account when the users
// collection is empty, so a fresh deployment is reachable.
func EnsureDefaultAdmin(ctx context.Context, db *mongo.Database, username, password string) error {
	users := db.Collection("users")
	count, err := users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password, 0)
	if err != nil {
		return err
	}
	_, err = users.InsertOne(ctx, models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         "admin",
		CreatedAt:    time.Now().UTC(),
	})
	return err
}
