package user

import (
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"

	"itsdone/dto"
	"itsdone/middleware"
	"itsdone/model"
	"itsdone/services"
)

func UserController(router *gin.Engine, authService *services.AuthService, firestoreClient *firestore.Client) {
	routes := router.Group("/user", middleware.AccessTokenMiddleware())
	{
		routes.GET("/profile", func(c *gin.Context) {
			GetProfile(c, firestoreClient)
		})
		routes.PUT("/profile", func(c *gin.Context) {
			UpdateProfile(c, authService)
		})
		routes.DELETE("/account", func(c *gin.Context) {
			DeleteAccount(c, authService)
		})
	}
}

func GetProfile(c *gin.Context, firestoreClient *firestore.Client) {
	userID := c.MustGet("userId").(string)

	docSnap, err := services.GetUserDataByUserid(c.Request.Context(), firestoreClient, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := docSnap.DataTo(&user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse user data"})
		return
	}

	c.JSON(http.StatusOK, dto.UserResponse{
		UserID:    user.UserID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	})
}

func UpdateProfile(c *gin.Context, authService *services.AuthService) {
	userID := c.MustGet("userId").(string)

	var request dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := authService.UpdateProfile(c.Request.Context(), userID, request.Name, request.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func DeleteAccount(c *gin.Context, authService *services.AuthService) {
	userID := c.MustGet("userId").(string)

	if err := authService.DeleteAccount(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
