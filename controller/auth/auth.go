package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"itsdone/dto"
	"itsdone/middleware"
	"itsdone/services"
)

func AuthController(router *gin.Engine, authService *services.AuthService) {
	routes := router.Group("/auth")
	{
		routes.POST("/signup", func(c *gin.Context) {
			Signup(c, authService)
		})
		routes.POST("/signin", func(c *gin.Context) {
			Signin(c, authService)
		})
		routes.POST("/signout", middleware.AccessTokenMiddleware(), func(c *gin.Context) {
			Signout(c, authService)
		})
		routes.POST("/refresh", middleware.RefreshTokenMiddleware(), func(c *gin.Context) {
			Refresh(c, authService)
		})
	}
}

func Signup(c *gin.Context, authService *services.AuthService) {
	var request dto.SignupRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := authService.SignUp(c.Request.Context(), request.Name, request.Email, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   tokens,
	})
}

func Signin(c *gin.Context, authService *services.AuthService) {
	var request dto.SigninRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := authService.SignIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login Successfully",
		"token":   tokens,
	})
}

func Signout(c *gin.Context, authService *services.AuthService) {
	authService.SignOut(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func Refresh(c *gin.Context, authService *services.AuthService) {
	userID := c.MustGet("userId").(string)
	email := c.GetString("email")
	refreshToken := c.MustGet("refreshToken").(string)

	accessToken, err := authService.RefreshAccessToken(c.Request.Context(), userID, email, refreshToken)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid refresh token: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}
