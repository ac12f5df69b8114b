package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"itsdone/connection"
	"itsdone/logger"
)

func main() {
	development := os.Getenv("ENV") == "development"
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := logger.Init(development); err != nil {
		panic(err)
	}
	defer logger.Sync()

	connection.StartServer()
}
