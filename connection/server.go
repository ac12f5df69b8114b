package connection

import (
	"context"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"itsdone/cache"
	authController "itsdone/controller/auth"
	taskController "itsdone/controller/task"
	userController "itsdone/controller/user"
	"itsdone/logger"
	"itsdone/model"
	"itsdone/reminder"
	"itsdone/remote"
	"itsdone/services"
	"itsdone/store"
)

func StartServer() {
	fb, err := FBConnection()
	if err != nil {
		logger.Error("Failed to initialize Firestore client", err)
		os.Exit(1)
	}

	cachePath := os.Getenv("CACHE_DB_PATH")
	if cachePath == "" {
		cachePath = "itsdone.db"
	}
	localCache, err := cache.Open(cachePath)
	if err != nil {
		logger.Error("Failed to open local cache", err)
		os.Exit(1)
	}

	notifier := reminder.NewLocalNotifier(nil)
	if err := notifier.RequestPermission(context.Background()); err != nil {
		logger.Warn("notification permission request failed", zap.Error(err))
	}

	taskStore := store.New(localCache, reminder.NewScheduler(notifier), remote.NewChannel(fb))

	// The task store follows the session: a sign-in attaches the live
	// remote subscription, a sign-out tears it down.
	authService := services.NewAuthService(fb, localCache)
	authService.Watch(func(session *model.Session) {
		if session != nil {
			taskStore.Attach(context.Background(), session)
		} else {
			taskStore.Detach()
		}
	})
	authService.Resume(context.Background())

	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Api is running!"})
	})

	router.Use(cors.Default())

	authController.AuthController(router, authService)
	taskController.TaskController(router, taskStore)
	userController.UserController(router, authService, fb)

	router.Run()
}
