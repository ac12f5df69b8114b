package task

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"itsdone/dto"
	"itsdone/model"
	"itsdone/store"
)

func TaskController(router *gin.Engine, taskStore *store.TaskStore) {
	router.GET("/tasks", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tasks": displayOrder(taskStore.Tasks())})
	})
	router.POST("/task", func(c *gin.Context) {
		CreateTask(c, taskStore)
	})
	router.PATCH("/task/:id", func(c *gin.Context) {
		UpdateTask(c, taskStore)
	})
	router.DELETE("/task/:id", func(c *gin.Context) {
		DeleteTask(c, taskStore)
	})
	router.POST("/task/:id/toggle", func(c *gin.Context) {
		ToggleComplete(c, taskStore)
	})
	router.POST("/tasks/reload", func(c *gin.Context) {
		Reload(c, taskStore)
	})
}

// displayOrder keeps store order but moves completed tasks after
// pending ones, a display convention only.
func displayOrder(tasks []model.Task) []model.Task {
	sort.SliceStable(tasks, func(i, j int) bool {
		return !tasks[i].Completed && tasks[j].Completed
	})
	return tasks
}

func CreateTask(c *gin.Context, taskStore *store.TaskStore) {
	var request dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// the store does not reject empty text; validation happens here
	text := strings.TrimSpace(request.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task text is required"})
		return
	}

	taskStore.AddTask(c.Request.Context(), text, request.Completed, request.DueDate)
	c.JSON(http.StatusCreated, gin.H{"message": "Task created successfully"})
}

func UpdateTask(c *gin.Context, taskStore *store.TaskStore) {
	var request dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if request.Text != nil {
		trimmed := strings.TrimSpace(*request.Text)
		if trimmed == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Task text must not be empty"})
			return
		}
		request.Text = &trimmed
	}

	patch := model.TaskPatch{
		Text:       request.Text,
		Completed:  request.Completed,
		DueDate:    request.DueDate.Value,
		HasDueDate: request.DueDate.Set,
	}
	if patch.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	taskStore.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

func DeleteTask(c *gin.Context, taskStore *store.TaskStore) {
	taskStore.DeleteTask(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func ToggleComplete(c *gin.Context, taskStore *store.TaskStore) {
	taskStore.ToggleComplete(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Task toggled successfully"})
}

func Reload(c *gin.Context, taskStore *store.TaskStore) {
	taskStore.Reload()
	c.JSON(http.StatusOK, gin.H{"tasks": displayOrder(taskStore.Tasks())})
}
