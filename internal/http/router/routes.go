package router

import (
	"basegraph.app/chat/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func AuthRouter(rg *gin.RouterGroup, h *handler.AuthHandler) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
}

// UserRouter mounts presence routes on rg and user seeding on the admin group.
func UserRouter(rg *gin.RouterGroup, admin *gin.RouterGroup, h *handler.UserHandler) {
	rg.GET("", h.List)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/unread/reset", h.ResetUnread)

	admin.POST("/users", h.Create)
}

func ProjectRouter(rg *gin.RouterGroup, admin *gin.RouterGroup, h *handler.ProjectHandler) {
	rg.GET("", h.List)

	admin.POST("/projects", h.Create)
}

// MessageRouter also hosts task and poll creation, which hang off a message.
func MessageRouter(rg *gin.RouterGroup, h *handler.MessageHandler, index *handler.IndexHandler) {
	rg.GET("", h.List)
	rg.POST("", h.Send)
	rg.PATCH("/:id", h.Edit)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/toggle", h.ToggleStatus)
	rg.POST("/:id/tasks", index.CreateTask)
	rg.POST("/:id/polls", index.CreatePoll)
}

func TaskRouter(rg *gin.RouterGroup, h *handler.IndexHandler) {
	rg.GET("", h.ListTasks)
	rg.POST("/:id/toggle", h.ToggleTask)
	rg.DELETE("/:id", h.DeleteTask)
}

func PollRouter(rg *gin.RouterGroup, h *handler.IndexHandler) {
	rg.GET("", h.ListPolls)
	rg.GET("/:id", h.GetPoll)
	rg.POST("/:id/votes", h.Vote)
}
