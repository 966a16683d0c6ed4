// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h RouterHandlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 个人资料
	v1.GET("/profile", h.Profile.Get)
	v1.PUT("/profile", h.Profile.Update)

	// 对话
	v1.POST("/chat", h.Chat.Submit)
	v1.POST("/chat/reset", h.Chat.Reset)
	v1.GET("/usage", h.Chat.Usage)

	conversations := v1.Group("/conversations")
	{
		conversations.GET("", h.Chat.ListConversations)
		conversations.POST("", h.Chat.CreateConversation)
		conversations.GET("/:cid", h.Chat.GetConversation)
		conversations.PUT("/:cid", h.Chat.UpdateConversation)
		conversations.GET("/:cid/messages", h.Chat.ListMessages)
		conversations.DELETE("/:cid", h.Chat.ArchiveConversation)
	}

	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.PUT("/:pid", h.Project.UpdateProject)
		projects.DELETE("/:pid", h.Project.ArchiveProject)
		projects.PUT("/:pid/hardware", h.Project.UpdateHardware)
		projects.GET("/:pid/dashboard", h.Project.Dashboard)
		projects.POST("/:pid/stage/advance", h.Project.AdvanceStage)

		// 项目文档
		projects.GET("/:pid/documents", h.Project.ListDocuments)
		projects.POST("/:pid/documents", h.Project.RecordDocument)
		projects.GET("/:pid/documents/:did", h.Project.GetDocument)
		projects.POST("/:pid/upload-fds", h.Project.UploadFDS)
		projects.POST("/:pid/generate/:doc_type", h.Project.GenerateDocument)
	}

	// 自动化桥与输出文件
	v1.GET("/bridge/status", h.Bridge.Status)
	v1.GET("/outputs", h.Bridge.ListOutputs)
	v1.GET("/outputs/:name", h.Bridge.GetOutput)
}
