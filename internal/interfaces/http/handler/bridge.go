// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/infrastructure/bridge"
	"plc-agent-api/internal/infrastructure/storage"
	"plc-agent-api/internal/interfaces/http/dto"
)

// BridgeHandler 自动化桥状态与输出文件处理器
type BridgeHandler struct {
	bridge  *bridge.Client
	outputs *storage.OutputStore
}

// NewBridgeHandler 创建处理器
func NewBridgeHandler(br *bridge.Client, outputs *storage.OutputStore) *BridgeHandler {
	return &BridgeHandler{bridge: br, outputs: outputs}
}

// Status 查询桥连接状态，桥不可达时 connected 为 false
// @Summary 自动化桥状态
// @Tags Bridge
// @Produce json
// @Success 200 {object} dto.Response[bridge.Status]
// @Router /v1/bridge/status [get]
func (h *BridgeHandler) Status(c *gin.Context) {
	dto.Success(c, h.bridge.Status(c.Request.Context()))
}

// ListOutputs 列出输出目录文件
func (h *BridgeHandler) ListOutputs(c *gin.Context) {
	files, err := h.outputs.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	dto.Success(c, files)
}

// GetOutput 读取输出文件内容
func (h *BridgeHandler) GetOutput(c *gin.Context) {
	name := c.Param("name")
	content, err := h.outputs.Read(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, gin.H{"name": name, "content": content})
}
