package agent

import (
	"os"
	"strings"
)

const defaultSystemPrompt = "You are a PLC programming assistant."

// LoadSystemPrompt 读取系统提示词文件，不存在或为空时使用内置提示词
func LoadSystemPrompt(path string) string {
	if path == "" {
		return defaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultSystemPrompt
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return defaultSystemPrompt
}
