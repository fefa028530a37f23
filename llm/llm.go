// Package llm 提供统一的文本生成提供者接口与 OpenAI 兼容实现，
// 以及面向课程助教场景的提示词模板。
package llm

import "context"

// Role 消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 对话消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 表示一次生成请求。
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Usage 表示生成请求的 Token 用量。
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse 表示生成请求的响应。
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Provider 定义统一的生成提供者接口。
// 生成可能很慢（数秒级）且可能瞬时失败；重试策略属于调用方。
type Provider interface {
	// Complete 执行一次生成调用。
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name 返回提供者名称。
	Name() string
}

// Completion 是 system + user 两条消息的便捷生成入口。
func Completion(ctx context.Context, p Provider, system, user string) (string, error) {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: user})

	resp, err := p.Complete(ctx, &ChatRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
