// Package llmtest provides hand-written llm.Client fakes for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/placement-prep/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	StartChatFunc       func(systemInstruction string, tier llm.ModelTier) llm.Chat
	TranscribeFunc      func(ctx context.Context, audio []byte, mimeType string) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error

	mu      sync.Mutex
	prompts []string
}

// Prompts returns every prompt passed to GenerateContent or GenerateJSON.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockLLMClient) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "mock content", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `[]`, nil
}

func (m *MockLLMClient) StartChat(systemInstruction string, tier llm.ModelTier) llm.Chat {
	if m.StartChatFunc != nil {
		return m.StartChatFunc(systemInstruction, tier)
	}
	return &MockChat{}
}

func (m *MockLLMClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, mimeType)
	}
	return "", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockChat implements llm.Chat for testing. Without SendFunc it echoes.
type MockChat struct {
	SendFunc func(ctx context.Context, text string) (string, error)

	mu   sync.Mutex
	sent []string
}

func (c *MockChat) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	if c.SendFunc != nil {
		return c.SendFunc(ctx, text)
	}
	return "echo: " + text, nil
}

// Sent returns every message passed to Send.
func (c *MockChat) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}
