// Package llm provides the optional generative-answer client. Absence of
// configuration is fully functional: callers fall back to extractive
// synthesis whenever the client is nil or the call fails.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
)

// systemInstruction pins the model to the retrieved passages. The answer
// contract forbids drawing on outside knowledge.
const systemInstruction = "You are a legal assistant for Bhutan's legal system. " +
	"Answer the question using ONLY the provided legal context. " +
	"Cite the source documents you rely on. " +
	"If the context does not contain the answer, say so plainly."

// MessageWriter receives streamed answer chunks. Both a websocket.Conn and
// the in-process collector used by the synchronous path satisfy it.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client is the generative-answer service contract.
type Client interface {
	// Answer synchronously produces an answer from the question and
	// retrieved context. The call is bounded by the configured timeout.
	Answer(ctx context.Context, question, contextText string) (string, error)
	// StreamAnswer streams answer chunks into writer as they arrive.
	StreamAnswer(ctx context.Context, question, contextText string, writer MessageWriter) error
}

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a client for an OpenAI-compatible chat completions API,
// or nil when no API key is configured.
func NewClient(cfg config.LLMConfig) Client {
	if cfg.APIKey == "" {
		return nil
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// answerCollector satisfies MessageWriter and accumulates the full answer.
type answerCollector struct {
	builder strings.Builder
}

func (c *answerCollector) WriteMessage(messageType int, data []byte) error {
	c.builder.Write(data)
	return nil
}

// Answer collects the streamed response into one string.
func (c *openAICompatibleClient) Answer(ctx context.Context, question, contextText string) (string, error) {
	collector := &answerCollector{}
	if err := c.StreamAnswer(ctx, question, contextText, collector); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(collector.builder.String())
	if answer == "" {
		return "", fmt.Errorf("generative service returned an empty answer")
	}
	return answer, nil
}

// StreamAnswer calls the chat completions API and writes each streamed chunk
// to the writer. The configured timeout bounds the whole call.
func (c *openAICompatibleClient) StreamAnswer(ctx context.Context, question, contextText string, writer MessageWriter) error {
	timeout := time.Duration(c.cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemInstruction + "\n\nLEGAL CONTEXT:\n" + contextText},
			{Role: "user", Content: question},
		},
		Stream: true,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read from stream: %w", err)
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if strings.TrimSpace(data) == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 {
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			if err := writer.WriteMessage(websocket.TextMessage, []byte(content)); err != nil {
				return fmt.Errorf("failed to write answer chunk: %w", err)
			}
		}
	}
	return nil
}
