package model

import (
	"encoding/json"
	"fmt"

	"github.com/biomerkin/biomerkin/internal/core"
)

// codec encodes a generation request and extracts text from the
// backend's response shape.
type codec interface {
	EncodeRequest(prompt string, opts core.GenerateOptions) ([]byte, error)
	DecodeResponse(body []byte) (string, error)
}

// novaCodec speaks the Nova message shape: content is a list of text
// blocks and inference parameters live under inferenceConfig.
type novaCodec struct{}

type novaRequest struct {
	Messages []novaMessage `json:"messages"`
	Config   novaConfig    `json:"inferenceConfig"`
}

type novaMessage struct {
	Role    string        `json:"role"`
	Content []novaContent `json:"content"`
}

type novaContent struct {
	Text string `json:"text"`
}

type novaConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type novaResponse struct {
	Output struct {
		Message struct {
			Content []novaContent `json:"content"`
		} `json:"message"`
	} `json:"output"`
}

func (novaCodec) EncodeRequest(prompt string, opts core.GenerateOptions) ([]byte, error) {
	return json.Marshal(novaRequest{
		Messages: []novaMessage{
			{Role: "user", Content: []novaContent{{Text: prompt}}},
		},
		Config: novaConfig{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature},
	})
}

func (novaCodec) DecodeResponse(body []byte) (string, error) {
	var resp novaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding nova response: %w", err)
	}
	if len(resp.Output.Message.Content) == 0 {
		return "", fmt.Errorf("nova response has no content blocks")
	}
	return resp.Output.Message.Content[0].Text, nil
}

// openaiCodec speaks the chat-completions shape: content is a plain
// string and parameters sit at the top level.
type openaiCodec struct{}

type openaiRequest struct {
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

func (openaiCodec) EncodeRequest(prompt string, opts core.GenerateOptions) ([]byte, error) {
	return json.Marshal(openaiRequest{
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

func (openaiCodec) DecodeResponse(body []byte) (string, error) {
	var resp openaiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
