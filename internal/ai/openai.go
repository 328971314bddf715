package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	summaryPrompt = "Please summarize the following text, ignoring any HTML markup:\n%s"

	postPrompt = `Generate a blog post on the topic: %q.
Respond with a single JSON object and nothing else, in exactly this shape:
{"title": "A catchy title for the blog post", "content": "The main body of the blog post", "summary": "A one-sentence summary of the blog post"}`

	systemPrompt = "You are a helpful writing assistant for a technical blog."
)

// OpenAIGenerator implements Generator with the OpenAI chat and image APIs.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	imageModel string
	logger     *slog.Logger
}

// NewOpenAIGenerator creates a generator for the given API key.
func NewOpenAIGenerator(apiKey, model, imageModel string, logger *slog.Logger) *OpenAIGenerator {
	return newOpenAIGenerator(openai.DefaultConfig(apiKey), model, imageModel, logger)
}

func newOpenAIGenerator(cfg openai.ClientConfig, model, imageModel string, logger *slog.Logger) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	if imageModel == "" {
		imageModel = openai.CreateImageModelDallE3
	}
	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		imageModel: imageModel,
		logger:     logger,
	}
}

func (g *OpenAIGenerator) Summarize(ctx context.Context, text string) (string, error) {
	reply, err := g.chat(ctx, fmt.Sprintf(summaryPrompt, text), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (g *OpenAIGenerator) GeneratePost(ctx context.Context, topic string) (*GeneratedPost, error) {
	reply, err := g.chat(ctx, fmt.Sprintf(postPrompt, topic), &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return nil, err
	}
	return parseGeneratedPost(reply)
}

func (g *OpenAIGenerator) chat(ctx context.Context, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	g.logger.Debug("requesting chat completion", slog.String("model", g.model))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("chat completion finished",
		slog.String("finishReason", string(resp.Choices[0].FinishReason)),
		slog.Int("totalTokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage renders a wide cover image and returns the PNG bytes.
func (g *OpenAIGenerator) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	g.logger.Debug("requesting image", slog.String("model", g.imageModel))

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrEmptyResponse
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("ai: decoding image: %w", err)
	}
	return &Image{Data: data, ContentType: "image/png"}, nil
}
