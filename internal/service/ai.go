package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/blog-platform/internal/ai"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/blob"
)

// AIService fronts the writing assistant. A nil generator means no API key is
// configured and every call is Unavailable.
type AIService struct {
	gen    ai.Generator
	blobs  blob.Store
	logger *slog.Logger
}

func NewAIService(gen ai.Generator, blobs blob.Store, logger *slog.Logger) *AIService {
	return &AIService{gen: gen, blobs: blobs, logger: logger}
}

func (s *AIService) ready(field, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if s.gen == nil {
		return "", apperror.Unavailable("the writing assistant is not configured")
	}
	return input, nil
}

// upstream logs a provider failure and hides its details from the client.
func (s *AIService) upstream(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("ai request failed", slog.String("op", op), slog.String("error", err.Error()))
	return &apperror.AppError{Err: apperror.ErrUnavailable, Message: "the writing assistant failed to respond"}
}

// Summarize condenses text into a short summary.
func (s *AIService) Summarize(ctx context.Context, text string) (string, error) {
	text, err := s.ready("text", text)
	if err != nil {
		return "", err
	}
	summary, err := s.gen.Summarize(ctx, text)
	if err != nil {
		return "", s.upstream("summary", err)
	}
	return summary, nil
}

// GeneratePost drafts a title, content and summary from a topic.
func (s *AIService) GeneratePost(ctx context.Context, topic string) (*ai.GeneratedPost, error) {
	topic, err := s.ready("text", topic)
	if err != nil {
		return nil, err
	}
	post, err := s.gen.GeneratePost(ctx, topic)
	if err != nil {
		return nil, s.upstream("content", err)
	}
	return post, nil
}

// GenerateImage creates an image from prompt, stores it and returns its URL.
// The URL can be submitted as a post cover.
func (s *AIService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	prompt, err := s.ready("prompt", prompt)
	if err != nil {
		return "", err
	}
	img, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return "", s.upstream("image", err)
	}

	url, err := storeUpload(ctx, s.blobs, "generated", &Upload{
		Reader:      bytes.NewReader(img.Data),
		ContentType: img.ContentType,
		Size:        int64(len(img.Data)),
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("image generated", slog.String("url", url), slog.Int("bytes", len(img.Data)))
	return url, nil
}
