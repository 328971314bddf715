// Package ai wraps the generative model used for writing assistance: summaries,
// whole draft posts and cover images.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GeneratedPost is a draft produced from a topic.
type GeneratedPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

// Image is a generated picture ready to be uploaded.
type Image struct {
	Data        []byte
	ContentType string
}

// Generator is the contract the post editor's assistant depends on.
type Generator interface {
	Summarize(ctx context.Context, text string) (string, error)
	GeneratePost(ctx context.Context, topic string) (*GeneratedPost, error)
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// ErrEmptyResponse is returned when the model answers with no usable content.
var ErrEmptyResponse = errors.New("ai: model returned an empty response")

// parseGeneratedPost decodes a draft from a model reply. Models sometimes wrap
// the object in prose or code fences, so everything outside the outermost
// braces is dropped first.
func parseGeneratedPost(reply string) (*GeneratedPost, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("ai: no JSON object in model reply")
	}

	var p GeneratedPost
	if err := json.Unmarshal([]byte(reply[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("ai: decoding generated post: %w", err)
	}
	if p.Title == "" && p.Content == "" {
		return nil, ErrEmptyResponse
	}
	return &p, nil
}
