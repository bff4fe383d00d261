// Package vision classifies food photos with a generative AI model.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/savora-food/api/internal/enum"
)

const (
	DefaultFoodName    = "Unknown Item"
	DefaultDescription = "No description available"
)

var ErrNoJSON = errors.New("model reply contained no JSON object")

// UpstreamError wraps a failure of the AI service. The message is passed
// through to clients.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "AI service error: " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// Generator sends a prompt plus an image to a model and returns its text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Result is the classification of one image.
type Result struct {
	FoodName    string `json:"foodName"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type Analyzer struct {
	gen Generator
}

func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

// Analyze asks the model to describe the dish in image and normalizes the
// reply. Missing fields get defaults and an unknown category falls back to
// appetizer.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (Result, error) {
	reply, err := a.gen.Generate(ctx, prompt(), image, mimeType)
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}
	res, err := ParseReply(reply)
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}
	return res, nil
}

func prompt() string {
	return `Analyze this food image and reply with only a JSON object of the form
{"foodName": "...", "description": "...", "category": "..."}.
description is one or two appetizing sentences suitable for a restaurant menu.
category must be one of: ` + strings.Join(enum.Categories, ", ") + `.`
}

// ParseReply extracts the first JSON object from a model reply, which may be
// wrapped in prose or a Markdown code fence.
func ParseReply(reply string) (Result, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Result{}, ErrNoJSON
	}

	var res Result
	if err := json.Unmarshal([]byte(reply[start:end+1]), &res); err != nil {
		return Result{}, err
	}

	res.FoodName = strings.TrimSpace(res.FoodName)
	if res.FoodName == "" {
		res.FoodName = DefaultFoodName
	}
	res.Description = strings.TrimSpace(res.Description)
	if res.Description == "" {
		res.Description = DefaultDescription
	}
	res.Category = strings.ToLower(strings.TrimSpace(res.Category))
	if !enum.IsCategory(res.Category) {
		res.Category = enum.CategoryAppetizer
	}
	return res, nil
}
