// Package genaiclient implements the pipeline's external capabilities on
// the Gemini API: sketch refinement, component extraction, and build-plan
// generation. It is a thin wrapper around the official genai client; the
// orchestrator owns timeouts and failure classification.
package genaiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/ufakz/architectai/internal/domain"
	"github.com/ufakz/architectai/internal/pipeline"
)

var ErrEmptyResponse = errors.New("genaiclient: empty model response")

const (
	defaultImageModel = "gemini-2.5-flash-image"
	defaultTextModel  = "gemini-2.5-flash"

	sketchMIMEType = "image/png"
)

const refinePrompt = `You are an expert software architect. Synthesize the attached rough
architecture sketches into one clean, readable architecture diagram image.
Preserve every component and connection present in the sketches; do not invent new ones.`

const componentsPrompt = `You are an expert software architect. Extract the architectural
components visible in the attached diagram. Return a JSON array of objects with exactly
the fields "name" and "description". Return JSON only.`

const planPrompt = `You are an expert software architect. Using the attached architecture
diagram and the component list below (including the user's requirements notes), write a
step-by-step implementation plan in Markdown.`

// Client implements pipeline.Refiner, pipeline.Analyzer and pipeline.Planner.
type Client struct {
	cli        *genai.Client
	imageModel string
	textModel  string
}

// New creates a client. Empty model names fall back to the defaults; the
// API key is read by the genai client from the environment.
func New(ctx context.Context, imageModel, textModel string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(imageModel) == "" {
		imageModel = defaultImageModel
	}
	if strings.TrimSpace(textModel) == "" {
		textModel = defaultTextModel
	}
	return &Client{cli: cli, imageModel: imageModel, textModel: textModel}, nil
}

// Refine asks the image model for a single refined diagram built from all
// sketches and returns the returned image bytes.
func (c *Client) Refine(ctx context.Context, images [][]byte) ([]byte, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, &genai.Part{Text: refinePrompt})
	for _, img := range images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: sketchMIMEType, Data: img}})
	}

	resp, err := c.cli.Models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData.Data, nil
			}
		}
	}
	return nil, ErrEmptyResponse
}

// Components asks the text model for the component list of one refined
// diagram as JSON.
func (c *Client) Components(ctx context.Context, image []byte) ([]pipeline.InferredComponent, error) {
	resp, err := c.cli.Models.GenerateContent(ctx, c.textModel,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: componentsPrompt},
			{InlineData: &genai.Blob{MIMEType: sketchMIMEType, Data: image}},
		}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	txt := firstText(resp)
	if txt == "" {
		return nil, ErrEmptyResponse
	}
	var out []pipeline.InferredComponent
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return nil, fmt.Errorf("genaiclient: unusable component payload: %w", err)
	}
	return out, nil
}

// Plan asks the text model for an implementation document.
func (c *Client) Plan(ctx context.Context, image []byte, specs []domain.ComponentSpec) (string, error) {
	specsJSON, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return "", err
	}
	resp, err := c.cli.Models.GenerateContent(ctx, c.textModel,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: planPrompt + "\n\n[COMPONENTS]\n" + string(specsJSON)},
			{InlineData: &genai.Blob{MIMEType: sketchMIMEType, Data: image}},
		}}}, nil)
	if err != nil {
		return "", err
	}
	txt := firstText(resp)
	if txt == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}
