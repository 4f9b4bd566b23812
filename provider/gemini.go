package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gogpu/sprite"
)

// Gemini image models.
const (
	GeminiFlashImage = "gemini-2.5-flash-image"
	GeminiProImage   = "gemini-3-pro-image-preview"
)

// DefaultGeminiEndpoint is the Generative Language API base URL.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// geminiAspectRatio is the closest supported ratio to an 8:7 sheet.
const geminiAspectRatio = "4:3"

// Gemini generates sheets with a Gemini image model.
type Gemini struct {
	model  string
	apiKey string
	opts   options
}

// NewGemini returns a Gemini provider for model. An empty model selects
// GeminiFlashImage.
func NewGemini(model, apiKey string, opts ...Option) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", ErrNotConfigured)
	}
	if model == "" {
		model = GeminiFlashImage
	}
	o := defaultOptions()
	o.baseURL = DefaultGeminiEndpoint
	for _, opt := range opts {
		opt(&o)
	}
	return &Gemini{model: model, apiKey: apiKey, opts: o}, nil
}

// Name returns the model name.
func (g *Gemini) Name() string {
	return g.model
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string          `json:"responseModalities"`
		ImageConfig        geminiImageConfig `json:"imageConfig"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate calls generateContent and returns the first inline image as a
// data: URI.
func (g *Gemini) Generate(ctx context.Context, prompt string) ([]byte, error) {
	var req geminiRequest
	req.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	req.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	req.GenerationConfig.ImageConfig.AspectRatio = geminiAspectRatio
	// imageSize is only accepted by the pro model.
	if g.model == GeminiProImage {
		req.GenerationConfig.ImageConfig.ImageSize = "2K"
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.opts.baseURL, url.PathEscape(g.model))
	header := http.Header{}
	header.Set("x-goog-api-key", g.apiKey)

	sprite.Logger().Info("provider: generating sheet", "provider", "gemini", "model", g.model)

	var resp geminiResponse
	if err := postJSON(ctx, g.opts.client, endpoint, header, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				uri := "data:" + part.InlineData.MimeType + ";base64," + part.InlineData.Data
				return []byte(uri), nil
			}
		}
	}
	return nil, ErrNoImage
}
