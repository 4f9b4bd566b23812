package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gogpu/sprite"
)

// customImageSize is the requested output size of the custom endpoint.
const customImageSize = "1024x1024"

// Custom generates sheets through an OpenAI-compatible
// POST {base}/images/generations endpoint.
type Custom struct {
	baseURL string
	apiKey  string
	model   string
	opts    options
}

// NewCustom returns a provider for the endpoint at baseURL. All of baseURL,
// apiKey and model are required.
func NewCustom(baseURL, apiKey, model string, opts ...Option) (*Custom, error) {
	var missing []string
	if baseURL == "" {
		missing = append(missing, "URL")
	}
	if apiKey == "" {
		missing = append(missing, "API key")
	}
	if model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: custom endpoint missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Custom{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		opts:    o,
	}, nil
}

// Name returns "custom:" followed by the model name.
func (c *Custom) Name() string {
	return "custom:" + c.model
}

type customRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type customResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Generate requests one image. A b64_json result is returned as a PNG data:
// URI; a url result is downloaded.
func (c *Custom) Generate(ctx context.Context, prompt string) ([]byte, error) {
	req := customRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           customImageSize,
		ResponseFormat: "b64_json",
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	sprite.Logger().Info("provider: generating sheet", "provider", "custom", "model", c.model)

	var resp customResponse
	if err := postJSON(ctx, c.opts.client, c.baseURL+"/images/generations", header, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoImage
	}
	switch d := resp.Data[0]; {
	case d.B64JSON != "":
		return []byte("data:image/png;base64," + d.B64JSON), nil
	case d.URL != "":
		return download(ctx, c.opts.client, d.URL)
	}
	return nil, ErrNoImage
}
