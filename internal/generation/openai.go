package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient generates images through the OpenAI images API.
type OpenAIClient struct {
	client openai.Client
	log    *slog.Logger
}

// NewOpenAIClient builds a client for baseURL, which is the API host without the /v1 suffix.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client, log *slog.Logger) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL+"/v1/"))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), log: log}
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	size := req.Size
	if size == "" {
		size = "1024x1024"
	}
	quality := req.Quality
	if quality == "" {
		quality = "hd"
	}

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:          openai.ImageModelDallE3,
		Prompt:         req.Prompt,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(size),
		Quality:        openai.ImageGenerateParamsQuality(quality),
		ResponseFormat: "b64_json",
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && c.log != nil {
			c.log.Error("openai image request failed", "status", apiErr.StatusCode, "err", err)
		}
		return nil, fmt.Errorf("openai generate image: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrEmptyResult
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResult
	}

	return &Image{Data: data, ContentType: "image/png"}, nil
}
