package ai

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"cloudnav/internal/domain"
)

const defaultGeminiModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiDescriber uses the Gemini API.
type GeminiDescriber struct {
	models contentGenerator
	model  string
	log    logrus.FieldLogger
}

func newGeminiDescriber(ctx context.Context, cfg domain.AIConfig, log logrus.FieldLogger) (*GeminiDescriber, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		log.WithError(err).Error("Error creating Gemini client")
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &GeminiDescriber{models: client.Models, model: modelName, log: log}, nil
}

// Describe implements Describer.
func (d *GeminiDescriber) Describe(ctx context.Context, title, url string) (string, error) {
	resp, err := d.models.GenerateContent(ctx, d.model, genai.Text(buildPrompt(title, url)), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	d.log.WithField("url", url).Debug("Description generated")
	return finish(resp.Text())
}
