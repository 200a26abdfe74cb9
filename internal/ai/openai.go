package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/domain"
)

const defaultOpenAIModel = "gpt-4o-mini"

type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// OpenAIDescriber talks to any OpenAI-compatible chat completions endpoint.
type OpenAIDescriber struct {
	chat chatGenerator
	log  logrus.FieldLogger
}

func newOpenAIDescriber(ctx context.Context, cfg domain.AIConfig, log logrus.FieldLogger) (*OpenAIDescriber, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   modelName,
	})
	if err != nil {
		log.WithError(err).Error("Error creating OpenAI chat model")
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &OpenAIDescriber{chat: chat, log: log}, nil
}

// Describe implements Describer.
func (d *OpenAIDescriber) Describe(ctx context.Context, title, url string) (string, error) {
	msg, err := d.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage("你是一个网站导航助手，擅长用一句话概括网站用途。"),
		schema.UserMessage(buildPrompt(title, url)),
	})
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if msg == nil {
		return "", ErrEmptyResponse
	}
	d.log.WithField("url", url).Debug("Description generated")
	return finish(msg.Content)
}
