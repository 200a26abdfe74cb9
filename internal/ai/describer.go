// Package ai produces short link descriptions with a hosted language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"cloudnav/internal/domain"
)

var (
	ErrNoAPIKey        = errors.New("ai api key is empty")
	ErrUnknownProvider = errors.New("unknown ai provider")
	ErrEmptyResponse   = errors.New("model returned no text")
)

// maxDescriptionRunes bounds what is stored on a link.
const maxDescriptionRunes = 80

// Describer generates a one-line description of a web page.
type Describer interface {
	Describe(ctx context.Context, title, url string) (string, error)
}

// NewDescriber builds the describer for cfg.Provider.
func NewDescriber(ctx context.Context, cfg domain.AIConfig, logger logrus.FieldLogger) (Describer, error) {
	if !cfg.Configured() {
		return nil, ErrNoAPIKey
	}
	log := logger.WithFields(logrus.Fields{
		"component": "ai",
		"provider":  cfg.Provider,
		"model":     cfg.Model,
	})

	switch cfg.Provider {
	case domain.ProviderGemini, "":
		return newGeminiDescriber(ctx, cfg, log)
	case domain.ProviderOpenAI:
		return newOpenAIDescriber(ctx, cfg, log)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func buildPrompt(title, url string) string {
	return fmt.Sprintf("请为以下网站生成一句简短的中文描述（不超过30个字），只输出描述本身，不要加引号或前缀。\n网站标题：%s\n网址：%s", title, url)
}

// cleanDescription strips the decorations models like to add.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, "描述：")
	s = strings.Trim(s, "\"'“”「」 ")
	if utf8.RuneCountInString(s) > maxDescriptionRunes {
		s = string([]rune(s)[:maxDescriptionRunes])
	}
	return s
}

func finish(raw string) (string, error) {
	desc := cleanDescription(raw)
	if desc == "" {
		return "", ErrEmptyResponse
	}
	return desc, nil
}
