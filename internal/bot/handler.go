// Package bot lets allowed Telegram users save links by sending them to a bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/config"
	"cloudnav/internal/domain"
	"cloudnav/internal/links"
	"cloudnav/internal/storage"
)

const (
	welcomeMessage = "欢迎使用 CloudNav！发送任意网页链接，我会把它保存到你的导航页。\n/categories 查看分类"
	notAllowed     = "你没有权限使用这个机器人。"
	noURLMessage   = "没有找到链接。发送一个 http(s) 链接即可保存。"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// LinkCreator creates a link; links.Service satisfies it.
type LinkCreator interface {
	Create(ctx context.Context, req links.NewLink) (links.Created, error)
}

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot     *tgbot.Bot
	allowed []int64
	repo    storage.Repository
	links   LinkCreator
	log     logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(cfg config.TelegramConfig, repo storage.Repository, creator LinkCreator, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	b, err := tgbot.New(cfg.Token)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := &Handler{
		bot:     b,
		allowed: cfg.AllowedUsers,
		repo:    repo,
		links:   creator,
		log:     log,
	}
	h.registerHandlers()

	log.WithField("allowed_users", len(cfg.AllowedUsers)).Info("Telegram bot handler initialized")
	return h, nil
}

func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/categories", tgbot.MatchTypeExact, h.categoriesHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypeContains, h.linkHandler)
	h.log.Debug("Registered bot handlers")
}

// Start polls for updates until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) reply(ctx context.Context, b *tgbot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to send message")
	}
}

// isAllowed accepts everyone when no allow-list is configured.
func (h *Handler) isAllowed(update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	return len(h.allowed) == 0 || slices.Contains(h.allowed, update.Message.From.ID)
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.log.WithField("chat_id", update.Message.Chat.ID).Info("Received /start command")
	h.reply(ctx, b, update, welcomeMessage)
}

func (h *Handler) categoriesHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if !h.isAllowed(update) {
		h.reply(ctx, b, update, notAllowed)
		return
	}
	_, categories, err := h.repo.GetData(ctx)
	if err != nil {
		h.reply(ctx, b, update, "读取分类失败，请稍后再试。")
		return
	}
	h.reply(ctx, b, update, formatCategories(categories))
}

func (h *Handler) linkHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := update.Message.Text
	if strings.HasPrefix(text, "/") {
		return
	}
	log := h.log.WithField("chat_id", update.Message.Chat.ID)
	if !h.isAllowed(update) {
		log.Warn("Rejected message from user outside the allow-list")
		h.reply(ctx, b, update, notAllowed)
		return
	}

	raw := extractURL(text)
	if raw == "" {
		h.reply(ctx, b, update, noURLMessage)
		return
	}

	created, err := h.links.Create(ctx, links.NewLink{URL: raw})
	if err != nil {
		log.WithError(err).Error("Failed to save link from chat")
		if errors.Is(err, links.ErrInvalidURL) {
			h.reply(ctx, b, update, noURLMessage)
			return
		}
		h.reply(ctx, b, update, "保存失败，请稍后再试。")
		return
	}
	h.reply(ctx, b, update, savedMessage(created))
}

func extractURL(text string) string {
	return strings.TrimRight(urlPattern.FindString(text), ".,;:!?)）。，")
}

func savedMessage(c links.Created) string {
	msg := fmt.Sprintf("已保存：%s\n%s", c.Link.Title, c.Link.URL)
	if c.Duplicate {
		msg = "⚠️ 该链接已存在，仍已保存。\n" + msg
	}
	return msg
}

func formatCategories(categories []domain.Category) string {
	if len(categories) == 0 {
		return "还没有分类。"
	}
	var sb strings.Builder
	sb.WriteString("分类：")
	for i, c := range categories {
		sb.WriteString(fmt.Sprintf("\n%d. %s (%s)", i+1, c.Name, c.ID))
		if c.Locked() {
			sb.WriteString(" 🔒")
		}
	}
	return sb.String()
}
