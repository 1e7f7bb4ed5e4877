package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/calendar"
	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/service"
)

const noDataText = "⏳ No data loaded yet. Please try again in a minute."

func reply(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// renderChildren joins one section per child, or returns the no-data text
func renderChildren(children []*service.ChildData, section func(*service.ChildData) string) string {
	if len(children) == 0 {
		return noDataText
	}
	parts := make([]string, 0, len(children))
	for _, c := range children {
		parts = append(parts, section(c))
	}
	return strings.Join(parts, "\n")
}

// ---------------------------------------------------------------------------
// TodayHandler – /today
// ---------------------------------------------------------------------------

// TodayHandler shows the most recent day with data, never a future one.
type TodayHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewTodayHandler(svc *service.Service, logger *logrus.Logger) *TodayHandler {
	return &TodayHandler{svc: svc, logger: logger}
}

func (h *TodayHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	today := h.svc.Now().Format(models.DateLayout)
	text := renderChildren(h.svc.Children(), func(c *service.ChildData) string {
		return FormatDay(c.Child, calendar.LatestDay(c.History, today))
	})
	return reply(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// WeekHandler – /week
// ---------------------------------------------------------------------------

type WeekHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewWeekHandler(svc *service.Service, logger *logrus.Logger) *WeekHandler {
	return &WeekHandler{svc: svc, logger: logger}
}

func (h *WeekHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	text := renderChildren(h.svc.Children(), func(c *service.ChildData) string {
		return FormatWeek(c.Child, c.Days)
	})
	return reply(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// NewsHandler – /news
// ---------------------------------------------------------------------------

type NewsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewNewsHandler(svc *service.Service, logger *logrus.Logger) *NewsHandler {
	return &NewsHandler{svc: svc, logger: logger}
}

func (h *NewsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	text := renderChildren(h.svc.Children(), func(c *service.ChildData) string {
		return FormatNews(c.Child, c.Newsfeed)
	})
	return reply(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// ResyncHandler – /resync
// ---------------------------------------------------------------------------

// ResyncHandler starts a history backfill in the background and reports the
// result to the chat when it finishes.
type ResyncHandler struct {
	ctx    context.Context
	svc    *service.Service
	logger *logrus.Logger
}

// NewResyncHandler creates a ResyncHandler. ctx bounds the background run.
func NewResyncHandler(ctx context.Context, svc *service.Service, logger *logrus.Logger) *ResyncHandler {
	return &ResyncHandler{ctx: ctx, svc: svc, logger: logger}
}

func (h *ResyncHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	chatID := message.Chat.ID
	if err := reply(bot, chatID, "🔄 Resync started, this can take a while."); err != nil {
		return err
	}

	go func() {
		n, err := h.svc.Resync(h.ctx)
		if err != nil {
			h.logger.WithField("chat_id", chatID).Errorf("Resync failed: %v", err)
			if err := reply(bot, chatID, "❌ Resync failed. Check the logs for details."); err != nil {
				h.logger.Errorf("Failed to report resync failure: %v", err)
			}
			return
		}
		if err := reply(bot, chatID, fmt.Sprintf("✅ Resync finished, %d new weeks stored.", n)); err != nil {
			h.logger.Errorf("Failed to report resync result: %v", err)
		}
	}()
	return nil
}
