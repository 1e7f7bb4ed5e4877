package telegram

import (
	"io"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type recordingHandler struct {
	calls int
	args  []string
}

func (h *recordingHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	h.calls++
	h.args = args
	return nil
}

func newTestRouter(chat int64) *Router {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRouter(chat, logger)
}

func commandMessage(chatID int64, text, command string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: 7, UserName: "parent"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command) + 1}},
	}
}

func TestAllowed(t *testing.T) {
	if !newTestRouter(0).Allowed(42) {
		t.Fatalf("a router without a chat must accept every chat")
	}
	r := newTestRouter(42)
	if !r.Allowed(42) || r.Allowed(43) {
		t.Fatalf("a router with a chat must accept only that chat")
	}
}

func TestHandleMessageDispatchesCommand(t *testing.T) {
	r := newTestRouter(42)
	h := &recordingHandler{}
	r.RegisterCommand("today", h)

	r.HandleMessage(nil, commandMessage(42, "/today now please", "today"))
	if h.calls != 1 {
		t.Fatalf("expected one call, got %d", h.calls)
	}
	if len(h.args) != 2 || h.args[0] != "now" {
		t.Fatalf("unexpected args %v", h.args)
	}
}

func TestHandleMessageIgnoresOtherChatsAndPlainText(t *testing.T) {
	r := newTestRouter(42)
	h := &recordingHandler{}
	r.RegisterCommand("today", h)

	r.HandleMessage(nil, commandMessage(99, "/today", "today"))
	r.HandleMessage(nil, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Text: "hello"})
	if h.calls != 0 {
		t.Fatalf("handler should not run, got %d calls", h.calls)
	}
}

func TestLookup(t *testing.T) {
	r := newTestRouter(0)
	r.RegisterCommand("news", &recordingHandler{})

	if _, ok := r.Lookup("news"); !ok {
		t.Fatalf("registered command not found")
	}
	if _, ok := r.Lookup("todo"); ok {
		t.Fatalf("unexpected command found")
	}
}
