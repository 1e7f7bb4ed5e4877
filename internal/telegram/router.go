package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Router handles message routing and command parsing
type Router struct {
	logger      *logrus.Logger
	handlers    map[string]CommandHandler
	allowedChat int64
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// NewRouter creates a new message router. With a non-zero allowedChat,
// messages from any other chat are ignored.
func NewRouter(allowedChat int64, logger *logrus.Logger) *Router {
	return &Router{
		logger:      logger,
		handlers:    make(map[string]CommandHandler),
		allowedChat: allowedChat,
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// Allowed reports whether messages from chatID are processed
func (r *Router) Allowed(chatID int64) bool {
	return r.allowedChat == 0 || r.allowedChat == chatID
}

// Lookup returns the handler registered for a command
func (r *Router) Lookup(command string) (CommandHandler, bool) {
	h, ok := r.handlers[command]
	return h, ok
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	fields := logrus.Fields{
		"chat_id":    message.Chat.ID,
		"message_id": message.MessageID,
		"text":       message.Text,
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}
	log := r.logger.WithFields(fields)
	log.Debug("Received message")

	if !r.Allowed(message.Chat.ID) {
		log.Warn("Ignoring message from unknown chat")
		return
	}

	// Only process text commands
	if message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	handler, exists := r.Lookup(command)
	if !exists {
		log.WithField("command", command).Warn("Unknown command")

		unknownMsg := tgbotapi.NewMessage(message.Chat.ID, "❓ Unknown command. Use /help to see available commands.")
		if _, err := bot.Send(unknownMsg); err != nil {
			log.WithError(err).Error("Failed to send reply")
		}
		return
	}

	if err := handler.Handle(bot, message, args); err != nil {
		log.WithFields(logrus.Fields{
			"command": command,
			"error":   err,
		}).Error("Command handler failed")

		errorMsg := tgbotapi.NewMessage(message.Chat.ID, "❌ An error occurred while processing your command. Please try again.")
		if _, err := bot.Send(errorMsg); err != nil {
			log.WithError(err).Error("Failed to send reply")
		}
	}
}
