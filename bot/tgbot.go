package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"Kirana/core"
	"Kirana/lib/sl"
)

const errorResponse = "Sorry, I'm not able to answer right now. Please try again later."

const helpText = "You can use the following commands:\n" +
	"/help - show this help\n" +
	"/start - start a new conversation\n" +
	"/reset - clear the conversation and go back to the main menu\n" +
	"Or just ask about prices, stock, or your orders."

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TgBot struct {
	api         *tgbotapi.BotAPI
	sender      messageSender
	chat        core.ChatService
	botUsername string
	log         *slog.Logger
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		botUsername: conf.Telegram.Username,
		log:         log.With(sl.Module("telegram")),
	}

	api, err := tgbotapi.NewBotAPI(conf.Telegram.ApiKey)
	if err != nil {
		return nil, fmt.Errorf("creating bot api: %w", err)
	}
	tgBot.api = api
	tgBot.sender = api
	if tgBot.botUsername == "" {
		tgBot.botUsername = api.Self.UserName
	}

	return tgBot, nil
}

// SetChat set chat service
func (t *TgBot) SetChat(chat core.ChatService) {
	t.chat = chat
}

// Start polls Telegram for updates until ctx is done and returns once
// in-flight messages are answered.
func (t *TgBot) Start(ctx context.Context) error {
	if t.chat == nil {
		return errors.New("chat service is not set")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("getting updates: %w", err)
	}

	go func() {
		<-ctx.Done()
		t.api.StopReceivingUpdates()
	}()

	t.dispatch(ctx, updates)
	return nil
}

// dispatch handles each incoming message in its own goroutine and returns
// once updates stop and every started handler has finished.
func (t *TgBot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				t.handle(ctx, message)
			}(update.Message)
		}
	}
}

func (t *TgBot) handle(ctx context.Context, incoming *tgbotapi.Message) {
	chat := incoming.Chat
	if !incoming.IsCommand() && !chat.IsPrivate() && !t.isMentioned(incoming.Text) && !t.isReplyToBot(incoming) {
		return
	}

	userId := UserID(chat.ID)
	log := t.log.With(sl.User(userId))

	if incoming.IsCommand() {
		switch incoming.Command() {
		case "help":
			t.send(chat.ID, helpText, nil)
			return
		case "start", "reset":
			history, err := t.chat.ResetSession(ctx, userId)
			if err != nil || len(history) == 0 {
				log.Error("resetting session", sl.Err(err))
				t.send(chat.ID, errorResponse, nil)
				return
			}
			welcome := history[len(history)-1]
			t.send(chat.ID, welcome.Text, welcome.Options)
			return
		}
	}

	text := t.stripMention(incoming.Text)
	if strings.TrimSpace(text) == "" {
		return
	}

	reply, _, err := t.chat.HandleMessage(ctx, userId, text)
	if err != nil {
		log.Error("handling message", sl.Err(err))
		t.send(chat.ID, errorResponse, nil)
		return
	}
	t.send(chat.ID, reply.Text, reply.Options)
}

func (t *TgBot) send(chatId int64, text string, options []string) {
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ReplyMarkup = Keyboard(options)
	if _, err := t.sender.Send(msg); err != nil {
		t.log.Error("sending message", sl.Err(err))
	}
}

// UserID maps a Telegram chat to the chat service user id.
func UserID(chatId int64) string {
	return fmt.Sprintf("tg:%d", chatId)
}

// Keyboard renders quick-reply options one per row; no options removes any
// keyboard left from a previous reply.
func Keyboard(options []string) any {
	if len(options) == 0 {
		return tgbotapi.NewRemoveKeyboard(false)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, o := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(o)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// detect if we are mentioned in the message
func (t *TgBot) isMentioned(text string) bool {
	if t.botUsername != "" {
		return strings.Contains(text, "@"+t.botUsername)
	}
	return false
}

func (t *TgBot) stripMention(text string) string {
	if t.botUsername == "" {
		return text
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "@"+t.botUsername, ""))
}

// detect if message is a reply to a message from the bot
func (t *TgBot) isReplyToBot(message *tgbotapi.Message) bool {
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		return message.ReplyToMessage.From.UserName == t.botUsername
	}
	return false
}
