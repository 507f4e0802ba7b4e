package notifier

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/afero"
)

var (
	// ErrRecipientUnreachable means the recipient blocked the bot or the chat is gone.
	ErrRecipientUnreachable = errors.New("recipient unreachable")
	ErrDelivery             = errors.New("delivery failed")
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Config struct {
	BotToken string
	Debug    bool
}

type TelegramNotifier struct {
	bot Sender
	fs  afero.Fs
}

func New(config Config, fs afero.Fs) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug

	return NewWithSender(bot, fs), nil
}

func NewWithSender(bot Sender, fs afero.Fs) *TelegramNotifier {
	return &TelegramNotifier{
		bot: bot,
		fs:  fs,
	}
}

func (n *TelegramNotifier) SendText(ctx context.Context, recipientID, text string) error {
	chatID, err := n.chatID(ctx, recipientID)
	if err != nil {
		return err
	}

	return n.send(tgbotapi.NewMessage(chatID, text))
}

func (n *TelegramNotifier) SendPhoto(ctx context.Context, recipientID, path, caption string) error {
	return n.sendFile(ctx, recipientID, path, func(chatID int64, file tgbotapi.RequestFileData) tgbotapi.Chattable {
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = caption
		return photo
	})
}

func (n *TelegramNotifier) SendVideo(ctx context.Context, recipientID, path, caption string) error {
	return n.sendFile(ctx, recipientID, path, func(chatID int64, file tgbotapi.RequestFileData) tgbotapi.Chattable {
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = caption
		return video
	})
}

func (n *TelegramNotifier) SendDocument(ctx context.Context, recipientID, path, caption string) error {
	return n.sendFile(ctx, recipientID, path, func(chatID int64, file tgbotapi.RequestFileData) tgbotapi.Chattable {
		document := tgbotapi.NewDocument(chatID, file)
		document.Caption = caption
		return document
	})
}

func (n *TelegramNotifier) sendFile(
	ctx context.Context,
	recipientID, path string,
	build func(chatID int64, file tgbotapi.RequestFileData) tgbotapi.Chattable,
) error {
	chatID, err := n.chatID(ctx, recipientID)
	if err != nil {
		return err
	}

	f, err := n.fs.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrDelivery, path, err)
	}
	defer f.Close()

	return n.send(build(chatID, tgbotapi.FileReader{
		Name:   filepath.Base(path),
		Reader: f,
	}))
}

func (n *TelegramNotifier) chatID(ctx context.Context, recipientID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid chat id %q", ErrDelivery, recipientID)
	}

	return chatID, nil
}

func (n *TelegramNotifier) send(c tgbotapi.Chattable) error {
	if _, err := n.bot.Send(c); err != nil {
		return Classify(err)
	}
	return nil
}

// Classify maps a Bot API error onto ErrRecipientUnreachable or ErrDelivery.
func Classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if isUnreachable(apiErr.Code, apiErr.Message) {
			return fmt.Errorf("%w: %s", ErrRecipientUnreachable, apiErr.Message)
		}
		return fmt.Errorf("%w: %d %s", ErrDelivery, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrDelivery, err)
}

// 403 covers "bot was blocked by the user", deactivated users and kicked bots.
func isUnreachable(code int, message string) bool {
	if code == 403 {
		return true
	}
	msg := strings.ToLower(message)
	return code == 400 && (strings.Contains(msg, "chat not found") || strings.Contains(msg, "user not found"))
}
