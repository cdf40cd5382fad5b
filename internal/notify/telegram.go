package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/gg/gconv"
	"github.com/go-telegram/bot"
)

type TelegramConfig struct {
	Token     string
	ChatID    int64
	ServerURL string
}

func ParseTelegramConfig(configMap map[string]interface{}) (*TelegramConfig, error) {
	cfg := &TelegramConfig{
		Token:     gconv.To[string](configMap["token"]),
		ChatID:    gconv.To[int64](configMap["chat_id"]),
		ServerURL: gconv.To[string](configMap["server_url"]),
	}
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("invalid chat_id: %v", configMap["chat_id"])
	}
	return cfg, nil
}

// TelegramNotifier sends run outcomes to one chat. Phase events are skipped.
type TelegramNotifier struct {
	id     string
	chatID int64
	bot    *bot.Bot
}

var _ Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(id string, configMap map[string]interface{}) (*TelegramNotifier, error) {
	cfg, err := ParseTelegramConfig(configMap)
	if err != nil {
		return nil, fmt.Errorf("parse telegram config: %w", err)
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}
	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{id: id, chatID: cfg.ChatID, bot: b}, nil
}

func (n *TelegramNotifier) ID() string { return n.id }
func (n *TelegramNotifier) Type() Type { return Telegram }

func (n *TelegramNotifier) Notify(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case KindJobRemoved, KindRunFinished, KindRunFailed:
	default:
		return nil
	}
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   Format(ev),
	})
	if err != nil {
		return fmt.Errorf("send to chat %s: %w", strconv.FormatInt(n.chatID, 10), err)
	}
	return nil
}
