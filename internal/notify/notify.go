// Package notify sends market announcements via Telegram Bot API.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// Client announces market events to a Telegram chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a Telegram announcer.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendCrash announces a forced market crash.
func (c *Client) SendCrash(level string, moved int) error {
	text := fmt.Sprintf("📉 *Market crash* \\(%s\\)\n%d drinks dropped\\. Buy now\\!",
		escapeMarkdownV2(level), moved)
	return c.sendMarkdownV2(text)
}

// SendBoom announces a forced market boom.
func (c *Client) SendBoom(level string, moved int) error {
	text := fmt.Sprintf("📈 *Market boom* \\(%s\\)\n%d drinks surged\\.",
		escapeMarkdownV2(level), moved)
	return c.sendMarkdownV2(text)
}

// SendReset announces a market reset.
func (c *Client) SendReset() error {
	return c.sendMarkdownV2("🔄 *Market reset*\nAll prices back to base\\.")
}

// SendHappyHour announces a happy hour start.
func (c *Client) SendHappyHour(name string, duration time.Duration) error {
	text := fmt.Sprintf("🍻 *Happy hour* on %s for %s\\!",
		escapeMarkdownV2(name), escapeMarkdownV2(duration.String()))
	return c.sendMarkdownV2(text)
}

// SendSessionClosed announces the totals of a closed session.
func (c *Client) SendSessionClosed(s *models.SessionSummary) error {
	text := fmt.Sprintf("🧾 *Session closed*: %s\n%d sales, %d units\nRevenue: %s €\nProfit: %s €",
		escapeMarkdownV2(s.Name),
		s.SaleCount,
		s.TotalQuantity,
		escapeMarkdownV2(fmt.Sprintf("%.2f", s.TotalRevenue)),
		escapeMarkdownV2(fmt.Sprintf("%.2f", s.TotalProfit)))
	return c.sendMarkdownV2(text)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
