// Package notify sends operator notifications about finished runs to a
// Telegram chat.
package notify

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Summary describes one finished run.
type Summary struct {
	Reapproved int
	Verified   int
	Rejected   int
	Duration   time.Duration
}

// MessageSender is the part of the Telegram client the notifier uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends run summaries to one operator chat.
type Notifier struct {
	sender MessageSender
	chatID int64
}

// NewNotifier creates a notifier for the given chat.
func NewNotifier(sender MessageSender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

// NotifyRun sends the run summary as a single HTML message.
func (n *Notifier) NotifyRun(s Summary) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(s))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send run summary: %w", err)
	}
	return nil
}

// FormatSummary formats a run summary for display in Telegram.
func FormatSummary(s Summary) string {
	return fmt.Sprintf(
		"🎬 <b>Partner check complete</b>\n\n"+
			"♻️ %d reapproved | ✅ %d verified | 🚫 %d rejected\n"+
			"⏱ %s",
		s.Reapproved, s.Verified, s.Rejected, s.Duration.Round(time.Second),
	)
}
