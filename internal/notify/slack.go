// Package notify posts operational messages to Slack. The notifier is
// optional; without a token/channel pair every method is a logged no-op so
// callers never branch on configuration.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"complaintbot/internal/domain"
)

type Notifier struct {
	api     *slack.Client
	channel string
}

// New returns nil when Slack is not configured; all methods tolerate a nil
// receiver.
func New(token, channel string) *Notifier {
	if token == "" || channel == "" {
		log.Println("Slack notifications disabled (slack_bot_token/slack_alert_channel not set)")
		return nil
	}
	return &Notifier{api: slack.New(token), channel: channel}
}

// CriticalComplaint alerts the ops channel about a freshly submitted
// critical complaint. Failures are logged, never propagated: a Slack outage
// must not fail the submit.
func (n *Notifier) CriticalComplaint(c domain.Complaint) {
	if n == nil {
		return
	}
	text := fmt.Sprintf(":rotating_light: Critical complaint %s (%s)\n> %s",
		c.Reference, c.Source, truncate(c.Description, 300))
	if _, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("slack critical alert error: %v", err)
	}
}

// DigestWritten announces a generated digest file with its headline numbers.
func (n *Notifier) DigestWritten(path string, total int, dist domain.PriorityDistribution) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Daily complaint digest written to `%s`: %d complaints (low %d / medium %d / high %d / critical %d)",
		path, total, dist.Low, dist.Medium, dist.High, dist.Critical)
	if _, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("slack digest post error: %v", err)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
