// Package notify posts workflow run outcomes to chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/models"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// Colors used for message attachments and embeds.
const (
	colorSuccess = "#36a64f"
	colorFailure = "#e01e5a"
)

// Event describes a finished workflow run.
type Event struct {
	Workflow  string
	RunID     string
	CommitSHA string
	PRNumber  int
	HeadRef   string
	Status    string
	Failed    []string
	ReportURL string
}

// Title is a one-line summary used as message headline.
func (e Event) Title() string {
	verb := "passed"
	if e.Status != models.StatusSuccess {
		verb = e.Status
	}
	if e.PRNumber > 0 {
		return fmt.Sprintf("%s %s on PR #%d", e.Workflow, verb, e.PRNumber)
	}
	return fmt.Sprintf("%s %s on %s", e.Workflow, verb, shortSHA(e.CommitSHA))
}

// Color returns the hex color matching the event status.
func (e Event) Color() string {
	if e.Status == models.StatusSuccess {
		return colorSuccess
	}
	return colorFailure
}

// Field is a labelled value shown with a message.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Fields returns the details shown below the title.
func (e Event) Fields() []Field {
	fields := []Field{
		{Name: "Commit", Value: shortSHA(e.CommitSHA), Short: true},
		{Name: "Run", Value: e.RunID, Short: true},
	}
	if e.HeadRef != "" {
		fields = append(fields, Field{Name: "Branch", Value: e.HeadRef, Short: true})
	}
	if len(e.Failed) > 0 {
		fields = append(fields, Field{Name: "Failed jobs", Value: strings.Join(e.Failed, "\n")})
	}
	if e.ReportURL != "" {
		fields = append(fields, Field{Name: "Report", Value: e.ReportURL})
	}
	return fields
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// Notifier delivers run events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi sends an event to every notifier. All notifiers are tried; errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds notifiers for every enabled chat. Chats whose token
// variable is empty are skipped with a warning. The result is nil when none
// is usable.
func FromConfig(cfg config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var m Multi
	if cfg.Slack.Enabled() {
		if token := os.Getenv(cfg.Slack.TokenEnv); token != "" {
			s, err := NewSlack(SlackOpts{BotToken: token, ChannelID: cfg.Slack.Channel})
			if err != nil {
				return nil, err
			}
			m = append(m, s)
		} else {
			logger.Warn("slack notifications disabled: token not set", zap.String("env", cfg.Slack.TokenEnv))
		}
	}
	if cfg.Discord.Enabled() {
		if token := os.Getenv(cfg.Discord.TokenEnv); token != "" {
			d, err := NewDiscord(DiscordOpts{BotToken: token, ChannelID: cfg.Discord.Channel})
			if err != nil {
				return nil, err
			}
			m = append(m, d)
		} else {
			logger.Warn("discord notifications disabled: token not set", zap.String("env", cfg.Discord.TokenEnv))
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// retry calls fn until it succeeds, fails with an error retryAfter does not
// recognise, or maxRetries is reached. retryAfter returns the wait before the
// next attempt and whether err is a rate limit.
func retry(ctx context.Context, base time.Duration, fn func() error, retryAfter func(error) (time.Duration, bool)) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		wait, limited := retryAfter(err)
		if !limited || attempt == maxRetries {
			return err
		}
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * base
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
