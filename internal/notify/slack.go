package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts events as message attachments to one channel.
type Slack struct {
	client      slackClient
	channelID   string
	baseBackoff time.Duration
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	APIURL    string // optional, for tests and proxies
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack notifier.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("notify: slack bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	client := opts.Client
	if client == nil {
		var options []slackapi.Option
		if opts.APIURL != "" {
			options = append(options, slackapi.OptionAPIURL(opts.APIURL))
		}
		client = slackapi.New(opts.BotToken, options...)
	}
	return &Slack{client: client, channelID: opts.ChannelID, baseBackoff: time.Second}, nil
}

// Notify posts e, retrying when Slack rate limits the call.
func (s *Slack) Notify(ctx context.Context, e Event) error {
	options := slackMessageOptions(e)
	err := retry(ctx, s.baseBackoff, func() error {
		_, _, err := s.client.PostMessageContext(ctx, s.channelID, options...)
		return err
	}, func(err error) (time.Duration, bool) {
		var rle *slackapi.RateLimitedError
		if errors.As(err, &rle) {
			return rle.RetryAfter, true
		}
		return 0, false
	})
	if err != nil {
		return fmt.Errorf("notify: slack: %w", err)
	}
	return nil
}

// slackMessageOptions renders e as fallback text plus one attachment.
func slackMessageOptions(e Event) []slackapi.MsgOption {
	att := slackapi.Attachment{
		Title:    e.Title(),
		Color:    e.Color(),
		Fallback: e.Title(),
	}
	if e.ReportURL != "" {
		att.TitleLink = e.ReportURL
	}
	for _, f := range e.Fields() {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(e.Title(), false),
		slackapi.MsgOptionAttachments(att),
	}
}
