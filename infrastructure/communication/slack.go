package communication

import (
	"context"
	"fmt"
	"os"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/model"
	"github.com/slack-go/slack"
)

type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts accepted clock-ins to the info channel and failures to the
// error channel. It serves as both a clockin.Notifier and a clockin.Alerter.
type Slack struct {
	client  poster
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
}

func ConnectSlack() *Slack {
	token := os.Getenv("SLACK_BOT_TOKEN")
	infoCh := os.Getenv("SLACK_INFO_CHANNEL")
	errorCh := os.Getenv("SLACK_ERROR_CHANNEL")

	return NewSlack(token, SlackOption{InfoChannelID: infoCh, ErrorChannelID: errorCh})
}

func NewSlack(token string, options SlackOption, opts ...slack.Option) *Slack {
	client := slack.New(token, opts...)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessageContext(ctx,
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.InfoChannelID, message)
}

func (s *Slack) Error(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.ErrorChannelID, message)
}

func (s *Slack) Notify(ctx context.Context, event clockin.Event) error {
	msg := fmt.Sprintf(":white_check_mark: %s (%s) clocked in %s %s", event.Worker, event.WorkerID, event.Date, event.Time)
	if event.Source != "" && event.Source != model.SourceLive {
		msg += fmt.Sprintf(" [%s %s]", event.Source, event.DeviceID)
	}
	return s.Info(ctx, msg)
}

func (s *Slack) Alert(ctx context.Context, message string) error {
	return s.Error(ctx, ":rotating_light: "+message)
}
