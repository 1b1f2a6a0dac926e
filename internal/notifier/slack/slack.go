package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/metrics"
	"github.com/mauv0809/phasekeeper/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier. Without a token or channel every
// message is only logged.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	if token == "" || channelID == "" {
		log.Info("Slack not configured, commit summaries will only be logged")
		return &Notifier{channelID: channelID, metrics: metrics}
	}
	return &Notifier{
		api:       slack.New(token),
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message) (string, string, error) {
	if s.api == nil {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// SendRunCommitted posts the summary of a committed run and returns the message timestamp.
func (s *Notifier) SendRunCommitted(summary notifier.RunSummary) (string, error) {
	msg := formatRunCommitted(summary)
	_, ts, err := s.sendMessage(msg)
	return ts, err
}

// formatRunCommitted creates the Slack message for a committed run using Block Kit.
func formatRunCommitted(summary notifier.RunSummary) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏁 Progression committed", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	scope := fmt.Sprintf("Phase %d", summary.PhaseID)
	if summary.MatchID != nil {
		scope += fmt.Sprintf(" · Match %d", *summary.MatchID)
	}
	if summary.StepName != nil && *summary.StepName != "" {
		scope += fmt.Sprintf(" · %s", *summary.StepName)
	}
	details := fmt.Sprintf("*%s*\nRun `%s`\nSaved: %d | Auto-assigned: %d", scope, summary.RunID, summary.Saved, summary.AutoAssignedPlayers)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", details, false, false), nil, nil))

	if len(summary.Decisions) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No player was decided by this run.", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	blocks = append(blocks, slack.NewDividerBlock())

	var lines strings.Builder
	for _, d := range summary.Decisions {
		fmt.Fprintf(&lines, "%d. %s %s %s", d.Rank, actionEmoji(d.Action), d.PlayerName, strings.ReplaceAll(strings.ToLower(d.Action), "_", " "))
		switch {
		case d.TargetMatchID != nil:
			fmt.Fprintf(&lines, " → match %d", *d.TargetMatchID)
		case d.TargetPhaseID != nil:
			fmt.Fprintf(&lines, " → phase %d", *d.TargetPhaseID)
		}
		lines.WriteString("\n")
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", lines.String(), false, false), nil, nil))

	if summary.UnresolvedTies > 0 {
		warning := fmt.Sprintf("⚠️ %d boundary tie(s) need a tiebreaker before the held players can move on.", summary.UnresolvedTies)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", warning, false, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

func actionEmoji(action string) string {
	switch action {
	case "ADVANCE":
		return "⬆️"
	case "SEND_TO_LOSERS":
		return "↘️"
	case "ELIMINATE":
		return "❌"
	case "HOLD_FOR_TIEBREAKER":
		return "⏸️"
	}
	return ""
}
