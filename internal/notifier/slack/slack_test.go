package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/phasekeeper/internal/metrics"
	"github.com/mauv0809/phasekeeper/internal/notifier"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestSendMessage_NotConfigured(t *testing.T) {
	metrics := metrics.NewMock()
	notifier := NewNotifier("", "", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := notifier.sendMessage(message)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	_, _, err := notifier.sendMessage(slackapi.NewBlockMessage())

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

func TestSendRunCommitted_ReturnsTimestamp(t *testing.T) {
	api := &mockSlackAPI{}
	n := NewNotifierWithAPI(api, "C123", metrics.NewMock())

	ts, err := n.SendRunCommitted(notifier.RunSummary{RunID: "phase-1-1", PhaseID: 1})
	require.NoError(t, err)
	assert.Equal(t, "123456789.12345", ts)
}

func TestFormatRunCommitted(t *testing.T) {
	t.Run("lists every decision and warns about ties", func(t *testing.T) {
		step := "Winners R1"
		summary := notifier.RunSummary{
			RunID:               "match-4-1700000000000",
			PhaseID:             1,
			MatchID:             int64Ptr(4),
			StepName:            &step,
			Saved:               3,
			AutoAssignedPlayers: 1,
			UnresolvedTies:      1,
			Decisions: []notifier.Decision{
				{PlayerName: "Xeno", Action: "ADVANCE", Rank: 1, TargetPhaseID: int64Ptr(2), TargetMatchID: int64Ptr(9)},
				{PlayerName: "Yuki", Action: "HOLD_FOR_TIEBREAKER", Rank: 2, TiedAtBoundary: true},
				{PlayerName: "Zane", Action: "SEND_TO_LOSERS", Rank: 3, TargetPhaseID: int64Ptr(3)},
			},
		}

		msg := formatRunCommitted(summary)
		require.Len(t, msg.Blocks.BlockSet, 5, "header, details, divider, decisions, ties")

		header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
		require.True(t, ok)
		assert.Contains(t, header.Text.Text, "Progression committed")

		details, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, details.Text.Text, "Phase 1 · Match 4 · Winners R1")
		assert.Contains(t, details.Text.Text, "Saved: 3 | Auto-assigned: 1")

		decisions, ok := msg.Blocks.BlockSet[3].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, decisions.Text.Text, "1. ⬆️ Xeno advance → match 9")
		assert.Contains(t, decisions.Text.Text, "2. ⏸️ Yuki hold for tiebreaker\n")
		assert.Contains(t, decisions.Text.Text, "3. ↘️ Zane send to losers → phase 3")

		ties, ok := msg.Blocks.BlockSet[4].(*slackapi.ContextBlock)
		require.True(t, ok)
		require.Len(t, ties.ContextElements.Elements, 1)
	})

	t.Run("says so when nobody was decided", func(t *testing.T) {
		msg := formatRunCommitted(notifier.RunSummary{RunID: "phase-1-1", PhaseID: 1})
		require.Len(t, msg.Blocks.BlockSet, 3)

		section, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "No player was decided by this run.", section.Text.Text)
	})
}
