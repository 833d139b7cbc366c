package publisher

import (
	"context"

	"github.com/doesntneedname/activity-bot/apperrors"
	"github.com/doesntneedname/activity-bot/telemetry"
	"go.uber.org/zap"
)

// ChatAPI is what the publisher needs from the chat service.
type ChatAPI interface {
	PostMessage(ctx context.Context, entityType string, entityID int64, content string) (int64, error)
	CreateThread(ctx context.Context, messageID int64) (int64, error)
}

// Step names one call of the publish sequence.
type Step string

const (
	StepPostPrimary   Step = "post_primary"
	StepCreateThread  Step = "create_thread"
	StepPostSecondary Step = "post_secondary"
)

// Result reports how far a publish got. FailedStep is empty on success.
type Result struct {
	MessageID  int64
	ThreadID   int64
	ReplyID    int64
	FailedStep Step
	Err        error
}

// Delivered reports whether both messages reached the chat.
func (r Result) Delivered() bool {
	return r.Err == nil && r.ReplyID != 0
}

// Publisher posts the summary into a channel and the details into a thread
// under it.
type Publisher struct {
	Chat      ChatAPI
	ChannelID int64
	Log       *zap.Logger
	Metrics   *telemetry.Metrics
}

func New(chat ChatAPI, channelID int64, log *zap.Logger, m *telemetry.Metrics) *Publisher {
	return &Publisher{Chat: chat, ChannelID: channelID, Log: log, Metrics: m}
}

// PublishReport runs post → thread → reply. Each call needs the id returned
// by the previous one, so the first failure ends the sequence. Nothing is
// retried.
func (p *Publisher) PublishReport(ctx context.Context, primary, secondary string) Result {
	var res Result

	id, err := p.Chat.PostMessage(ctx, EntityDiscussion, p.ChannelID, primary)
	if !p.step(StepPostPrimary, err, &res) {
		return res
	}
	res.MessageID = id
	p.Log.Info("primary message posted", zap.Int64("message_id", id))

	id, err = p.Chat.CreateThread(ctx, res.MessageID)
	if !p.step(StepCreateThread, err, &res) {
		return res
	}
	res.ThreadID = id
	p.Log.Info("thread created", zap.Int64("thread_id", id))

	id, err = p.Chat.PostMessage(ctx, EntityThread, res.ThreadID, secondary)
	if !p.step(StepPostSecondary, err, &res) {
		return res
	}
	res.ReplyID = id
	p.Log.Info("secondary message posted", zap.Int64("reply_id", id))
	return res
}

// step records the outcome of one call and reports whether to continue.
func (p *Publisher) step(s Step, err error, res *Result) bool {
	if err == nil {
		p.Metrics.ObservePublishStep(string(s), "ok")
		return true
	}
	p.Metrics.ObservePublishStep(string(s), "failed")
	res.FailedStep = s
	res.Err = apperrors.New(apperrors.ErrorTypePublishStep, string(s), err)
	p.Log.Error("publish aborted", zap.String("step", string(s)), zap.Error(err))
	return false
}
