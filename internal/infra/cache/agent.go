package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"uniportal_bot/internal/domain/notification"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// AgentPublisher hands notifications to a background agent subscribed on a Redis
// channel. The agent counts as active while at least one subscriber is attached.
type AgentPublisher struct {
	client  *redis.Client
	channel string
	logger  *logrus.Entry
}

func NewAgentPublisher(client *redis.Client, channel string, logger *logrus.Entry) *AgentPublisher {
	return &AgentPublisher{client: client, channel: channel, logger: logger}
}

func (p *AgentPublisher) Active(ctx context.Context) bool {
	counts, err := p.client.PubSubNumSub(ctx, p.channel).Result()
	if err != nil {
		p.logger.WithError(err).Debug("Failed to count agent subscribers")
		return false
	}
	return counts[p.channel] > 0
}

func (p *AgentPublisher) Handoff(ctx context.Context, msg notification.AgentMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode agent message: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrAgentUnreachable, err)
	}
	if receivers == 0 {
		return notification.ErrAgentUnreachable
	}
	return nil
}

// AgentSubscriber is the background side: it shows every notify message it receives.
type AgentSubscriber struct {
	client   *redis.Client
	channel  string
	notifier notification.Notifier
	logger   *logrus.Entry
}

func NewAgentSubscriber(client *redis.Client, channel string, notifier notification.Notifier, logger *logrus.Entry) *AgentSubscriber {
	return &AgentSubscriber{client: client, channel: channel, notifier: notifier, logger: logger}
}

// Run blocks until ctx is cancelled. Messages with an unknown action are ignored.
func (s *AgentSubscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.WithField("channel", s.channel).Info("Agent subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(ctx, m.Payload)
		}
	}
}

func (s *AgentSubscriber) handle(ctx context.Context, payload string) {
	var msg notification.AgentMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed agent message")
		return
	}
	if msg.Action != notification.ActionNotify {
		s.logger.WithField("action", msg.Action).Debug("Ignoring agent message")
		return
	}
	if err := s.notifier.Notify(ctx, msg.Title, msg.Body); err != nil {
		s.logger.WithError(err).WithField("title", msg.Title).Error("Agent failed to show notification")
	}
}
