// Package originsync propagates runtime origin changes between gateway
// instances over Redis pub/sub.
package originsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/corsgate/internal/cors"
	logpkg "github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel origin changes are published on.
const DefaultChannel = "corsgate:origins"

// Message is one origin change as sent on the wire.
type Message struct {
	ID       string          `json:"id"`
	Instance string          `json:"instance"`
	Op       models.OriginOp `json:"op"`
	Origin   string          `json:"origin"`
	At       time.Time       `json:"at"`
}

func newMessage(instance string, op models.OriginOp, origin string) Message {
	return Message{
		ID:       uuid.NewString(),
		Instance: instance,
		Op:       op,
		Origin:   origin,
		At:       time.Now().UTC(),
	}
}

func decodeMessage(payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, fmt.Errorf("decode origin change: %w", err)
	}
	if !msg.Op.Valid() {
		return Message{}, fmt.Errorf("decode origin change: unknown op %q", msg.Op)
	}
	if msg.Origin == "" {
		return Message{}, fmt.Errorf("decode origin change: empty origin")
	}
	return msg, nil
}

// Publisher broadcasts local origin changes.
type Publisher struct {
	client   *redis.Client
	channel  string
	instance string
}

// NewPublisher creates a publisher that tags messages with instance.
func NewPublisher(client *redis.Client, instance string) *Publisher {
	return &Publisher{client: client, channel: DefaultChannel, instance: instance}
}

// PublishChange sends one change to every subscribed instance.
func (p *Publisher) PublishChange(ctx context.Context, op models.OriginOp, origin string) error {
	data, err := json.Marshal(newMessage(p.instance, op, origin))
	if err != nil {
		return fmt.Errorf("encode origin change: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish origin change: %w", err)
	}
	return nil
}

// Applier receives remote changes. *cors.Policy satisfies it.
type Applier interface {
	AddOrigin(origin string) error
	RemoveOrigin(origin string) error
}

// Subscriber applies changes published by other instances.
type Subscriber struct {
	client   *redis.Client
	channel  string
	instance string
	target   Applier
	log      *zap.Logger
}

// NewSubscriber creates a subscriber that ignores messages from instance.
func NewSubscriber(client *redis.Client, instance string, target Applier, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{
		client:   client,
		channel:  DefaultChannel,
		instance: instance,
		target:   target,
		log:      log,
	}
}

// Run subscribes and applies messages until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.log.Info("origin_sync_subscribed", zap.String("channel", s.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.handle(m.Payload); err != nil {
				s.log.Warn("origin_sync_message_dropped", zap.Error(err))
			}
		}
	}
}

// handle applies one payload. Messages from this instance are skipped and
// changes that are already in effect are not errors.
func (s *Subscriber) handle(payload string) error {
	msg, err := decodeMessage(payload)
	if err != nil {
		return err
	}
	if msg.Instance == s.instance {
		return nil
	}

	switch msg.Op {
	case models.OriginOpAdd:
		err = s.target.AddOrigin(msg.Origin)
		if errors.Is(err, cors.ErrOriginExists) {
			err = nil
		}
	case models.OriginOpRemove:
		err = s.target.RemoveOrigin(msg.Origin)
		if errors.Is(err, cors.ErrOriginNotFound) {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("apply %s %s: %w", msg.Op, logpkg.SanitizeOrigin(msg.Origin), err)
	}

	s.log.Info("origin_sync_applied",
		zap.String("op", string(msg.Op)),
		zap.String("origin", logpkg.SanitizeOrigin(msg.Origin)),
		zap.String("from_instance", logpkg.SanitizeString(msg.Instance, logpkg.MaxGeneralStringLength)),
	)
	return nil
}
