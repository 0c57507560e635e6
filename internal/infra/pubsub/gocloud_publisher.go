package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/service"
	"accounts/internal/errors"

	cdkpubsub "gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // registers mem:// topics
)

const gocloudShutdownTimeout = 10 * time.Second

// goCloudPublisher implements EventPublisher over a Go CDK portable topic.
type goCloudPublisher struct {
	topic  *cdkpubsub.Topic
	logger *slog.Logger
}

// NewGoCloudPublisher opens the topic named by a Go CDK URL, e.g. mem://account-events.
func NewGoCloudPublisher(ctx context.Context, topicURL string, logger *slog.Logger) (service.EventPublisher, error) {
	topic, err := cdkpubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open topic %s", topicURL)
	}

	return &goCloudPublisher{topic: topic, logger: logger}, nil
}

// Publish sends the event body with its attributes as metadata
func (p *goCloudPublisher) Publish(ctx context.Context, event *entity.AccountEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := p.topic.Send(ctx, &cdkpubsub.Message{Body: body, Metadata: eventAttributes(event)}); err != nil {
		return errors.Wrap(err, "failed to send account event")
	}

	p.logger.DebugContext(ctx, "[GoCloudPubSub] Event published",
		slog.String("event_id", event.EventID.String()),
		slog.String("type", string(event.Type)),
	)

	return nil
}

// Close flushes pending sends and releases the topic
func (p *goCloudPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), gocloudShutdownTimeout)
	defer cancel()

	return errors.WithStack(p.topic.Shutdown(ctx))
}
