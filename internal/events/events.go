// Package events carries domain notifications from the API to background
// consumers over the message queue.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/socialnet/apiserver/internal/mq"
	"go.uber.org/zap"
)

// Channel is the queue or topic every event is published on.
const Channel = "socialnet.events"

// Type names what happened.
type Type string

const (
	PostCreated    Type = "post.created"
	PostDeleted    Type = "post.deleted"
	PostLiked      Type = "post.liked"
	PostUnliked    Type = "post.unliked"
	UserFollowed   Type = "user.followed"
	UserUnfollowed Type = "user.unfollowed"
	CommentCreated Type = "comment.created"
)

// Event is the JSON payload of a published message.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorId"`
	SubjectID  string    `json:"subjectId"`
	MediaURLs  []string  `json:"mediaUrls,omitempty"`
}

// New stamps an event of the given type with a fresh id and the current time.
func New(t Type, actorID, subjectID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		SubjectID:  subjectID,
	}
}

// Decode parses a queue message back into an Event.
func Decode(msg mq.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Publisher sends events through an MQ backend. A Publisher without a queue
// discards everything, which is how MQ_BACKEND=none behaves.
type Publisher struct {
	queue   *mq.MQ
	channel string
	log     *zap.Logger
}

func NewPublisher(queue *mq.MQ, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{queue: queue, channel: Channel, log: log}
}

// Publish sends the event. Failures are logged and otherwise ignored: the
// store write the event describes has already happened.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.queue == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	attrs := map[string]string{"type": string(event.Type)}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		p.log.Warn("publish event",
			zap.String("type", string(event.Type)),
			zap.String("subject", event.SubjectID),
			zap.Error(err),
		)
	}
}
