package events

import (
	"context"

	"github.com/socialnet/apiserver/internal/mq"
	"go.uber.org/zap"
)

// MediaRemover deletes stored media by public URL.
type MediaRemover interface {
	Remove(ctx context.Context, urls []string) (int, error)
}

// MediaCleaner removes the media of deleted posts from object storage.
type MediaCleaner struct {
	media MediaRemover
	log   *zap.Logger
}

func NewMediaCleaner(media MediaRemover, log *zap.Logger) *MediaCleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &MediaCleaner{media: media, log: log}
}

// Handle is an mq.Handler. Returning an error asks the broker to redeliver,
// so malformed payloads are acknowledged and dropped instead.
func (c *MediaCleaner) Handle(ctx context.Context, msg mq.Message) error {
	event, err := Decode(msg)
	if err != nil {
		c.log.Warn("drop malformed event", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	if event.Type != PostDeleted || len(event.MediaURLs) == 0 {
		return nil
	}

	removed, err := c.media.Remove(ctx, event.MediaURLs)
	if err != nil {
		c.log.Error("remove post media", zap.String("post_id", event.SubjectID), zap.Error(err))
		return err
	}
	c.log.Info("removed post media", zap.String("post_id", event.SubjectID), zap.Int("objects", removed))
	return nil
}
