package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/pscheid92/rubyemotes/internal/domain"
)

const defaultContentType = "application/octet-stream"

type AddEmoteRequest struct {
	Name        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddEmote uploads the image and then records its metadata. If recording fails
// the uploaded object is left behind for the orphan sweep.
func (s *Service) AddEmote(ctx context.Context, req AddEmoteRequest) (*domain.Emote, error) {
	key := EmoteObjectKey(s.clock.Now(), req.Filename)

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	url, err := s.blobs.Upload(ctx, key, req.Body, req.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload emote image: %w", err)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate emote id: %w", err)
	}

	name := req.Name
	if name == "" {
		name = domain.DefaultEmoteName
	}

	emote := &domain.Emote{ID: id, Name: name, URL: url}
	if err := s.emotes.Create(ctx, emote); err != nil {
		slog.ErrorContext(ctx, "Emote image uploaded but metadata write failed", "key", key, "error", err)
		return nil, fmt.Errorf("failed to record emote: %w", err)
	}

	slog.InfoContext(ctx, "Emote added", "emote_id", emote.ID, "key", key, "size", req.Size)
	s.publish(ctx, domain.TopicEmoteCreated, domain.EmoteCreated{Emote: *emote})
	return emote, nil
}

// ListEmotes returns all emotes, newest first.
func (s *Service) ListEmotes(ctx context.Context) ([]domain.Emote, error) {
	emotes, err := s.emotes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list emotes: %w", err)
	}
	return emotes, nil
}

// DeleteEmote removes the image and then the metadata record. A failed image
// delete is logged and does not stop the record from being removed.
func (s *Service) DeleteEmote(ctx context.Context, id string) error {
	emote, err := s.emotes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load emote: %w", err)
	}

	key, ok := s.blobs.ObjectKey(emote.URL)
	if ok {
		if err := s.blobs.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "Storage delete error (might not exist)", "emote_id", id, "key", key, "error", err)
		}
	} else {
		slog.WarnContext(ctx, "Emote URL does not point into the bucket, skipping storage delete", "emote_id", id, "url", emote.URL)
	}

	if err := s.emotes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete emote: %w", err)
	}

	slog.InfoContext(ctx, "Emote deleted", "emote_id", id)
	s.publish(ctx, domain.TopicEmoteDeleted, domain.EmoteDeleted{EmoteID: id, ObjectKey: key})
	return nil
}

// EmoteObjectKey builds "emotes/<unix millis>_<file name>". Directory parts of
// the client-supplied file name are dropped.
func EmoteObjectKey(now time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "upload"
	}
	return fmt.Sprintf("%s%d_%s", domain.EmoteKeyPrefix, now.UnixMilli(), name)
}
