package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/rubyemotes/internal/domain"
)

// DefaultSweepMinAge keeps objects whose metadata write may still be in flight.
const DefaultSweepMinAge = time.Hour

type SweepOptions struct {
	DryRun bool
	MinAge time.Duration
}

type SweepResult struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	TooRecent  int      `json:"too_recent"`
	Orphans    []string `json:"orphans"`
	Deleted    []string `json:"deleted"`
	Failed     []string `json:"failed"`
}

// SweepOrphans deletes emote objects that no metadata record points at.
// Objects are listed before records, so an upload that finishes during the
// sweep is protected by MinAge rather than by the record listing.
func (s *Service) SweepOrphans(ctx context.Context, opts SweepOptions) (*SweepResult, error) {
	if opts.MinAge <= 0 {
		opts.MinAge = DefaultSweepMinAge
	}

	objects, err := s.blobs.List(ctx, domain.EmoteKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	emotes, err := s.emotes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list emotes: %w", err)
	}

	referenced := make(map[string]struct{}, len(emotes))
	for _, e := range emotes {
		if key, ok := s.blobs.ObjectKey(e.URL); ok {
			referenced[key] = struct{}{}
		}
	}

	now := s.clock.Now()
	result := &SweepResult{}
	for _, obj := range objects {
		result.Scanned++

		if _, ok := referenced[obj.Key]; ok {
			result.Referenced++
			continue
		}
		if now.Sub(obj.LastModified) < opts.MinAge {
			result.TooRecent++
			continue
		}

		result.Orphans = append(result.Orphans, obj.Key)
		if opts.DryRun {
			continue
		}

		if err := s.blobs.Delete(ctx, obj.Key); err != nil {
			slog.WarnContext(ctx, "Failed to delete orphaned object", "key", obj.Key, "error", err)
			result.Failed = append(result.Failed, obj.Key)
			continue
		}
		result.Deleted = append(result.Deleted, obj.Key)
	}

	slog.InfoContext(ctx, "Orphan sweep finished",
		"dry_run", opts.DryRun,
		"scanned", result.Scanned,
		"orphans", len(result.Orphans),
		"deleted", len(result.Deleted),
		"failed", len(result.Failed),
	)
	return result, nil
}
