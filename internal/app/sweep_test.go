package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSweep(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	svc, deps := newTestService()
	ctx := context.Background()

	_, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: "kept.png", Body: strings.NewReader("x")})
	require.NoError(t, err)

	deps.blobs.put(domain.Object{Key: "emotes/1_old-orphan.png", LastModified: testNow.Add(-2 * time.Hour)})
	deps.blobs.put(domain.Object{Key: "emotes/2_fresh-orphan.png", LastModified: testNow.Add(-time.Minute)})
	return svc, deps
}

func TestSweepOrphans_DeletesOldUnreferenced(t *testing.T) {
	svc, deps := seedSweep(t)

	result, err := svc.SweepOrphans(context.Background(), SweepOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 1, result.Referenced)
	assert.Equal(t, 1, result.TooRecent)
	assert.Equal(t, []string{"emotes/1_old-orphan.png"}, result.Orphans)
	assert.Equal(t, []string{"emotes/1_old-orphan.png"}, result.Deleted)
	assert.Equal(t, []string{"emotes/1_old-orphan.png"}, deps.blobs.deleted)
}

func TestSweepOrphans_DryRun(t *testing.T) {
	svc, deps := seedSweep(t)

	result, err := svc.SweepOrphans(context.Background(), SweepOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"emotes/1_old-orphan.png"}, result.Orphans)
	assert.Empty(t, result.Deleted)
	assert.Empty(t, deps.blobs.deleted)
}

func TestSweepOrphans_CustomMinAge(t *testing.T) {
	svc, _ := seedSweep(t)

	result, err := svc.SweepOrphans(context.Background(), SweepOptions{DryRun: true, MinAge: 30 * time.Second})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"emotes/1_old-orphan.png", "emotes/2_fresh-orphan.png"}, result.Orphans)
}

func TestSweepOrphans_DeleteFailureIsReported(t *testing.T) {
	svc, deps := seedSweep(t)
	deps.blobs.deleteErr["emotes/1_old-orphan.png"] = errors.New("permission denied")

	result, err := svc.SweepOrphans(context.Background(), SweepOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"emotes/1_old-orphan.png"}, result.Failed)
	assert.Empty(t, result.Deleted)
}

func TestSweepOrphans_ListError(t *testing.T) {
	svc, deps := seedSweep(t)
	deps.emotes.listErr = errors.New("db down")

	_, err := svc.SweepOrphans(context.Background(), SweepOptions{})
	require.Error(t, err)
	assert.Empty(t, deps.blobs.deleted)
}
