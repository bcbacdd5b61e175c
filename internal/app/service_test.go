package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testDeps struct {
	configs *mockConfigRepo
	source  *mockConfigSource
	emotes  *memEmoteRepo
	blobs   *memBlobStore
	events  *recordingPublisher
	clock   *clockwork.FakeClock
}

func newTestService() (*Service, *testDeps) {
	deps := &testDeps{
		configs: &mockConfigRepo{},
		source:  &mockConfigSource{},
		emotes:  newMemEmoteRepo(),
		blobs:   newMemBlobStore(),
		events:  &recordingPublisher{},
		clock:   clockwork.NewFakeClockAt(testNow),
	}
	svc := NewService(deps.configs, deps.source, deps.emotes, deps.blobs, deps.events, deps.clock)
	svc.newID = sequentialIDs()
	return svc, deps
}

// --- GetConfig ---

func TestGetConfig_DefaultWhenMissing(t *testing.T) {
	svc, _ := newTestService()

	cfg, err := svc.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://google.com", cfg.AdLink)
}

func TestGetConfig_Stored(t *testing.T) {
	svc, deps := newTestService()
	deps.source.getFn = func(context.Context) (*domain.SiteConfig, error) {
		return &domain.SiteConfig{AdLink: "https://x.test"}, nil
	}

	cfg, err := svc.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://x.test", cfg.AdLink)
}

func TestGetConfig_StoreError(t *testing.T) {
	svc, deps := newTestService()
	deps.source.getFn = func(context.Context) (*domain.SiteConfig, error) {
		return nil, errors.New("connection refused")
	}

	_, err := svc.GetConfig(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// --- SaveConfig ---

func TestSaveConfig_MergesInvalidatesAndPublishes(t *testing.T) {
	svc, deps := newTestService()

	var merged domain.SiteConfig
	deps.configs.mergeFn = func(_ context.Context, cfg domain.SiteConfig) error {
		merged = cfg
		return nil
	}
	invalidated := false
	deps.source.invalidateFn = func(context.Context) error {
		invalidated = true
		return nil
	}

	err := svc.SaveConfig(context.Background(), "https://x.test")
	require.NoError(t, err)

	assert.Equal(t, "https://x.test", merged.AdLink)
	assert.True(t, invalidated)
	assert.Equal(t, []string{domain.TopicConfigUpdated}, deps.events.topics())
}

func TestSaveConfig_MergeError(t *testing.T) {
	svc, deps := newTestService()
	deps.configs.mergeFn = func(context.Context, domain.SiteConfig) error {
		return errors.New("db down")
	}

	err := svc.SaveConfig(context.Background(), "https://x.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, deps.events.topics())
}

func TestSaveConfig_InvalidateErrorIsNotFatal(t *testing.T) {
	svc, deps := newTestService()
	deps.source.invalidateFn = func(context.Context) error {
		return errors.New("redis down")
	}

	err := svc.SaveConfig(context.Background(), "https://x.test")
	require.NoError(t, err)
}

func TestSaveConfig_PublishErrorIsNotFatal(t *testing.T) {
	svc, deps := newTestService()
	deps.events.publErr = errors.New("nats down")

	err := svc.SaveConfig(context.Background(), "https://x.test")
	require.NoError(t, err)
}

func TestSaveConfig_NilPublisher(t *testing.T) {
	deps := &testDeps{configs: &mockConfigRepo{}, source: &mockConfigSource{}}
	svc := NewService(deps.configs, deps.source, newMemEmoteRepo(), newMemBlobStore(), nil, clockwork.NewFakeClock())

	require.NoError(t, svc.SaveConfig(context.Background(), "https://x.test"))
}

// --- AddEmote ---

func TestAddEmote_StoresImageAndRecord(t *testing.T) {
	svc, deps := newTestService()

	emote, err := svc.AddEmote(context.Background(), AddEmoteRequest{
		Name:        "Pog",
		Filename:    "pog.png",
		ContentType: "image/png",
		Size:        3,
		Body:        strings.NewReader("png"),
	})
	require.NoError(t, err)

	key := "emotes/1714564800000_pog.png"
	assert.Equal(t, "emote-01", emote.ID)
	assert.Equal(t, "Pog", emote.Name)
	assert.Equal(t, testBaseURL+key, emote.URL)
	assert.Equal(t, "png", deps.blobs.data[key])
	assert.Equal(t, "image/png", deps.blobs.types[key])

	stored, err := deps.emotes.Get(context.Background(), "emote-01")
	require.NoError(t, err)
	assert.Equal(t, emote.URL, stored.URL)
	assert.Equal(t, []string{domain.TopicEmoteCreated}, deps.events.topics())
}

func TestAddEmote_DefaultName(t *testing.T) {
	svc, _ := newTestService()

	emote, err := svc.AddEmote(context.Background(), AddEmoteRequest{Filename: "a.gif", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "Unnamed Emote", emote.Name)
}

func TestAddEmote_DefaultContentType(t *testing.T) {
	svc, deps := newTestService()

	_, err := svc.AddEmote(context.Background(), AddEmoteRequest{Filename: "a.bin", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", deps.blobs.types["emotes/1714564800000_a.bin"])
}

func TestAddEmote_UploadErrorWritesNoRecord(t *testing.T) {
	svc, deps := newTestService()
	deps.blobs.uploadErr = errors.New("bucket gone")

	_, err := svc.AddEmote(context.Background(), AddEmoteRequest{Filename: "a.png", Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")

	list, err := deps.emotes.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, deps.events.topics())
}

func TestAddEmote_RecordErrorLeavesObject(t *testing.T) {
	svc, deps := newTestService()
	deps.emotes.createErr = errors.New("db down")

	_, err := svc.AddEmote(context.Background(), AddEmoteRequest{Filename: "a.png", Body: strings.NewReader("x")})
	require.Error(t, err)

	objects, err := deps.blobs.List(context.Background(), domain.EmoteKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestAddEmote_SameFilenameDifferentMillis(t *testing.T) {
	svc, deps := newTestService()
	ctx := context.Background()

	first, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: "pog.png", Body: strings.NewReader("1")})
	require.NoError(t, err)
	deps.clock.Advance(time.Millisecond)
	second, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: "pog.png", Body: strings.NewReader("2")})
	require.NoError(t, err)

	assert.NotEqual(t, first.URL, second.URL)
	assert.NotEqual(t, first.ID, second.ID)
}

// --- EmoteObjectKey ---

func TestEmoteObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "pog.png", "emotes/1714564800000_pog.png"},
		{"unix path", "../../etc/pog.png", "emotes/1714564800000_pog.png"},
		{"windows path", `C:\Users\me\pog.png`, "emotes/1714564800000_pog.png"},
		{"spaces kept", "my emote.png", "emotes/1714564800000_my emote.png"},
		{"empty", "", "emotes/1714564800000_upload"},
		{"dot dot", "..", "emotes/1714564800000_upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmoteObjectKey(testNow, tt.filename))
		})
	}
}

// --- ListEmotes ---

func TestListEmotes_NewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: name, Body: strings.NewReader("x")})
		require.NoError(t, err)
	}

	list, err := svc.ListEmotes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "emote-03", list[0].ID)
	assert.Equal(t, "emote-01", list[2].ID)
}

func TestListEmotes_Error(t *testing.T) {
	svc, deps := newTestService()
	deps.emotes.listErr = errors.New("db down")

	_, err := svc.ListEmotes(context.Background())
	require.Error(t, err)
}

// --- DeleteEmote ---

func TestDeleteEmote_RemovesImageAndRecord(t *testing.T) {
	svc, deps := newTestService()
	ctx := context.Background()

	emote, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: "pog.png", Body: strings.NewReader("x")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEmote(ctx, emote.ID))

	_, err = deps.emotes.Get(ctx, emote.ID)
	assert.ErrorIs(t, err, domain.ErrEmoteNotFound)
	assert.Equal(t, []string{"emotes/1714564800000_pog.png"}, deps.blobs.deleted)
	assert.Equal(t, []string{domain.TopicEmoteCreated, domain.TopicEmoteDeleted}, deps.events.topics())
}

func TestDeleteEmote_NotFound(t *testing.T) {
	svc, deps := newTestService()

	err := svc.DeleteEmote(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrEmoteNotFound)
	assert.Empty(t, deps.blobs.deleted)
}

func TestDeleteEmote_StorageErrorStillDeletesRecord(t *testing.T) {
	svc, deps := newTestService()
	ctx := context.Background()

	emote, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: "pog.png", Body: strings.NewReader("x")})
	require.NoError(t, err)
	deps.blobs.deleteErr["emotes/1714564800000_pog.png"] = errors.New("permission denied")

	require.NoError(t, svc.DeleteEmote(ctx, emote.ID))

	_, err = deps.emotes.Get(ctx, emote.ID)
	assert.ErrorIs(t, err, domain.ErrEmoteNotFound)
}

func TestDeleteEmote_ForeignURLSkipsStorage(t *testing.T) {
	svc, deps := newTestService()
	ctx := context.Background()
	require.NoError(t, deps.emotes.Create(ctx, &domain.Emote{ID: "ext", URL: "https://elsewhere.test/pog.png"}))

	require.NoError(t, svc.DeleteEmote(ctx, "ext"))
	assert.Empty(t, deps.blobs.deleted)
}

func TestDeleteEmote_RecordDeleteError(t *testing.T) {
	svc, deps := newTestService()
	ctx := context.Background()

	emote, err := svc.AddEmote(ctx, AddEmoteRequest{Filename: "pog.png", Body: strings.NewReader("x")})
	require.NoError(t, err)
	deps.emotes.deleteErr = errors.New("db down")

	err = svc.DeleteEmote(ctx, emote.ID)
	require.Error(t, err)
	assert.Equal(t, []string{domain.TopicEmoteCreated}, deps.events.topics())
}
