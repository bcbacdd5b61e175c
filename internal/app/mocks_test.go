package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pscheid92/rubyemotes/internal/domain"
)

// --- Mock ConfigRepository ---

type mockConfigRepo struct {
	getFn   func(ctx context.Context) (*domain.SiteConfig, error)
	mergeFn func(ctx context.Context, cfg domain.SiteConfig) error
}

func (m *mockConfigRepo) Get(ctx context.Context) (*domain.SiteConfig, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return nil, domain.ErrConfigNotFound
}

func (m *mockConfigRepo) Merge(ctx context.Context, cfg domain.SiteConfig) error {
	if m.mergeFn != nil {
		return m.mergeFn(ctx, cfg)
	}
	return nil
}

// --- Mock ConfigSource ---

type mockConfigSource struct {
	getFn        func(ctx context.Context) (*domain.SiteConfig, error)
	invalidateFn func(ctx context.Context) error
}

func (m *mockConfigSource) Get(ctx context.Context) (*domain.SiteConfig, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return nil, domain.ErrConfigNotFound
}

func (m *mockConfigSource) Invalidate(ctx context.Context) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx)
	}
	return nil
}

// --- In-memory EmoteRepository ---

type memEmoteRepo struct {
	mu        sync.Mutex
	emotes    map[string]domain.Emote
	order     []string
	createErr error
	listErr   error
	deleteErr error
}

func newMemEmoteRepo() *memEmoteRepo {
	return &memEmoteRepo{emotes: make(map[string]domain.Emote)}
}

func (m *memEmoteRepo) Create(_ context.Context, emote *domain.Emote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.emotes[emote.ID] = *emote
	m.order = append(m.order, emote.ID)
	return nil
}

func (m *memEmoteRepo) Get(_ context.Context, id string) (*domain.Emote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emotes[id]
	if !ok {
		return nil, domain.ErrEmoteNotFound
	}
	return &e, nil
}

func (m *memEmoteRepo) List(_ context.Context) ([]domain.Emote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Emote, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if e, ok := m.emotes[m.order[i]]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEmoteRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.emotes[id]; !ok {
		return domain.ErrEmoteNotFound
	}
	delete(m.emotes, id)
	return nil
}

// --- In-memory BlobStore ---

const testBaseURL = "https://storage.example.com/test-bucket/"

type memBlobStore struct {
	mu        sync.Mutex
	objects   map[string]domain.Object
	data      map[string]string
	types     map[string]string
	uploadErr error
	deleteErr map[string]error
	deleted   []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{
		objects:   make(map[string]domain.Object),
		data:      make(map[string]string),
		types:     make(map[string]string),
		deleteErr: make(map[string]error),
	}
}

func (m *memBlobStore) Upload(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = domain.Object{Key: key, Size: int64(len(b))}
	m.data[key] = string(b)
	m.types[key] = contentType
	return testBaseURL + key, nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	if _, ok := m.objects[key]; !ok {
		return nil
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memBlobStore) List(_ context.Context, prefix string) ([]domain.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Object
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memBlobStore) ObjectKey(publicURL string) (string, bool) {
	key, ok := strings.CutPrefix(publicURL, testBaseURL)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (m *memBlobStore) put(obj domain.Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = obj
}

// --- Recording EventPublisher ---

type publishedEvent struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []publishedEvent
	publErr error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publErr != nil {
		return p.publErr
	}
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

func sequentialIDs() func() (string, error) {
	var n int
	return func() (string, error) {
		n++
		return fmt.Sprintf("emote-%02d", n), nil
	}
}
