package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/benvon/corsgate/internal/models"
	"github.com/benvon/corsgate/internal/queue"
)

var errStoreDown = errors.New("store down")

type fakeOriginStore struct {
	mu      sync.Mutex
	origins []string
	fail    bool
}

func (f *fakeOriginStore) Origins(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errStoreDown
	}
	return slices.Clone(f.origins), nil
}

func (f *fakeOriginStore) Add(_ context.Context, origin, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, errStoreDown
	}
	if slices.Contains(f.origins, origin) {
		return false, nil
	}
	f.origins = append(f.origins, origin)
	return true, nil
}

func (f *fakeOriginStore) Remove(_ context.Context, origin string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, errStoreDown
	}
	i := slices.Index(f.origins, origin)
	if i < 0 {
		return false, nil
	}
	f.origins = slices.Delete(f.origins, i, i+1)
	return true, nil
}

func (f *fakeOriginStore) ReplaceAll(_ context.Context, origins []string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.origins = slices.Clone(origins)
	return nil
}

type fakeConfigStore struct {
	row  *models.CorsConfig
	sets int
}

func (f *fakeConfigStore) Get(context.Context) (*models.CorsConfig, error) { return f.row, nil }

func (f *fakeConfigStore) Set(_ context.Context, c *models.CorsConfig) error {
	f.row = c
	f.sets++
	return nil
}

type change struct {
	op     models.OriginOp
	origin string
}

type fakeChangePublisher struct {
	mu      sync.Mutex
	changes []change
}

func (f *fakeChangePublisher) PublishChange(_ context.Context, op models.OriginOp, origin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change{op, origin})
	return nil
}

type fakeEvents struct {
	queue.NopPublisher
	mu     sync.Mutex
	events []*queue.Event
}

func (f *fakeEvents) Publish(_ context.Context, e *queue.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}
