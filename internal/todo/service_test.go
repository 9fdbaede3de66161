package todo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	xerrors "HTMX-Todo/internal/errors"
	"HTMX-Todo/internal/event"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []event.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]event.Kind, 0, len(p.events))
	for _, evt := range p.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

type failingStore struct {
	err error
}

func (f failingStore) Insert(context.Context, Todo) error { return f.err }
func (f failingStore) Update(context.Context, Todo) (int64, error) {
	return 0, f.err
}
func (f failingStore) List(context.Context) ([]Todo, error) { return nil, f.err }
func (f failingStore) Find(context.Context, uuid.UUID) (Todo, error) {
	return Todo{}, f.err
}
func (f failingStore) Delete(context.Context, uuid.UUID) (int64, error) {
	return 0, f.err
}
func (f failingStore) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceRoundTrip(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewService(NewMemoryStore(), WithPublisher(publisher), WithLogger(quietLogger()))
	ctx := context.Background()

	empty, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}

	created, err := svc.Add(ctx, "buy milk")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]Todo{created}, items); diff != "" {
		t.Fatalf("unexpected list (-want +got):\n%s", diff)
	}

	updated, err := svc.Update(ctx, created.ID, "buy oat milk")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	found, err := svc.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff(updated, found); diff != "" {
		t.Fatalf("unexpected find result (-want +got):\n%s", diff)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Find(ctx, created.ID); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("deleting absent id should succeed: %v", err)
	}

	want := []event.Kind{event.KindAdded, event.KindUpdated, event.KindDeleted}
	if diff := cmp.Diff(want, publisher.kinds()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestServiceUpdateMissing(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewService(NewMemoryStore(), WithPublisher(publisher), WithLogger(quietLogger()))
	ctx := context.Background()

	kept, _ := svc.Add(ctx, "keep me")
	if _, err := svc.Update(ctx, NewID(), "ghost"); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
	items, _ := svc.List(ctx)
	if diff := cmp.Diff([]Todo{kept}, items); diff != "" {
		t.Fatalf("failed update altered the list (-want +got):\n%s", diff)
	}
	if len(publisher.kinds()) != 1 {
		t.Fatalf("failed update must not publish, got %v", publisher.kinds())
	}
}

func TestServicePublishFailureDoesNotFailWrite(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("queue down")}
	svc := NewService(NewMemoryStore(), WithPublisher(publisher), WithLogger(quietLogger()))

	if _, err := svc.Add(context.Background(), "still saved"); err != nil {
		t.Fatalf("add should succeed when publishing fails: %v", err)
	}
	items, _ := svc.List(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
}

func TestServicePublishFailureLogLevel(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "queue closed", err: event.ErrQueueClosed, want: "level=INFO"},
		{name: "queue full", err: event.ErrQueueFull, want: "level=WARN"},
		{name: "unclassified", err: errors.New("broker gone"), want: "level=ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			svc := NewService(NewMemoryStore(), WithPublisher(&recordingPublisher{err: tc.err}), WithLogger(logger))
			if _, err := svc.Add(context.Background(), "x"); err != nil {
				t.Fatalf("add: %v", err)
			}
			if !strings.Contains(logs.String(), tc.want) {
				t.Fatalf("expected %s in log, got:\n%s", tc.want, logs.String())
			}
		})
	}
}

func TestServiceStorageFailure(t *testing.T) {
	storeErr := xerrors.New(xerrors.CodeStorageFailure, "db down")
	publisher := &recordingPublisher{}
	svc := NewService(failingStore{err: storeErr}, WithPublisher(publisher), WithLogger(quietLogger()))
	ctx := context.Background()

	item, err := svc.Add(ctx, "draft")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if item.Description != "draft" || item.ID == uuid.Nil {
		t.Fatalf("add should still return the attempted todo, got %+v", item)
	}

	items, err := svc.List(ctx)
	if err == nil {
		t.Fatalf("expected list failure")
	}
	if items == nil {
		t.Fatalf("list must never return nil")
	}
	if err := svc.Delete(ctx, NewID()); xerrors.CodeOf(err) != xerrors.CodeStorageFailure {
		t.Fatalf("expected storage failure code, got %v", err)
	}
	if len(publisher.kinds()) != 0 {
		t.Fatalf("failed writes must not publish")
	}
}

func TestServiceWithoutStore(t *testing.T) {
	svc := NewService(nil, WithLogger(quietLogger()))
	if _, err := svc.Add(context.Background(), "x"); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
