package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

func newTestService(remote, local Repository) Service {
	return NewService(remote, local, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func guest() Owner {
	return Owner{Key: "session-1"}
}

func TestGuestTaskLifecycle(t *testing.T) {
	local := newFakeRepo()
	svc := newTestService(newFakeRepo(), local)
	ctx := context.Background()

	first, err := svc.Add(ctx, guest(), AddRequest{Text: "Water Tomato Field A", Priority: "high"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, PriorityHigh, first.Priority)
	require.False(t, first.Completed)

	second, err := svc.Add(ctx, guest(), AddRequest{Text: "Buy Urea/DAP Fertilizer"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, PriorityMedium, second.Priority)

	list, err := svc.List(ctx, guest())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID, "insertion order preserved")

	toggled, err := svc.Toggle(ctx, guest(), first.ID)
	require.NoError(t, err)
	require.True(t, toggled.Completed)
	require.Equal(t, first.Text, toggled.Text)
	require.Equal(t, first.Priority, toggled.Priority)

	require.NoError(t, svc.Delete(ctx, guest(), first.ID))
	list, err = svc.List(ctx, guest())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, second.ID, list[0].ID)
}

func TestToggleUnknownTask(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeRepo())
	_, err := svc.Toggle(context.Background(), guest(), "missing")
	require.True(t, apperrors.IsCode(err, "not_found"))
}

func TestAddEmptyTextRejected(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeRepo())
	_, err := svc.Add(context.Background(), guest(), AddRequest{Text: "   "})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestAddFallsBackToLocalOnRemoteFailure(t *testing.T) {
	remote := newFakeRepo()
	remote.addErr = errors.New("store offline")
	local := newFakeRepo()
	svc := newTestService(remote, local)
	owner := Owner{Key: "user-7", Authenticated: true}

	task, err := svc.Add(context.Background(), owner, AddRequest{Text: "Spray neem oil"})
	require.NoError(t, err)

	fromLocal, found, err := local.Get(context.Background(), owner.Key, task.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, task.Text, fromLocal.Text)

	// the merged listing still surfaces the optimistic copy
	list, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSubscribeEmitsFullCollection(t *testing.T) {
	local := newFakeRepo()
	svc := newTestService(newFakeRepo(), local)
	ctx := context.Background()

	ch, stop, err := svc.Subscribe(ctx, guest())
	require.NoError(t, err)
	defer stop()

	_, err = svc.Add(ctx, guest(), AddRequest{Text: "Check irrigation"})
	require.NoError(t, err)

	select {
	case snapshot := <-ch:
		require.Len(t, snapshot, 1)
		require.Equal(t, "Check irrigation", snapshot[0].Text)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

// fakeRepo mirrors the in-memory repository behavior for service tests.
type fakeRepo struct {
	byOwner map[string][]Task
	subs    map[string][]chan []Task
	addErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byOwner: make(map[string][]Task), subs: make(map[string][]chan []Task)}
}

func (f *fakeRepo) Add(_ context.Context, owner string, task Task) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.byOwner[owner] = append(f.byOwner[owner], task)
	f.notify(owner)
	return nil
}

func (f *fakeRepo) Get(_ context.Context, owner, id string) (Task, bool, error) {
	for _, t := range f.byOwner[owner] {
		if t.ID == id {
			return t, true, nil
		}
	}
	return Task{}, false, nil
}

func (f *fakeRepo) SetCompleted(_ context.Context, owner, id string, completed bool) error {
	for i, t := range f.byOwner[owner] {
		if t.ID == id {
			t.Completed = completed
			f.byOwner[owner][i] = t
			f.notify(owner)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeRepo) Delete(_ context.Context, owner, id string) error {
	list := f.byOwner[owner]
	for i, t := range list {
		if t.ID == id {
			f.byOwner[owner] = append(list[:i:i], list[i+1:]...)
			f.notify(owner)
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) List(_ context.Context, owner string) ([]Task, error) {
	out := make([]Task, len(f.byOwner[owner]))
	copy(out, f.byOwner[owner])
	return out, nil
}

func (f *fakeRepo) Watch(_ context.Context, owner string) (<-chan []Task, func(), error) {
	ch := make(chan []Task, 8)
	f.subs[owner] = append(f.subs[owner], ch)
	return ch, func() {}, nil
}

func (f *fakeRepo) notify(owner string) {
	snapshot, _ := f.List(context.Background(), owner)
	for _, ch := range f.subs[owner] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
