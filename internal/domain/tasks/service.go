package tasks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

// Service exposes the task list operations. Authenticated owners work
// against the remote document store; guests and failed remote writes land in
// the in-memory repository so the board still updates under network latency.
type Service interface {
	Add(ctx context.Context, owner Owner, req AddRequest) (Task, error)
	Toggle(ctx context.Context, owner Owner, id string) (Task, error)
	Delete(ctx context.Context, owner Owner, id string) error
	List(ctx context.Context, owner Owner) ([]Task, error)
	Subscribe(ctx context.Context, owner Owner) (<-chan []Task, func(), error)
}

type service struct {
	remote Repository
	local  Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the task domain.
func NewService(remote, local Repository, logger *slog.Logger) Service {
	return &service{
		remote: remote,
		local:  local,
		logger: logger.With("component", "tasks.service"),
		now:    time.Now,
	}
}

func (s *service) Add(ctx context.Context, owner Owner, req AddRequest) (Task, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Task{}, apperrors.Wrap("invalid_input", "task text cannot be empty", nil)
	}

	task := Task{
		ID:        uuid.NewString(),
		Text:      text,
		Completed: false,
		Priority:  ParsePriority(req.Priority),
		CreatedAt: s.now().UTC(),
	}

	if !owner.Authenticated {
		if err := s.local.Add(ctx, owner.Key, task); err != nil {
			return Task{}, apperrors.Wrap("store_error", "failed to add task", err)
		}
		return task, nil
	}

	if err := s.remote.Add(ctx, owner.Key, task); err != nil {
		// optimistic fallback: keep the board responsive and record the
		// divergence instead of dropping the write
		s.logger.Warn("remote task add failed, keeping local copy", "owner", owner.Key, "task", task.ID, "error", err)
		if localErr := s.local.Add(ctx, owner.Key, task); localErr != nil {
			return Task{}, apperrors.Wrap("store_error", "failed to add task", localErr)
		}
	}
	return task, nil
}

func (s *service) Toggle(ctx context.Context, owner Owner, id string) (Task, error) {
	repo := s.repoFor(owner)
	task, found, err := repo.Get(ctx, owner.Key, id)
	if err != nil {
		return Task{}, apperrors.Wrap("store_error", "failed to load task", err)
	}
	if !found {
		// an optimistic fallback copy may only exist locally
		if owner.Authenticated {
			if task, found, err = s.local.Get(ctx, owner.Key, id); err == nil && found {
				repo = s.local
			}
		}
		if !found {
			return Task{}, apperrors.Wrap("not_found", "task not found", nil)
		}
	}

	task.Completed = !task.Completed
	if err := repo.SetCompleted(ctx, owner.Key, id, task.Completed); err != nil {
		return Task{}, apperrors.Wrap("store_error", "failed to update task", err)
	}
	return task, nil
}

func (s *service) Delete(ctx context.Context, owner Owner, id string) error {
	repo := s.repoFor(owner)
	if err := repo.Delete(ctx, owner.Key, id); err != nil {
		return apperrors.Wrap("store_error", "failed to delete task", err)
	}
	if owner.Authenticated {
		// drop any optimistic fallback copy as well
		_ = s.local.Delete(ctx, owner.Key, id)
	}
	return nil
}

func (s *service) List(ctx context.Context, owner Owner) ([]Task, error) {
	out, err := s.repoFor(owner).List(ctx, owner.Key)
	if err != nil {
		return nil, apperrors.Wrap("store_error", "failed to list tasks", err)
	}
	if owner.Authenticated {
		if localOnly, localErr := s.local.List(ctx, owner.Key); localErr == nil && len(localOnly) > 0 {
			out = mergeByID(out, localOnly)
		}
	}
	return out, nil
}

func (s *service) Subscribe(ctx context.Context, owner Owner) (<-chan []Task, func(), error) {
	ch, stop, err := s.repoFor(owner).Watch(ctx, owner.Key)
	if err != nil {
		return nil, nil, apperrors.Wrap("store_error", "failed to subscribe to tasks", err)
	}
	return ch, stop, nil
}

func (s *service) repoFor(owner Owner) Repository {
	if owner.Authenticated {
		return s.remote
	}
	return s.local
}

// mergeByID appends local-only records while preserving insertion order of
// the authoritative list.
func mergeByID(authoritative, extra []Task) []Task {
	seen := make(map[string]struct{}, len(authoritative))
	for _, t := range authoritative {
		seen[t.ID] = struct{}{}
	}
	out := authoritative
	for _, t := range extra {
		if _, ok := seen[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
