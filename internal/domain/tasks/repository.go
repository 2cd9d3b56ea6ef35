package tasks

import "context"

// Repository abstracts a per-owner task collection. Implementations exist
// for the remote document store and for process memory.
type Repository interface {
	Add(ctx context.Context, owner string, task Task) error
	Get(ctx context.Context, owner, id string) (Task, bool, error)
	SetCompleted(ctx context.Context, owner, id string, completed bool) error
	Delete(ctx context.Context, owner, id string) error
	List(ctx context.Context, owner string) ([]Task, error)
	// Watch emits the full current collection whenever it changes. The
	// channel closes when ctx is done or the returned stop function runs.
	Watch(ctx context.Context, owner string) (<-chan []Task, func(), error)
}
