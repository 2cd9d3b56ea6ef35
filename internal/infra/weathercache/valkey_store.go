package weathercache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/greennepal/agrihealth/internal/domain/dashboard"
)

// ValkeyStore caches the weather snapshot in a Valkey-compatible database so
// replicas share a single upstream fetch per TTL window.
type ValkeyStore struct {
	client valkey.Client
	key    string
	ttl    time.Duration
}

// NewValkeyStore constructs a snapshot cache backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "weather"
	}
	return &ValkeyStore{client: client, key: prefix + ":snapshot", ttl: ttl}
}

// Get returns the cached snapshot if present.
func (s *ValkeyStore) Get(ctx context.Context) (dashboard.Snapshot, bool, error) {
	cmd := s.client.B().Get().Key(s.key).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return dashboard.Snapshot{}, false, nil
		}
		return dashboard.Snapshot{}, false, err
	}
	var snap dashboard.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return dashboard.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save stores the snapshot with the configured TTL.
func (s *ValkeyStore) Save(ctx context.Context, snap dashboard.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key).Value(string(payload))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

var _ dashboard.SnapshotStore = (*ValkeyStore)(nil)
