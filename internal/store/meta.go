package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/pageturnapp/pageturn-engine/internal/id"
)

// Engine-level metadata lives under the meta: prefix, outside every
// record-kind collection. It never syncs to the cloud.
const (
	syncCheckpointKey = "meta:sync_checkpoint"
	deviceIDKey       = "meta:device_id"
)

// GetSyncCheckpoint returns the modified_at (unix ms) of the newest record
// known to have been pushed to the cloud. Zero means nothing has ever been
// pushed.
func (s *Store) GetSyncCheckpoint(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var checkpoint int64
	err := s.get([]byte(syncCheckpointKey), &checkpoint)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return checkpoint, nil
}

// SetSyncCheckpoint persists the push checkpoint. Only advanced after a
// successful push; a failed push leaves it untouched so the delta is
// retried on the next trigger.
func (s *Store) SetSyncCheckpoint(ctx context.Context, checkpointMs int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(syncCheckpointKey), checkpointMs)
}

// EnsureDeviceID returns this replica's stable device identifier,
// generating and persisting one on first use.
func (s *Store) EnsureDeviceID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var deviceID string
	err := s.get([]byte(deviceIDKey), &deviceID)
	if err == nil {
		return deviceID, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return "", err
	}

	deviceID = id.NewDeviceID()
	if err := s.set([]byte(deviceIDKey), deviceID); err != nil {
		return "", err
	}
	s.logger.Info("generated device id", "device_id", deviceID)
	return deviceID, nil
}
