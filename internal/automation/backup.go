package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fieldserve/backend/internal/models"
)

const backupVersion = "1.0"

// Backup snapshots the four primary collections under a time-keyed
// document and points meta/latest_auto_backup at it. Snapshots are never
// rotated or pruned here.
func (s *Scheduler) Backup(ctx context.Context) (models.BackupSnapshot, string, error) {
	customers, err := s.Data.Customers(ctx, false)
	if err != nil {
		return models.BackupSnapshot{}, "", fmt.Errorf("backup customers: %w", err)
	}
	tickets, err := s.Data.Tickets(ctx, false)
	if err != nil {
		return models.BackupSnapshot{}, "", fmt.Errorf("backup tickets: %w", err)
	}
	payments, err := s.Data.Payments(ctx, false)
	if err != nil {
		return models.BackupSnapshot{}, "", fmt.Errorf("backup payments: %w", err)
	}
	technicians, err := s.Data.Technicians(ctx, false)
	if err != nil {
		return models.BackupSnapshot{}, "", fmt.Errorf("backup technicians: %w", err)
	}

	now := s.now().UTC()
	stamp := now.Format(time.RFC3339)
	snap := models.BackupSnapshot{
		Timestamp:  stamp,
		Version:    backupVersion,
		TotalItems: len(customers) + len(tickets) + len(payments) + len(technicians),
		Collections: models.BackupCollections{
			Customers:   models.BackupCollection{Count: len(customers), Data: customers, LastBackup: stamp},
			Tickets:     models.BackupCollection{Count: len(tickets), Data: tickets, LastBackup: stamp},
			Payments:    models.BackupCollection{Count: len(payments), Data: payments, LastBackup: stamp},
			Technicians: models.BackupCollection{Count: len(technicians), Data: technicians, LastBackup: stamp},
		},
	}

	key := s.backupKey(now)
	gw := s.Data.Gateway()
	if err := gw.Set(ctx, "backups/"+key, snap); err != nil {
		return models.BackupSnapshot{}, "", fmt.Errorf("write backup %s: %w", key, err)
	}
	if err := gw.Set(ctx, "meta/latest_auto_backup", map[string]string{
		"key": key, "timestamp": stamp,
	}); err != nil {
		s.logf("backup pointer update failed: %v", err)
	}

	s.logf("backup %s written, %d items", key, snap.TotalItems)
	return snap, key, nil
}

// backupKey stamps the snapshot with epoch milliseconds. The tick's backup
// task and the backup loop can both fire inside one millisecond on Start,
// so the stamp is bumped past the last issued key instead of reusing it.
func (s *Scheduler) backupKey(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= s.lastBackupMS {
		ms = s.lastBackupMS + 1
	}
	s.lastBackupMS = ms
	return fmt.Sprintf("auto_backup_%d", ms)
}

type BackupInfo struct {
	Key        string `json:"key"`
	Timestamp  string `json:"timestamp"`
	TotalItems int    `json:"totalItems"`
}

// ListBackups returns backup metadata newest first.
func (s *Scheduler) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	raw, err := s.Data.Gateway().Get(ctx, "backups")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var snaps map[string]models.BackupSnapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		return nil, fmt.Errorf("decode backups: %w", err)
	}
	infos := make([]BackupInfo, 0, len(snaps))
	for key, snap := range snaps {
		infos = append(infos, BackupInfo{Key: key, Timestamp: snap.Timestamp, TotalItems: snap.TotalItems})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key > infos[j].Key })
	return infos, nil
}

// GetBackup returns one snapshot verbatim, or store.ErrNotFound semantics
// via a nil payload when the key does not exist.
func (s *Scheduler) GetBackup(ctx context.Context, key string) (json.RawMessage, error) {
	return s.Data.Gateway().Get(ctx, "backups/"+key)
}
