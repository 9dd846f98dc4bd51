package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"uksledger/internal/blob"
	"uksledger/pkg/domain"
)

// BackupContentType is the MIME type of exported backups.
const BackupContentType = "application/json"

const backupPrefix = "backups/"

// ErrNoBlobStore is returned by archive operations when no blob store is configured.
var ErrNoBlobStore = errors.New("no archive store configured")

// Backup is a serialised aggregate ready for download.
type Backup struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// Export serialises the full aggregate.
func (s *Service) Export(ctx context.Context) (Backup, error) {
	var b Backup
	err := s.run(ctx, "backup.export", func() error {
		payload, err := domain.EncodeAggregate(s.store.Snapshot())
		if err != nil {
			return err
		}
		b = Backup{
			Filename:    fmt.Sprintf("UKS_BACKUP_%s.json", s.clock.Now().Format(domain.ScreeningDateLayout)),
			ContentType: BackupContentType,
			Payload:     payload,
		}
		return nil
	})
	return b, err
}

// Restore replaces the aggregate wholesale with a backup document. A document
// lacking credentials or students is rejected with a FormatError and the
// committed aggregate is left as it was.
func (s *Service) Restore(ctx context.Context, payload []byte) (domain.Aggregate, error) {
	var agg domain.Aggregate
	err := s.run(ctx, "backup.restore", func() error {
		decoded, err := domain.DecodeAggregate(payload)
		if err != nil {
			return err
		}
		if err := s.store.Save(ctx, decoded); err != nil {
			return err
		}
		s.previewMu.Lock()
		clear(s.previews)
		s.previewMu.Unlock()
		agg = decoded
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("restore rejected")
		return domain.Aggregate{}, err
	}
	s.observeStock(agg)
	s.log.Info().Int("students", len(agg.Students)).Int("visits", len(agg.Visits)).Msg("backup restored")
	return agg.Clone(), nil
}

// Reset discards every record and restores the built-in default aggregate.
func (s *Service) Reset(ctx context.Context) error {
	err := s.run(ctx, "backup.reset", func() error {
		return s.store.Reset(ctx)
	})
	if err != nil {
		return err
	}
	s.previewMu.Lock()
	clear(s.previews)
	s.previewMu.Unlock()
	s.observeStock(s.store.Snapshot())
	s.log.Warn().Msg("ledger reset to defaults")
	return nil
}

// ArchiveBackup stores an export in the blob store under backups/<date>/.
func (s *Service) ArchiveBackup(ctx context.Context) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "backup.archive", func() error {
		if s.blobs == nil {
			return ErrNoBlobStore
		}
		b, err := s.Export(ctx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		key := path.Join(backupPrefix+now.Format(domain.ScreeningDateLayout), s.ids.NewID().String()+"-"+b.Filename)
		info, err = s.blobs.Put(ctx, key, bytes.NewReader(b.Payload), blob.PutOptions{
			ContentType: b.ContentType,
			Metadata:    map[string]string{"created": now.UTC().Format("20060102T150405Z")},
		})
		return err
	})
	if err != nil {
		return blob.Info{}, err
	}
	s.log.Info().Str("key", info.Key).Int64("size", info.Size).Msg("backup archived")
	return info, nil
}

// ListBackups lists archived backups in key order.
func (s *Service) ListBackups(ctx context.Context) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, ErrNoBlobStore
	}
	return s.blobs.List(ctx, backupPrefix)
}

// RestoreArchived restores an archived backup by key.
func (s *Service) RestoreArchived(ctx context.Context, key string) (domain.Aggregate, error) {
	if s.blobs == nil {
		return domain.Aggregate{}, ErrNoBlobStore
	}
	if !strings.HasPrefix(key, backupPrefix) {
		return domain.Aggregate{}, domain.NewValidationError("key", "must name an archived backup")
	}
	_, rc, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.Aggregate{}, &domain.NotFoundError{Entity: "backup", ID: domain.ID(key)}
	}
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("read archive: %w", err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("read archive: %w", err)
	}
	return s.Restore(ctx, payload)
}
