package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"uksledger/pkg/domain"
)

// DefaultVisitLimit is the archive page size used when a query sets no limit.
const DefaultVisitLimit = 50

const (
	// MaxPendingPreviews bounds the pending-preview table; the oldest entry is
	// evicted when a new preview would exceed it.
	MaxPendingPreviews = 256
	// PreviewTTL is how long an uncommitted preview stays committable.
	PreviewTTL = 2 * time.Hour
)

// VisitQuery filters the visit archive.
type VisitQuery struct {
	// Term matches student name, complaint or treatment, case-insensitively.
	Term string
	// Limit caps the number of records returned. Zero selects DefaultVisitLimit
	// and a negative value returns everything.
	Limit int
}

type pendingPreview struct {
	record  domain.VisitRecord
	usage   []domain.UsageLine
	created time.Time
}

// PreviewVisit builds the record a commit would produce without touching
// inventory or persistence. The preview is remembered so it can later be
// committed by id.
func (s *Service) PreviewVisit(draft domain.VisitDraft) (domain.VisitRecord, error) {
	var record domain.VisitRecord
	err := s.run(context.Background(), "visit.preview", func() error {
		var err error
		record, err = s.buildVisit(s.store.Snapshot(), draft)
		return err
	})
	if err != nil {
		return domain.VisitRecord{}, err
	}
	s.rememberPreview(record, draft.Usage)
	return record, nil
}

func (s *Service) rememberPreview(record domain.VisitRecord, usage []domain.UsageLine) {
	now := s.clock.Now()
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	s.evictPreviewsLocked(now)
	if len(s.previews) >= MaxPendingPreviews {
		var oldest domain.ID
		var oldestAt time.Time
		for id, p := range s.previews {
			if oldest == "" || p.created.Before(oldestAt) {
				oldest, oldestAt = id, p.created
			}
		}
		delete(s.previews, oldest)
	}
	s.previews[record.ID] = pendingPreview{record: record, usage: cloneUsage(usage), created: now}
}

func (s *Service) evictPreviewsLocked(now time.Time) {
	for id, p := range s.previews {
		if now.Sub(p.created) > PreviewTTL {
			delete(s.previews, id)
		}
	}
}

func (s *Service) lookupPreview(id domain.ID) (pendingPreview, bool) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	s.evictPreviewsLocked(s.clock.Now())
	p, ok := s.previews[id]
	return p, ok
}

// PendingPreview returns a remembered preview.
func (s *Service) PendingPreview(id domain.ID) (domain.VisitRecord, bool) {
	p, ok := s.lookupPreview(id)
	return p.record, ok
}

// DiscardPreview forgets a preview. It reports whether one was pending.
func (s *Service) DiscardPreview(id domain.ID) bool {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	_, ok := s.previews[id]
	delete(s.previews, id)
	return ok
}

// CommitVisit deducts every resolvable usage line and prepends the visit
// record in one save. The record is derived from the aggregate being
// committed, so the summary always matches the deducted stock.
func (s *Service) CommitVisit(ctx context.Context, draft domain.VisitDraft) (domain.VisitRecord, error) {
	var record domain.VisitRecord
	err := s.run(ctx, "visit.commit", func() error {
		_, err := s.apply(ctx, "visit.commit", func(a domain.Aggregate) (domain.Aggregate, error) {
			var err error
			record, err = s.buildVisit(a, draft)
			if err != nil {
				return a, err
			}
			return domain.ApplyVisitCommit(a, record, draft.Usage)
		})
		return err
	})
	if err != nil {
		return domain.VisitRecord{}, err
	}
	s.logVisit(record)
	return record, nil
}

// CommitFromPreview commits a pending preview. record and usage must match
// what PreviewVisit returned and remembered, so the persisted record is the one
// that was shown and the deduction is the one it summarizes. Committing a
// record whose id is already in the ledger returns it unchanged without
// deducting again.
func (s *Service) CommitFromPreview(ctx context.Context, record domain.VisitRecord, usage []domain.UsageLine) (domain.VisitRecord, error) {
	committed := record
	err := s.run(ctx, "visit.commit_preview", func() error {
		if record.ID == "" {
			return domain.NewValidationError("id", "is required")
		}
		if existing, ok := s.store.Snapshot().FindVisit(record.ID); ok {
			committed = existing
			return nil
		}
		for i, line := range usage {
			if err := s.validateDraft(line); err != nil {
				var verr *domain.ValidationError
				if errors.As(err, &verr) {
					verr.Field = fmt.Sprintf("usage[%d].%s", i, verr.Field)
				}
				return err
			}
		}
		pending, ok := s.lookupPreview(record.ID)
		if !ok {
			return &domain.NotFoundError{Entity: domain.EntityVisit, ID: record.ID}
		}
		if pending.record != record || !sameUsage(pending.usage, usage) {
			return domain.NewValidationError("record", "does not match the pending preview "+record.ID.String())
		}
		_, err := s.apply(ctx, "visit.commit_preview", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.ApplyVisitCommit(a, pending.record, pending.usage)
		})
		if errors.Is(err, domain.ErrVisitExists) {
			if existing, ok := s.store.Snapshot().FindVisit(record.ID); ok {
				committed = existing
			}
			return nil
		}
		if err == nil {
			committed = pending.record
			s.logVisit(pending.record)
		}
		return err
	})
	if err != nil {
		return domain.VisitRecord{}, err
	}
	s.DiscardPreview(record.ID)
	return committed, nil
}

// CommitPreviewed commits a remembered preview by id.
func (s *Service) CommitPreviewed(ctx context.Context, id domain.ID) (domain.VisitRecord, error) {
	p, ok := s.lookupPreview(id)
	if !ok {
		if existing, found := s.store.Snapshot().FindVisit(id); found {
			return existing, nil
		}
		return domain.VisitRecord{}, &domain.NotFoundError{Entity: domain.EntityVisit, ID: id}
	}
	return s.CommitFromPreview(ctx, p.record, p.usage)
}

// EditVisit replaces the mutable fields of a stored visit. Inventory is never
// adjusted, even when the usage text changes.
func (s *Service) EditVisit(ctx context.Context, id domain.ID, edit domain.VisitEdit) (domain.VisitRecord, error) {
	var updated domain.VisitRecord
	err := s.run(ctx, "visit.edit", func() error {
		if edit.Timestamp != nil {
			ts := strings.TrimSpace(*edit.Timestamp)
			if _, err := time.Parse(domain.VisitTimestampLayout, ts); err != nil {
				return &domain.ValidationError{Field: "timestamp", Message: "must be formatted " + domain.VisitTimestampLayout, Err: err}
			}
			edit.Timestamp = &ts
		}
		agg, err := s.apply(ctx, "visit.edit", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.ApplyVisitEdit(a, id, edit)
		})
		if err != nil {
			return err
		}
		updated, _ = agg.FindVisit(id)
		return nil
	})
	if err != nil {
		return domain.VisitRecord{}, err
	}
	return updated, nil
}

// DeleteVisit removes a visit. Stock deducted by it stays deducted.
func (s *Service) DeleteVisit(ctx context.Context, id domain.ID) error {
	return s.run(ctx, "visit.delete", func() error {
		_, err := s.apply(ctx, "visit.delete", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.RemoveVisit(a, id)
		})
		return err
	})
}

// ListVisits returns archive entries, most recent first.
func (s *Service) ListVisits(q VisitQuery) []domain.VisitRecord {
	all := s.store.Snapshot().ListVisits()
	term := strings.ToLower(strings.TrimSpace(q.Term))
	limit := q.Limit
	if limit == 0 {
		limit = DefaultVisitLimit
	}
	out := make([]domain.VisitRecord, 0, min(len(all), max(limit, 0)))
	for _, v := range all {
		if limit > 0 && len(out) == limit {
			break
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(v.StudentName), term) &&
			!strings.Contains(strings.ToLower(v.Complaint), term) &&
			!strings.Contains(strings.ToLower(v.Treatment), term) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// buildVisit resolves a draft against agg into a record with a fresh id.
func (s *Service) buildVisit(agg domain.Aggregate, draft domain.VisitDraft) (domain.VisitRecord, error) {
	if draft.StudentID == "" {
		return domain.VisitRecord{}, domain.NewValidationError("student_id", "select a student")
	}
	if err := s.validateDraft(draft); err != nil {
		return domain.VisitRecord{}, err
	}
	student, ok := agg.FindStudent(draft.StudentID)
	if !ok {
		return domain.VisitRecord{}, domain.NewValidationError("student_id", "unknown student "+draft.StudentID.String())
	}
	complaint := draft.EffectiveComplaint()
	if complaint == "" {
		return domain.VisitRecord{}, domain.NewValidationError("other_complaint", "is required when complaint is Other")
	}
	ts, err := s.visitTimestamp(draft.Timestamp)
	if err != nil {
		return domain.VisitRecord{}, err
	}
	return domain.VisitRecord{
		ID:            s.ids.NewID(),
		Timestamp:     ts,
		StudentName:   student.Name,
		StudentClass:  student.Class,
		Complaint:     complaint,
		Treatment:     string(draft.Treatment),
		MedicineUsage: domain.SummarizeUsage(agg.Medicines, draft.Usage),
	}, nil
}

func (s *Service) visitTimestamp(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.clock.Now().Format(domain.VisitTimestampLayout), nil
	}
	if _, err := time.Parse(domain.VisitTimestampLayout, raw); err != nil {
		return "", &domain.ValidationError{Field: "timestamp", Message: "must be formatted " + domain.VisitTimestampLayout, Err: err}
	}
	return raw, nil
}

func (s *Service) logVisit(v domain.VisitRecord) {
	s.log.Info().
		Str("visit_id", v.ID.String()).
		Str("student", v.StudentName).
		Str("treatment", v.Treatment).
		Str("usage", v.MedicineUsage).
		Msg("visit committed")
}

func sameUsage(a, b []domain.UsageLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneUsage(in []domain.UsageLine) []domain.UsageLine {
	if in == nil {
		return nil
	}
	out := make([]domain.UsageLine, len(in))
	copy(out, in)
	return out
}
