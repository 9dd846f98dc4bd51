package core

import (
	"context"
	"strings"
	"time"

	"uksledger/pkg/domain"
)

// RecordScreening registers a screening for a roster student, copying the
// student's name and class into the record. The date defaults to today.
func (s *Service) RecordScreening(ctx context.Context, draft domain.ScreeningDraft) (domain.ScreeningRecord, error) {
	var rec domain.ScreeningRecord
	err := s.run(ctx, "screening.record", func() error {
		if draft.StudentID == "" {
			return domain.NewValidationError("student_id", "select a student")
		}
		if err := s.validateDraft(draft); err != nil {
			return err
		}
		date := strings.TrimSpace(draft.Date)
		if date == "" {
			date = s.clock.Now().Format(domain.ScreeningDateLayout)
		} else if _, err := time.Parse(domain.ScreeningDateLayout, date); err != nil {
			return &domain.ValidationError{Field: "date", Message: "must be formatted " + domain.ScreeningDateLayout, Err: err}
		}
		_, err := s.apply(ctx, "screening.record", func(a domain.Aggregate) (domain.Aggregate, error) {
			student, ok := a.FindStudent(draft.StudentID)
			if !ok {
				return a, domain.NewValidationError("student_id", "unknown student "+draft.StudentID.String())
			}
			rec = domain.ScreeningRecord{
				ID:           s.ids.NewID(),
				Date:         date,
				StudentID:    student.ID,
				StudentName:  student.Name,
				StudentClass: student.Class,
				Result:       draft.Result,
				Notes:        strings.TrimSpace(draft.Notes),
				Examiner:     strings.TrimSpace(draft.Examiner),
			}
			return domain.ApplyScreeningRecord(a, rec), nil
		})
		return err
	})
	if err != nil {
		return domain.ScreeningRecord{}, err
	}
	s.log.Info().Str("screening_id", rec.ID.String()).Str("student", rec.StudentName).Str("result", string(rec.Result)).Msg("screening recorded")
	return rec, nil
}

// ListScreenings returns screenings, most recent first.
func (s *Service) ListScreenings() []domain.ScreeningRecord {
	return s.store.Snapshot().ListScreenings()
}
