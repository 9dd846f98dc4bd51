package core

import (
	"context"

	"uksledger/internal/permit"
	"uksledger/pkg/domain"
)

// Permit renders the release permit for a committed visit. Only visits that
// sent the student home are eligible.
func (s *Service) Permit(ctx context.Context, visitID domain.ID) (permit.Document, error) {
	var doc permit.Document
	err := s.run(ctx, "permit.render", func() error {
		record, ok := s.store.Snapshot().FindVisit(visitID)
		if !ok {
			return &domain.NotFoundError{Entity: domain.EntityVisit, ID: visitID}
		}
		var err error
		doc, err = s.renderPermit(record)
		return err
	})
	return doc, err
}

// PreviewPermit renders the permit for a pending preview, before it is committed.
func (s *Service) PreviewPermit(id domain.ID) (permit.Document, error) {
	record, ok := s.PendingPreview(id)
	if !ok {
		return permit.Document{}, &domain.NotFoundError{Entity: domain.EntityVisit, ID: id}
	}
	return s.renderPermit(record)
}

func (s *Service) renderPermit(record domain.VisitRecord) (permit.Document, error) {
	if !permit.Eligible(record) {
		return permit.Document{}, domain.NewValidationError("treatment", "permit is only issued for "+string(domain.TreatmentDischarge))
	}
	return permit.Render(record, s.clock.Now(), s.letterhead), nil
}
