package core

import (
	"context"
	"strings"

	"uksledger/pkg/domain"
)

// AddMedicine appends a catalog entry with a fresh id. Duplicate names are allowed.
func (s *Service) AddMedicine(ctx context.Context, draft domain.MedicineDraft) (domain.Medicine, error) {
	var created domain.Medicine
	err := s.run(ctx, "medicine.add", func() error {
		draft.Name = strings.TrimSpace(draft.Name)
		if err := s.validateDraft(draft); err != nil {
			return err
		}
		created = domain.Medicine{ID: s.ids.NewID(), Name: draft.Name, Stock: draft.Stock}
		_, err := s.apply(ctx, "medicine.add", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.AddMedicine(a, created), nil
		})
		return err
	})
	if err != nil {
		return domain.Medicine{}, err
	}
	s.log.Info().Str("medicine_id", created.ID.String()).Str("name", created.Name).Int("stock", created.Stock).Msg("medicine added")
	return created, nil
}

// UpdateMedicine replaces the name and stock of an existing entry, e.g. on restock.
func (s *Service) UpdateMedicine(ctx context.Context, id domain.ID, draft domain.MedicineDraft) (domain.Medicine, error) {
	updated := domain.Medicine{ID: id}
	err := s.run(ctx, "medicine.update", func() error {
		draft.Name = strings.TrimSpace(draft.Name)
		if err := s.validateDraft(draft); err != nil {
			return err
		}
		updated.Name, updated.Stock = draft.Name, draft.Stock
		_, err := s.apply(ctx, "medicine.update", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.UpdateMedicine(a, updated)
		})
		return err
	})
	if err != nil {
		return domain.Medicine{}, err
	}
	s.log.Info().Str("medicine_id", id.String()).Int("stock", updated.Stock).Msg("medicine updated")
	return updated, nil
}

// RemoveMedicine drops a catalog entry. Visit history is untouched.
func (s *Service) RemoveMedicine(ctx context.Context, id domain.ID) error {
	return s.run(ctx, "medicine.remove", func() error {
		_, err := s.apply(ctx, "medicine.remove", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.RemoveMedicine(a, id)
		})
		if err == nil {
			s.log.Info().Str("medicine_id", id.String()).Msg("medicine removed")
		}
		return err
	})
}

// ListMedicines returns the catalog in insertion order.
func (s *Service) ListMedicines() []domain.Medicine {
	return s.store.Snapshot().ListMedicines()
}

// CriticalMedicines returns entries below the critical stock threshold.
func (s *Service) CriticalMedicines() []domain.Medicine {
	return s.store.Snapshot().CriticalMedicines()
}
