package core

import (
	"context"
	"strings"

	"uksledger/pkg/domain"
)

// AddStudent appends a roster entry.
func (s *Service) AddStudent(ctx context.Context, draft domain.StudentDraft) (domain.Student, error) {
	var created domain.Student
	err := s.run(ctx, "student.add", func() error {
		draft = trimStudent(draft)
		if err := s.validateDraft(draft); err != nil {
			return err
		}
		created = domain.Student{ID: s.ids.NewID(), Name: draft.Name, Class: draft.Class}
		_, err := s.apply(ctx, "student.add", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.AddStudent(a, created), nil
		})
		return err
	})
	if err != nil {
		return domain.Student{}, err
	}
	return created, nil
}

// UpdateStudent edits a roster entry. Records that already copied the old
// name and class keep them.
func (s *Service) UpdateStudent(ctx context.Context, id domain.ID, draft domain.StudentDraft) (domain.Student, error) {
	updated := domain.Student{ID: id}
	err := s.run(ctx, "student.update", func() error {
		draft = trimStudent(draft)
		if err := s.validateDraft(draft); err != nil {
			return err
		}
		updated.Name, updated.Class = draft.Name, draft.Class
		_, err := s.apply(ctx, "student.update", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.UpdateStudent(a, updated)
		})
		return err
	})
	if err != nil {
		return domain.Student{}, err
	}
	return updated, nil
}

// RemoveStudent drops a roster entry without touching visits or screenings.
func (s *Service) RemoveStudent(ctx context.Context, id domain.ID) error {
	return s.run(ctx, "student.remove", func() error {
		_, err := s.apply(ctx, "student.remove", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.RemoveStudent(a, id)
		})
		return err
	})
}

// ListStudents returns roster entries whose name or class contains term,
// case-insensitively. An empty term returns the whole roster.
func (s *Service) ListStudents(term string) []domain.Student {
	all := s.store.Snapshot().ListStudents()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return all
	}
	out := make([]domain.Student, 0, len(all))
	for _, st := range all {
		if strings.Contains(strings.ToLower(st.Name), term) || strings.Contains(strings.ToLower(st.Class), term) {
			out = append(out, st)
		}
	}
	return out
}

// Classes returns the sorted distinct class labels on the roster.
func (s *Service) Classes() []string {
	return s.store.Snapshot().Classes()
}

func trimStudent(d domain.StudentDraft) domain.StudentDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Class = strings.TrimSpace(d.Class)
	return d
}
