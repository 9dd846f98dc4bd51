package core

import (
	"context"
	"strings"

	"uksledger/pkg/domain"
)

// Authenticate compares the pair with the stored credentials by exact equality.
func (s *Service) Authenticate(ctx context.Context, username, password string) error {
	return s.run(ctx, "auth.login", func() error {
		if !s.store.Snapshot().Credentials.Matches(username, password) {
			s.log.Warn().Str("username", username).Msg("login rejected")
			return domain.ErrInvalidCredentials
		}
		return nil
	})
}

// ChangeCredentials replaces the admin login record.
func (s *Service) ChangeCredentials(ctx context.Context, creds domain.Credentials) error {
	return s.run(ctx, "auth.change", func() error {
		creds.Username = strings.TrimSpace(creds.Username)
		if err := requireText("username", creds.Username); err != nil {
			return err
		}
		if err := requireText("password", creds.Password); err != nil {
			return err
		}
		_, err := s.apply(ctx, "auth.change", func(a domain.Aggregate) (domain.Aggregate, error) {
			return domain.ReplaceCredentials(a, creds), nil
		})
		return err
	})
}
