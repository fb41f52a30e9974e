package sqlite

import "context"

// ExecRaw runs a statement directly against the database, bypassing the
// typed queries.
func (s *Store) ExecRaw(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
