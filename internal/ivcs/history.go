package ivcs

import (
	"fmt"

	"ivcs-go/internal/database/sqlc"
)

// GetHistory returns the most recent recorded operations, newest first.
func (s *IVCSService) GetHistory(limit int) ([]*sqlc.Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
