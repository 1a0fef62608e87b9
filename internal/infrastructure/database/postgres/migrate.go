package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
)

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates any missing tables and indexes. The statements are
// idempotent, so it is safe to run on every start.
func ApplySchema(ctx context.Context, db DBPool, logger *slog.Logger) error {
	logger.Info("Applying database schema")
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		logger.Error("Failed to apply database schema", "error", err)
		return fmt.Errorf("%w: failed to apply schema: %w", apperrors.ErrDatabase, err)
	}
	return nil
}
