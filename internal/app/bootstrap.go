package app

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema returns the CREATE TABLE script for dialect.
func Schema(dialect runtime.Dialect) (string, error) {
	b, err := schemaFS.ReadFile("schema/" + dialect.String() + ".sql")
	if err != nil {
		return "", fmt.Errorf("%w: no schema for dialect %s", runtime.ErrInvalidArgument, dialect)
	}
	return string(b), nil
}

// Bootstrap creates the application tables when they do not exist.
func Bootstrap(ctx context.Context, db *runtime.DB) error {
	script, err := Schema(db.Dialect())
	if err != nil {
		return err
	}

	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	db.Logger().Info("schema ready", zap.Stringer("dialect", db.Dialect()))
	return nil
}
