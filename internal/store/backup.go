package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BackupTo writes a consistent snapshot of the database to dstPath using
// VACUUM INTO, which works with WAL enabled. dstPath must not exist.
func (s *SQLite) BackupTo(ctx context.Context, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return wrap("backup", err)
	}
	escaped := strings.ReplaceAll(dstPath, "'", "''")
	if _, err := s.sql.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s';", escaped)); err != nil {
		return wrap("backup", err)
	}
	return nil
}
