package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupPrefix and backupExt name the files written by Backup.
const (
	backupPrefix = "backup_"
	backupExt    = ".db"
)

// BackupInfo describes one backup file.
type BackupInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Backup writes a consistent copy of the database into dir and returns its
// path. VACUUM INTO runs on the live connection, so it does not block
// readers and captures committed data only.
func (db *DB) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + time.Now().UTC().Format("20060102_150405.000") + backupExt
	path := filepath.Join(dir, name)

	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	if err := VerifyBackup(path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}

	return path, nil
}

// VerifyBackup checks that path is an intact SQLite database.
func VerifyBackup(path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup as database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var result string
	if err := conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check backup: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

// ListBackups returns the backups in dir, newest first. A missing directory
// has no backups.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || filepath.Ext(name) != backupExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Names embed the UTC timestamp, so they sort chronologically
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// PruneBackups deletes all but the newest keep backups in dir and returns
// how many were removed.
func PruneBackups(dir string, keep int) (int, error) {
	backups, err := ListBackups(dir)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}

	removed := 0
	for i := keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", backups[i].Name, err)
		}
		removed++
	}
	return removed, nil
}
