package remediate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// BackupWriter captures the current object before a destructive call. The
// backup is advisory: a write failure is recorded but never blocks the
// action, and the side file is the only recovery path afterwards.
type BackupWriter interface {
	Write(ctx context.Context, finding domain.Finding) (string, error)
}

type fileBackup struct {
	dir string
}

func NewFileBackup(dir string) BackupWriter {
	return &fileBackup{dir: dir}
}

func (b *fileBackup) Write(_ context.Context, finding domain.Finding) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", finding.ID, time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(b.dir, name)

	payload, err := json.MarshalIndent(finding.Resource, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize resource: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return path, nil
}
