package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

const timestampLayout = "20060102_150405"

// WriteFiles emits the CSV and HTML artifacts for a run into dir, with
// timestamped file names, and returns their paths.
func WriteFiles(dir string, report *domain.RunReport, at time.Time) (csvPath, htmlPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := at.UTC().Format(timestampLayout)
	csvPath = filepath.Join(dir, fmt.Sprintf("audit_%s.csv", stamp))
	htmlPath = filepath.Join(dir, fmt.Sprintf("audit_%s.html", stamp))

	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create csv file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()
	if err := WriteCSV(csvFile, report); err != nil {
		return "", "", err
	}

	htmlFile, err := os.Create(htmlPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create html file: %w", err)
	}
	defer func() { _ = htmlFile.Close() }()
	if err := WriteHTML(htmlFile, report); err != nil {
		return "", "", err
	}

	return csvPath, htmlPath, nil
}
