package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jsphweid/staffmidi/util"
)

func NewExportId() string {
	return uuid.New().String()
}

func ExportName(exportId string) string {
	return exportId + ".mid"
}

// Save writes data to dir/name, creating dir if needed, and returns the path.
func Save(dir string, name string, data []byte) (string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write failed for file %s: %w", path, err)
	}
	return path, nil
}
