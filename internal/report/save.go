package report

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"apexci/internal/errors"
	"apexci/internal/tag"
)

// Save writes doc to dir/name. The document is rendered completely before anything is written
// and lands under a temporary name first, so a failed save never leaves a partial report.
func Save(fs afero.Fs, dir, name string, doc *tag.Document) (string, error) {
	data := doc.Bytes()

	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return "", errors.Errorf("creating report directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		_ = fs.Remove(tmp)
		return "", errors.Errorf("writing report %s: %w", path, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return "", errors.Errorf("writing report %s: %w", path, err)
	}

	return path, nil
}
