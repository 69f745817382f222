package packaging

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"apexci/internal/errors"
)

// ManifestFile is the package manifest at the package root.
const ManifestFile = "package.xml"

// entry is one file of a package. Directory packages carry their content, zip packages the
// original archive entry so it can be copied without recompression. Folder entries of a zip
// are kept so the rebuilt archive has the same layout.
type entry struct {
	name string
	data []byte
	file *zip.File
	dir  bool
}

// archive is a loaded package. prefix is the folder holding package.xml inside a zip, such as
// "src/", or empty.
type archive struct {
	path    string
	raw     []byte
	entries []entry
	prefix  string
	zipped  bool
}

func loadDir(fs afero.Fs, dir string) (*archive, error) {
	a := &archive{path: dir}

	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		a.entries = append(a.entries, entry{name: filepath.ToSlash(rel), data: data})

		return nil
	})
	if err != nil {
		return nil, &PackagingError{Op: "read", Path: dir, Err: err}
	}

	sort.Slice(a.entries, func(i, j int) bool { return a.entries[i].name < a.entries[j].name })

	return a, nil
}

func loadZip(fs afero.Fs, path string) (*archive, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &PackagingError{Op: "read", Path: path, Err: err}
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, &PackagingError{Op: "open", Path: path, Err: err}
	}

	a := &archive{path: path, raw: raw, zipped: true}
	for _, f := range zr.File {
		a.entries = append(a.entries, entry{name: f.Name, file: f, dir: f.FileInfo().IsDir()})
	}
	a.prefix = manifestPrefix(a.entries)

	return a, nil
}

// manifestPrefix finds the folder of package.xml: the archive root, or a single top-level folder.
func manifestPrefix(entries []entry) string {
	prefix := ""
	for _, e := range entries {
		if e.dir {
			continue
		}
		if e.name == ManifestFile {
			return ""
		}
		if ok, _ := doublestar.Match("*/"+ManifestFile, e.name); ok && prefix == "" {
			prefix = strings.TrimSuffix(e.name, ManifestFile)
		}
	}

	return prefix
}

func (a *archive) find(name string) *entry {
	for i := range a.entries {
		if !a.entries[i].dir && a.entries[i].name == a.prefix+name {
			return &a.entries[i]
		}
	}

	return nil
}

func (a *archive) read(e *entry) ([]byte, error) {
	if e.file == nil {
		return e.data, nil
	}

	rc, err := e.file.Open()
	if err != nil {
		return nil, &PackagingError{Op: "read", Path: a.path + "!" + e.name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &PackagingError{Op: "read", Path: a.path + "!" + e.name, Err: err}
	}

	return data, nil
}

// hasClassesFolder reports whether any file lives below classes/.
func (a *archive) hasClassesFolder() bool {
	for _, e := range a.entries {
		if !e.dir && strings.HasPrefix(e.name, a.prefix+"classes/") {
			return true
		}
	}

	return false
}

// classNames returns the base names of the .cls files in classes/, sorted.
func (a *archive) classNames() []string {
	var names []string
	for _, e := range a.entries {
		if e.dir {
			continue
		}
		rel := strings.TrimPrefix(e.name, a.prefix)
		if ok, _ := doublestar.Match("classes/*.cls", rel); ok && strings.HasPrefix(e.name, a.prefix) {
			names = append(names, strings.TrimSuffix(filepath.Base(rel), ".cls"))
		}
	}
	sort.Strings(names)

	return names
}

// write builds a new zip. replaced maps entry names to new content; added entries are written
// after the originals.
func (a *archive) write(replaced map[string][]byte, added []entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range a.entries {
		if data, ok := replaced[e.name]; ok {
			if err := writeEntry(zw, e.name, data); err != nil {
				return nil, err
			}
			continue
		}
		if e.file != nil {
			if err := zw.Copy(e.file); err != nil {
				return nil, errors.WithStackTrace(err)
			}
			continue
		}
		if err := writeEntry(zw, e.name, e.data); err != nil {
			return nil, err
		}
	}

	for _, e := range added {
		if err := writeEntry(zw, e.name, e.data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.WithStackTrace(err)
	}

	return buf.Bytes(), nil
}

// writeEntry adds a deflated file without a modification time so equal input gives equal bytes.
func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return errors.WithStackTrace(err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.WithStackTrace(err)
	}

	return nil
}

// ZipDir zips every file below dir in name order.
func ZipDir(fs afero.Fs, dir string) ([]byte, error) {
	a, err := loadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	data, err := a.write(nil, nil)
	if err != nil {
		return nil, &PackagingError{Op: "zip", Path: dir, Err: err}
	}

	return data, nil
}
