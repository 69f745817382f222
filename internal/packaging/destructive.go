package packaging

import (
	"archive/zip"
	"bytes"
	"sort"
	"strings"

	"github.com/google/uuid"

	"apexci/internal/errors"
	"apexci/internal/tag"
)

// DestructiveChangesFile lists the components a deploy deletes.
const DestructiveChangesFile = "destructiveChanges.xml"

// ClassNamePrefix starts every generated class name.
const ClassNamePrefix = "ApexciCoverage"

// RandomClassName returns a class name made of ClassNamePrefix and random hex digits. Apex
// names are limited to 40 characters.
func RandomClassName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ClassNamePrefix + id[:20]
}

// DestructivePackage returns a zip that deletes className: an empty versioned package.xml and
// a destructiveChanges.xml naming the class.
func DestructivePackage(className, apiVersion string) ([]byte, error) {
	if className == "" {
		return nil, errors.New("destructive package: no class name")
	}

	files := []entry{
		{name: ManifestFile, data: tag.NewXMLDocument(newManifest(apiVersion, nil)).Bytes()},
		{name: DestructiveChangesFile, data: tag.NewXMLDocument(
			newManifest(apiVersion, map[string][]string{ApexClassType: {className}}),
		).Bytes()},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		if err := writeEntry(zw, f.name, f.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.WithStackTrace(err)
	}

	return buf.Bytes(), nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
