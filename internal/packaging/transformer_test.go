package packaging

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexci/internal/config"
	"apexci/internal/logging"
	"apexci/internal/tag"
)

const wildcardManifest = `<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
    <types>
        <members>*</members>
        <name>ApexClass</name>
    </types>
    <types>
        <members>Account</members>
        <name>CustomObject</name>
    </types>
    <version>59.0</version>
</Package>
`

const explicitManifest = `<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
    <types>
        <members>Alpha</members>
        <members>Beta</members>
        <name>ApexClass</name>
    </types>
</Package>
`

var specifiedTests = Options{
	TestLevel:       config.TestLevelRunSpecifiedTests,
	EnforceCoverage: true,
	RunTests:        []string{"ExistingTest"},
	APIVersion:      "58.0",
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(content)
	}

	return files
}

func zipOf(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func members(t *testing.T, manifestXML, typeName string) []string {
	t.Helper()
	root, err := tag.Parse(strings.NewReader(manifestXML))
	require.NoError(t, err)

	var names []string
	for _, types := range root.Elements("types") {
		if types.FirstElement("name").TextContent() != typeName {
			continue
		}
		for _, m := range types.Elements("members") {
			names = append(names, m.TextContent())
		}
	}

	return names
}

func fixedName(names ...string) func() string {
	return func() string {
		name := names[0]
		if len(names) > 1 {
			names = names[1:]
		}
		return name
	}
}

func newTestTransformer(fs afero.Fs, names ...string) *Transformer {
	return &Transformer{FS: fs, NewName: fixedName(names...), Log: logging.Discard()}
}

func TestTransformDirectoryWithWildcard(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/pkg/package.xml":                wildcardManifest,
		"/pkg/classes/Alpha.cls":          "public class Alpha {}",
		"/pkg/classes/Alpha.cls-meta.xml": "<ApexClass/>",
		"/pkg/classes/Beta.cls":           "public class Beta {}",
		"/pkg/classes/Gamma.cls":          "public class Gamma {}",
		"/pkg/objects/Account.obj":        "<CustomObject/>",
	})

	res, err := newTestTransformer(fs, "GeneratedTest").Transform(DirSource("/pkg"), specifiedTests)
	require.NoError(t, err)

	assert.Equal(t, StateModified, res.State)
	assert.Equal(t, "GeneratedTest", res.ClassName)
	assert.Equal(t, []string{"ExistingTest", "GeneratedTest"}, res.RunTests)

	files := unzip(t, res.Zip)
	assert.Equal(t, []string{"GeneratedTest", "Alpha", "Beta", "Gamma"}, members(t, files["package.xml"], ApexClassType))
	assert.Equal(t, []string{"Account"}, members(t, files["package.xml"], "CustomObject"))

	body := files["classes/GeneratedTest.cls"]
	assert.Contains(t, body, "@IsTest\nprivate class GeneratedTest {")
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		assert.Contains(t, body, "Type.forName('"+name+"');")
	}
	assert.Contains(t, body, "catch (Exception e)")

	meta, err := tag.Parse(strings.NewReader(files["classes/GeneratedTest.cls-meta.xml"]))
	require.NoError(t, err)
	assert.Equal(t, "59.0", meta.FirstElement("apiVersion").TextContent())
	assert.Equal(t, "Active", meta.FirstElement("status").TextContent())

	assert.Equal(t, "public class Beta {}", files["classes/Beta.cls"])
	assert.Len(t, files, 8)
}

func TestTransformZipWithFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := map[string]string{
		"src/package.xml":       explicitManifest,
		"src/classes/Alpha.cls": "public class Alpha {}",
		"src/classes/Beta.cls":  "public class Beta {}",
	}
	data := zipOf(t, original, "src/package.xml", "src/classes/Alpha.cls", "src/classes/Beta.cls")
	require.NoError(t, afero.WriteFile(fs, "/build/pkg.zip", data, 0o644))

	res, err := newTestTransformer(fs, "GeneratedTest").Transform(ZipSource("/build/pkg.zip"), specifiedTests)
	require.NoError(t, err)
	assert.Equal(t, StateModified, res.State)

	files := unzip(t, res.Zip)
	assert.Equal(t, []string{"GeneratedTest", "Alpha", "Beta"}, members(t, files["src/package.xml"], ApexClassType))
	assert.Equal(t, original["src/classes/Alpha.cls"], files["src/classes/Alpha.cls"])
	assert.Contains(t, files, "src/classes/GeneratedTest.cls")

	meta, err := tag.Parse(strings.NewReader(files["src/classes/GeneratedTest.cls-meta.xml"]))
	require.NoError(t, err)
	assert.Equal(t, "58.0", meta.FirstElement("apiVersion").TextContent())
}

func TestTransformSkips(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		mutate func(*Options)
	}{
		{
			name:   "test level",
			files:  map[string]string{"/pkg/package.xml": wildcardManifest, "/pkg/classes/A.cls": "a"},
			mutate: func(o *Options) { o.TestLevel = config.TestLevelRunLocalTests },
		},
		{
			name:   "no enforcement",
			files:  map[string]string{"/pkg/package.xml": wildcardManifest, "/pkg/classes/A.cls": "a"},
			mutate: func(o *Options) { o.EnforceCoverage = false },
		},
		{
			name:  "no manifest",
			files: map[string]string{"/pkg/classes/A.cls": "a"},
		},
		{
			name:  "no apex classes",
			files: map[string]string{"/pkg/package.xml": `<Package><types><members>X</members><name>CustomObject</name></types></Package>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, tt.files)
			opts := specifiedTests
			if tt.mutate != nil {
				tt.mutate(&opts)
			}

			res, err := newTestTransformer(fs, "GeneratedTest").Transform(DirSource("/pkg"), opts)
			require.NoError(t, err)

			assert.Equal(t, StateSkipped, res.State)
			assert.NotEmpty(t, res.SkipReason)
			assert.Empty(t, res.ClassName)
			assert.Equal(t, []string{"ExistingTest"}, res.RunTests)

			plain, err := ZipDir(fs, "/pkg")
			require.NoError(t, err)
			assert.Equal(t, plain, res.Zip)
		})
	}
}

func TestTransformSkipIsRepeatable(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/pkg/classes/B.cls": "b",
		"/pkg/classes/A.cls": "a",
		"/pkg/README.md":     "readme",
	})
	tr := newTestTransformer(fs, "GeneratedTest")

	first, err := tr.Transform(DirSource("/pkg"), specifiedTests)
	require.NoError(t, err)
	second, err := tr.Transform(DirSource("/pkg"), specifiedTests)
	require.NoError(t, err)
	plain, err := ZipDir(fs, "/pkg")
	require.NoError(t, err)

	assert.Equal(t, plain, first.Zip)
	assert.Equal(t, plain, second.Zip)
	assert.Equal(t, map[string]string{"README.md": "readme", "classes/A.cls": "a", "classes/B.cls": "b"}, unzip(t, plain))
}

func TestTransformZipWithoutClassesFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := zipOf(t, map[string]string{"package.xml": wildcardManifest}, "package.xml")
	require.NoError(t, afero.WriteFile(fs, "/pkg.zip", data, 0o644))

	res, err := newTestTransformer(fs, "GeneratedTest").Transform(ZipSource("/pkg.zip"), specifiedTests)
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, res.State)
	assert.Equal(t, data, res.Zip)
}

func TestTransformZipKeepsFolderEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := map[string]string{"package.xml": explicitManifest, "classes/A.cls": "public class A {}"}
	data := zipOf(t, original, "classes/", "package.xml", "classes/A.cls")
	require.NoError(t, afero.WriteFile(fs, "/pkg.zip", data, 0o644))

	res, err := newTestTransformer(fs, "GeneratedTest").Transform(ZipSource("/pkg.zip"), specifiedTests)
	require.NoError(t, err)
	assert.Equal(t, StateModified, res.State)

	files := unzip(t, res.Zip)
	assert.Contains(t, files, "classes/")
	assert.Contains(t, files["classes/GeneratedTest.cls"], "Type.forName('A');")
	assert.NotContains(t, files["classes/GeneratedTest.cls"], "Type.forName('');")
	assert.Equal(t, original["classes/A.cls"], files["classes/A.cls"])

	onlyFolder := zipOf(t, map[string]string{"package.xml": wildcardManifest}, "classes/", "package.xml")
	require.NoError(t, afero.WriteFile(fs, "/empty.zip", onlyFolder, 0o644))
	res, err = newTestTransformer(fs, "GeneratedTest").Transform(ZipSource("/empty.zip"), specifiedTests)
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, res.State)
}

func TestTransformKeepsManifestComments(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/pkg/package.xml": `<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
    <!-- keep me -->
    <types>
        <members>Alpha</members>
        <name>ApexClass</name>
    </types>
</Package>
`,
		"/pkg/classes/Alpha.cls": "a",
	})

	res, err := newTestTransformer(fs, "GeneratedTest").Transform(DirSource("/pkg"), specifiedTests)
	require.NoError(t, err)

	manifest := unzip(t, res.Zip)["package.xml"]
	assert.Contains(t, manifest, "<!-- keep me -->")
	assert.Equal(t, []string{"GeneratedTest", "Alpha"}, members(t, manifest, ApexClassType))
}

func TestTransformPrefixedManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/pkg/package.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sf:Package xmlns:sf="http://soap.sforce.com/2006/04/metadata">
    <sf:types>
        <sf:members>Alpha</sf:members>
        <sf:name>ApexClass</sf:name>
    </sf:types>
    <sf:version>59.0</sf:version>
</sf:Package>
`,
		"/pkg/classes/Alpha.cls": "a",
	})

	res, err := newTestTransformer(fs, "GeneratedTest").Transform(DirSource("/pkg"), specifiedTests)
	require.NoError(t, err)
	assert.Equal(t, StateModified, res.State)
	assert.Equal(t, "59.0", res.APIVersion)

	manifest := unzip(t, res.Zip)["package.xml"]
	assert.Contains(t, manifest, `<sf:Package xmlns:sf="http://soap.sforce.com/2006/04/metadata">`)
	assert.Contains(t, manifest, "<sf:members>GeneratedTest</sf:members>\n        <sf:members>Alpha</sf:members>")
}

func TestUniqueNameRetriesCollisions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/pkg/package.xml":       explicitManifest,
		"/pkg/classes/Alpha.cls": "a",
		"/pkg/classes/Beta.cls":  "b",
	})

	res, err := newTestTransformer(fs, "Alpha", "BETA", "beta", "Fresh").Transform(DirSource("/pkg"), specifiedTests)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", res.ClassName)
}

func TestTransformReadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/broken.zip", []byte("not a zip"), 0o644))
	tr := newTestTransformer(fs, "GeneratedTest")

	var pkgErr *PackagingError
	_, err := tr.Transform(ZipSource("/broken.zip"), specifiedTests)
	require.ErrorAs(t, err, &pkgErr)
	assert.Equal(t, "open", pkgErr.Op)

	_, err = tr.Transform(ZipSource("/missing.zip"), specifiedTests)
	require.ErrorAs(t, err, &pkgErr)

	_, err = tr.Transform(DirSource("/missing"), specifiedTests)
	require.ErrorAs(t, err, &pkgErr)

	writeFiles(t, fs, map[string]string{"/bad/package.xml": "<Package><types>", "/bad/classes/A.cls": "a"})
	_, err = tr.Transform(DirSource("/bad"), specifiedTests)
	require.ErrorAs(t, err, &pkgErr)
	assert.Equal(t, "parse", pkgErr.Op)
}

func TestRandomClassName(t *testing.T) {
	a, b := RandomClassName(), RandomClassName()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, ClassNamePrefix))
	assert.LessOrEqual(t, len(a), 40)
}

func TestDestructivePackage(t *testing.T) {
	data, err := DestructivePackage("GeneratedTest", "59.0")
	require.NoError(t, err)

	files := unzip(t, data)
	require.Len(t, files, 2)

	pkg, err := tag.Parse(strings.NewReader(files[ManifestFile]))
	require.NoError(t, err)
	assert.Empty(t, pkg.Elements("types"))
	assert.Equal(t, "59.0", pkg.FirstElement("version").TextContent())

	assert.Equal(t, []string{"GeneratedTest"}, members(t, files[DestructiveChangesFile], ApexClassType))

	_, err = DestructivePackage("", "59.0")
	assert.Error(t, err)
}

func TestSourceFromConfig(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = "/work"
	assert.Equal(t, DirSource("/work/src"), SourceFromConfig(cfg))

	cfg.DeployRoot = ""
	cfg.ZipFile = "dist/pkg.zip"
	assert.Equal(t, ZipSource("/work/dist/pkg.zip"), SourceFromConfig(cfg))
}
