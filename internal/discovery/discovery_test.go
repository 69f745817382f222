package discovery

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexci/internal/config"
)

const accountTest = `@IsTest
private class AccountTest {
    @TestSetup
    static void setup() {}

    @IsTest
    static void createsAccount() {
        System.assert(true);
    }

    // @IsTest static void commentedOut() {}

    static testMethod void legacyUpdate() {}

    @isTest(SeeAllData=true)
    public static void readsOrgData() {}

    private static Account helper() { return null; }
}
`

const accountService = `public with sharing class AccountService {
    public void run() {}
}
`

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
}

func TestParser_IsTestClass(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"annotated class", accountTest, true},
		{"regular class", accountService, false},
		{"modifiers between annotation and class", "@IsTest(SeeAllData=false)\nglobal without sharing class X {}", true},
		{"commented annotation", "/* @IsTest */ public class X {}", false},
		{"annotated method only", "public class X {\n @IsTest static void t() {}\n}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.IsTestClass([]byte(tt.content)))
		})
	}
}

func TestParser_TestMethods(t *testing.T) {
	p := NewParser()

	assert.Equal(t, []string{"createsAccount", "legacyUpdate", "readsOrgData"}, p.TestMethods([]byte(accountTest)))
	assert.Empty(t, p.TestMethods([]byte(accountService)))
}

func TestScanner_Scan(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/classes/AccountTest.cls":          accountTest,
		"src/classes/AccountTest.cls-meta.xml": "<ApexClass/>",
		"src/classes/AccountService.cls":       accountService,
		"src/classes/legacy/OldTest.cls":       "@IsTest class OldTest { static testMethod void t() {} }",
		"src/classes/.hidden/HiddenTest.cls":   accountTest,
		"src/triggers/OnAccount.trigger":       "trigger OnAccount on Account (before insert) {}",
	})
	scanner := NewScanner(fs)

	t.Run("default includes", func(t *testing.T) {
		classes, err := scanner.Scan(config.BatchTest{Dir: "src"})
		require.NoError(t, err)
		require.Len(t, classes, 2)
		assert.Equal(t, "AccountTest", classes[0].Name)
		assert.Equal(t, "src/classes/AccountTest.cls", classes[0].Path)
		assert.Equal(t, []string{"createsAccount", "legacyUpdate", "readsOrgData"}, classes[0].Methods)
		assert.Equal(t, "OldTest", classes[1].Name)
	})

	t.Run("excludes and namespace", func(t *testing.T) {
		classes, err := scanner.Scan(config.BatchTest{
			Dir:       "src",
			Includes:  []string{"classes/**/*Test.cls"},
			Excludes:  []string{"classes/legacy/**"},
			Namespace: "acme",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"acme.AccountTest"}, Names(classes))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := scanner.Scan(config.BatchTest{Dir: "nope"})
		assert.ErrorContains(t, err, "test path does not exist")
	})

	t.Run("file instead of directory", func(t *testing.T) {
		_, err := scanner.Scan(config.BatchTest{Dir: "src/classes/AccountTest.cls"})
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := scanner.Scan(config.BatchTest{Dir: "src", Includes: []string{"classes/[*.cls"}})
		assert.ErrorContains(t, err, "invalid batch test pattern")
	})
}

func TestScanner_ScanAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"a/AccountTest.cls": accountTest,
		"b/AccountTest.cls": accountTest,
		"b/LeadTest.cls":    "@IsTest class LeadTest {}",
	})

	classes, err := NewScanner(fs).ScanAll([]config.BatchTest{{Dir: "a"}, {Dir: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"AccountTest", "LeadTest"}, Names(classes))
	assert.Equal(t, "a/AccountTest.cls", classes[0].Path)
}

func TestFilter_FilterByName(t *testing.T) {
	classes := []TestClass{{Name: "AccountTest"}, {Name: "PaymentTest"}, {Name: "PaymentServiceTest"}, {Name: "ns.OrderTest"}}
	filter := NewFilter()

	tests := []struct {
		name     string
		pattern  string
		expected int
	}{
		{"empty pattern returns all", "", 4},
		{"wildcard suffix", "*accounttest", 1},
		{"wildcard substring", "*Payment*", 2},
		{"simple contains", "Order", 1},
		{"no matches", "*Missing*", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, filter.FilterByName(classes, tt.pattern), tt.expected)
		})
	}
}
