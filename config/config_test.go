package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		_ = os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), scanner.DefaultChunkSize, cfg.Scan.ChunkSize)
	assert.Equal(suite.T(), scanner.DefaultPrefixBytes, cfg.Scan.PrefixBytes)
	assert.False(suite.T(), cfg.Reconcile.DryRun)
	assert.Empty(suite.T(), cfg.History.Database)
	assert.Equal(suite.T(), DefaultCategories(), cfg.Categories)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	content := `
canonical: /data/canonical
incoming: /data/incoming
scan:
  chunkSize: 65536
reconcile:
  dryRun: true
history:
  database: /var/lib/fsrecon/history.db
categories:
  - name: code
    extensions: [go, py]
`
	path := filepath.Join(suite.tempDir, "custom.yaml")
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "/data/canonical", cfg.Canonical)
	assert.Equal(suite.T(), "/data/incoming", cfg.Incoming)
	assert.Equal(suite.T(), 65536, cfg.Scan.ChunkSize)
	assert.Equal(suite.T(), scanner.DefaultPrefixBytes, cfg.Scan.PrefixBytes)
	assert.True(suite.T(), cfg.Reconcile.DryRun)
	assert.Equal(suite.T(), "/var/lib/fsrecon/history.db", cfg.History.Database)
	require.Len(suite.T(), cfg.Categories, 1)
	assert.Equal(suite.T(), "code", cfg.Categories[0].Name)
	assert.Equal(suite.T(), []string{"go", "py"}, cfg.Categories[0].Extensions)

	opts := cfg.ScannerOptions()
	assert.Equal(suite.T(), 65536, opts.ChunkSize)
}

func (suite *ConfigTestSuite) TestLoadConfigFromSearchPath() {
	require.NoError(suite.T(), os.WriteFile(filepath.Join(suite.tempDir, "fsrecon.yaml"), []byte("incoming: ./in\n"), 0644))

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "./in", cfg.Incoming)
}

func (suite *ConfigTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("FSRECON_CANONICAL", "/env/canonical")
	suite.T().Setenv("FSRECON_HISTORY_DATABASE", "/env/history.db")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/env/canonical", cfg.Canonical)
	assert.Equal(suite.T(), "/env/history.db", cfg.History.Database)
}

func (suite *ConfigTestSuite) TestMissingExplicitFile() {
	_, err := LoadConfig(filepath.Join(suite.tempDir, "absent.yaml"))
	require.Error(suite.T(), err)
	assert.True(suite.T(), errors.IsErrorCode(err, errors.ErrConfig))
}

func (suite *ConfigTestSuite) TestInvalidChunkSize() {
	path := filepath.Join(suite.tempDir, "bad.yaml")
	require.NoError(suite.T(), os.WriteFile(path, []byte("scan:\n  chunkSize: 0\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(suite.T(), err)
	assert.True(suite.T(), errors.IsErrorCode(err, errors.ErrConfig))
}

func TestValidateRoots(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/data/canonical", 0755))
	require.NoError(t, fsys.MkdirAll("/data/incoming", 0755))
	require.NoError(t, fsys.MkdirAll("/data/canonical/inbox", 0755))
	require.NoError(t, fsys.MkdirAll("/data/canonical-old", 0755))
	require.NoError(t, afero.WriteFile(fsys, "/data/file.txt", []byte("x"), 0644))

	tests := []struct {
		name      string
		canonical string
		incoming  string
		wantErr   bool
	}{
		{"valid", "/data/canonical", "/data/incoming", false},
		{"empty_canonical", "", "/data/incoming", true},
		{"missing_incoming", "/data/canonical", "/data/nope", true},
		{"incoming_is_file", "/data/canonical", "/data/file.txt", true},
		{"same_directory", "/data/canonical", "/data/canonical/", true},
		{"incoming_inside_canonical", "/data/canonical", "/data/canonical/inbox", true},
		{"canonical_inside_incoming", "/data/canonical/inbox", "/data/canonical", true},
		{"sibling_with_shared_prefix", "/data/canonical", "/data/canonical-old", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoots(fsys, tt.canonical, tt.incoming)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
