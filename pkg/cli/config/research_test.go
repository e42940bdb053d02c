package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hera-health/hera/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "research.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644)).Required()
	return path
}

func TestLoadResearchFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
		wantErr error
	}{
		{
			name: "valid configuration",
			content: `
topics = ["PCOS nutrition", "thyroid health women"]
fallback = ["https://pubmed.ncbi.nlm.nih.gov/?term={query}"]

[thresholds]
loose = 0.6
strict = 0.8

[[route]]
name = "pcos"
keywords = ["pcos", "polycystic"]
urls = [
  "https://pubmed.ncbi.nlm.nih.gov/?term={query}",
  "https://www.nichd.nih.gov/health/topics/pcos",
]

[[route]]
name = "menopause"
keywords = ["menopause"]
urls = ["https://www.nia.nih.gov/health/menopause"]
`,
			valid: true,
		},
		{
			name:    "empty file keeps defaults",
			content: ``,
			valid:   true,
		},
		{
			name: "duplicate route",
			content: `
[[route]]
name = "pcos"
keywords = ["pcos"]
urls = ["https://example.org/a"]

[[route]]
name = "pcos"
keywords = ["polycystic"]
urls = ["https://example.org/b"]
`,
			wantErr: config.ErrDuplicateRoute,
		},
		{
			name: "route without urls",
			content: `
[[route]]
name = "pcos"
keywords = ["pcos"]
`,
		},
		{
			name: "thresholds out of order",
			content: `
[thresholds]
loose = 0.9
strict = 0.7
`,
			wantErr: config.ErrInvalidThreshold,
		},
		{
			name: "threshold out of range",
			content: `
[thresholds]
loose = 0.5
strict = 1.5
`,
			wantErr: config.ErrInvalidThreshold,
		},
		{
			name: "empty topic",
			content: `
topics = ["PCOS nutrition", ""]
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "malformed toml",
			content: `topics = [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := config.LoadResearchFile(writeConfig(t, tt.content))

			if !tt.valid {
				gt.Value(t, err).NotNil()
				if tt.wantErr != nil {
					gt.Error(t, err).Is(tt.wantErr)
				}
				return
			}

			gt.NoError(t, err).Required()
			gt.Value(t, file).NotNil()
		})
	}
}

func TestLoadResearchFileContent(t *testing.T) {
	path := writeConfig(t, `
topics = ["endometriosis diet"]

[thresholds]
loose = 0.65
strict = 0.9

[[route]]
name = "endometriosis"
keywords = ["endometriosis"]
urls = ["https://www.who.int/news-room/fact-sheets/detail/endometriosis"]
`)

	file, err := config.LoadResearchFile(path)
	gt.NoError(t, err).Required()

	gt.Value(t, file.Topics).Equal([]string{"endometriosis diet"})
	gt.Value(t, file.Thresholds).NotNil().Required()
	gt.Value(t, file.Thresholds.Loose).Equal(0.65)
	gt.Value(t, file.Thresholds.Strict).Equal(0.9)
	gt.Array(t, file.Routes).Length(1).Required()
	gt.Value(t, file.Routes[0].Name).Equal("endometriosis")
	gt.Value(t, file.Routes[0].Keywords).Equal([]string{"endometriosis"})

	opts, err := file.Options()
	gt.NoError(t, err).Required()
	// router, thresholds and topics
	gt.Array(t, opts).Length(3)
}

func TestLoadResearchFileNotFound(t *testing.T) {
	_, err := config.LoadResearchFile(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func TestResearchConfigure(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		opts, err := config.NewResearchForTest("").Configure()
		gt.NoError(t, err)
		gt.Array(t, opts).Length(0)
	})

	t.Run("fallback only", func(t *testing.T) {
		path := writeConfig(t, `fallback = ["https://www.womenshealth.gov/a-z-topics"]`)
		opts, err := config.NewResearchForTest(path).Configure()
		gt.NoError(t, err)
		gt.Array(t, opts).Length(1)
	})
}
