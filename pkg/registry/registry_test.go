package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded_DefaultVersion(t *testing.T) {
	doc, err := Embedded(DefaultVersion)
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, doc.Version)
	assert.Len(t, doc.Features, 21)
	assert.Len(t, doc.Numeric, 6)
	require.Len(t, doc.Categories, 4)

	assert.Equal(t, "Granted_Loan_Amount", doc.Features[0])
	assert.Equal(t, "Lender_C", doc.Features[20])

	reason := doc.Categories[0]
	assert.Equal(t, "Reason", reason.Attribute)
	assert.Equal(t, "other", reason.Baseline)
	assert.Equal(t, "Reason_home_improvement", reason.IndicatorName("home_improvement"))
	assert.Contains(t, reason.Codes(), "debt_consolidation")
}

func TestEmbedded_UnknownVersion(t *testing.T) {
	_, err := Embedded("9.9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultVersion)
}

func TestVersions(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Contains(t, versions, DefaultVersion)
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "minimal", body: "version: \"2\"\nfeatures: [a]\n"},
		{name: "missing version", body: "features: [a]\n", wantErr: true},
		{name: "unknown key", body: "version: \"2\"\ncolumns: [a]\n", wantErr: true},
		{name: "not yaml", body: "version: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDocument(t *testing.T) {
	p := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(p, []byte("version: \"2.0.0\"\nfeatures: [x, y]\n"), 0o644))

	doc, err := LoadDocument(p)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", doc.Version)
	assert.Equal(t, []string{"x", "y"}, doc.Features)

	_, err = LoadDocument(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
