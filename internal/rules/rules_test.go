package rules

import (
	"os"
	"path/filepath"
	"testing"

	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_GLCodes(t *testing.T) {
	r := Default()
	assert.Equal(t, "4010", r.GLCode(models.PaymentTithe))
	assert.Equal(t, "4100", r.GLCode(models.PaymentMembershipDue))
	assert.Equal(t, DefaultGLCode, r.GLCode(models.PaymentOther))
	assert.Equal(t, DefaultGLCode, r.GLCode("unmapped"))
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	r, err := Load("", logging.NewMockLogger())
	require.NoError(t, err)
	assert.Len(t, r.BankTypes, len(Default().BankTypes))
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), logging.NewMockLogger())
	assert.Error(t, err)
}

func TestLoad_OverlaysFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, file, `bank_types:
  - type: ZELLE
    keywords: ["ZELLE", "ZEL PMT"]
  - type: OTHER_CARD
    keywords: ["POS"]
gl_codes:
  tithe: "4011"
default_gl_code: "4999"
boilerplate:
  - "Sent via the app"
`)
	logger := logging.NewMockLogger()

	r, err := Load(file, logger)
	require.NoError(t, err)

	require.Len(t, r.BankTypes, 2)
	assert.Equal(t, "OTHER_CARD", r.BankTypes[1].Type)
	assert.Equal(t, "4011", r.GLCode(models.PaymentTithe))
	assert.Equal(t, "4100", r.GLCode(models.PaymentMembershipDue))
	assert.Equal(t, "4999", r.GLCode("unmapped"))
	assert.Equal(t, []string{"Sent via the app"}, r.Boilerplate)
	assert.NotEmpty(t, r.IgnoredSenders)
	assert.True(t, logger.HasEntry("INFO", "Loaded rules file"))
}

func TestLoad_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "bank_types: [unclosed"},
		{"rule without type", "bank_types:\n  - keywords: [\"X\"]\n"},
		{"rule without keywords", "bank_types:\n  - type: X\n"},
		{"unknown payment type", "gl_codes:\n  lottery: \"4000\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "rules.yaml")
			writeFile(t, file, tt.content)
			_, err := Load(file, logging.NewMockLogger())
			assert.Error(t, err)
		})
	}
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rules.yaml")
	writeFile(t, file, "{}")

	got, err := FindFile(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = FindFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
