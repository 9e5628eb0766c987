package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigFromMissingFile(t *testing.T) {
	t.Parallel()

	cfg, info, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.NoError(t, err)
	require.False(t, info.PortSpecified)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromToml(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `matrix_path = "matrix.yaml"

[server]
port = 8080

[ai]
enabled = true
mode = "STRICT"
min_conf_for_fill = 0.5

[storage]
backend = "minio"

[storage.minio]
endpoint = "localhost:9000"
bucket = "passports"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, info, err := LoadConfigFrom(path, nil)
	require.NoError(t, err)
	require.True(t, info.PortSpecified)
	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.AI.Enabled)
	require.Equal(t, ModeStrict, cfg.AI.Mode)
	require.Equal(t, 0.5, cfg.AI.MinConfForFill)
	require.Equal(t, 0.8, cfg.AI.MinConfForOverride)
	require.Equal(t, BackendMinIO, cfg.Storage.Backend)
	require.Equal(t, "passports", cfg.Storage.MinIO.Bucket)
	require.Equal(t, "matrix.yaml", cfg.MatrixPath)
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()

	cfg, _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "none.toml"), envMap(map[string]string{
		"AI_ENABLED":                     "1",
		"AI_PROVIDER":                    " DeepSeek ",
		"OPENAI_API_KEY":                 "sk-test",
		"EXCEL_SEMANTIC_AI_MODE":         "bogus",
		"AI_EXCEL_MIN_CONF_FOR_AI_CALL":  "0.4",
		"AI_EXCEL_MIN_CONF_FOR_OVERRIDE": "not-a-number",
		"AI_EXCEL_MAX_TOKENS":            "-5",
		"INBOX_DIR":                      "/srv/inbox",
		"OCR_ENDPOINT":                   "http://ocr:8000",
		"MINIO_ENDPOINT":                 "minio:9000",
		"MINIO_USE_SSL":                  "true",
	}))
	require.NoError(t, err)
	require.True(t, cfg.AI.Enabled)
	require.Equal(t, "deepseek", cfg.AI.Provider)
	require.Equal(t, "sk-test", cfg.AI.APIKey)
	require.Equal(t, ModeAssist, cfg.AI.Mode)
	require.Equal(t, 0.4, cfg.AI.MinConfForAICall)
	require.Equal(t, 0.8, cfg.AI.MinConfForOverride)
	require.Equal(t, 1200, cfg.AI.MaxTokens)
	require.Equal(t, "/srv/inbox", cfg.Data.InboxDir)
	require.Equal(t, "http://ocr:8000", cfg.OCR.Endpoint)
	require.Equal(t, BackendMinIO, cfg.Storage.Backend)
	require.True(t, cfg.Storage.MinIO.UseSSL)
}

func TestAIKeyPrecedence(t *testing.T) {
	t.Parallel()

	cfg, _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "none.toml"), envMap(map[string]string{
		"AI_API_KEY":     "primary",
		"OPENAI_API_KEY": "secondary",
	}))
	require.NoError(t, err)
	require.Equal(t, "primary", cfg.AI.APIKey)
}

func TestEnsureDataDirAt(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")
	cfg := DefaultConfig()
	cfg.Data.AggregatedDir = abs

	dirs, err := EnsureDataDirAt(base, cfg)
	if err != nil {
		t.Fatalf("ensure data dir: %v", err)
	}
	if dirs.Inbox != filepath.Join(base, "data", "inbox") {
		t.Fatalf("inbox = %s", dirs.Inbox)
	}
	if dirs.Aggregated != abs {
		t.Fatalf("aggregated = %s", dirs.Aggregated)
	}
	for _, p := range []string{dirs.Root, dirs.Inbox, dirs.Aggregated, dirs.Exports} {
		if st, err := os.Stat(p); err != nil || !st.IsDir() {
			t.Fatalf("expected directory %s: %v", p, err)
		}
	}
}
