package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte("api:\n  base_url: http://localhost:8080/api\n  timeout_seconds: 5\n"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	require.Equal(t, 5, cfg.API.TimeoutSeconds)
}

func TestFromYAMLInvalid(t *testing.T) {
	_, err := FromYAML([]byte("api: ["))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		baseURL string
		timeout int
		wantErr bool
	}{
		{"ok", "http://localhost:8080/api", 10, false},
		{"missing url", "", 10, true},
		{"relative url", "/api", 10, true},
		{"negative timeout", "http://localhost:8080/api", -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.API.BaseURL = tc.baseURL
			cfg.API.TimeoutSeconds = tc.timeout
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWriteLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default("http://example.com/api")
	require.NoError(t, cfg.Write(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
	require.Equal(t, cfg.API.TimeoutSeconds, loaded.API.TimeoutSeconds)
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	require.Error(t, err)

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestLoadOptionalInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "questlog.yml"), []byte("api:\n  base_url: not a url\n"), 0o644))
	_, err := LoadOptional(dir)
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default("")
	require.NoError(t, cfg.Validate())
	require.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
}
