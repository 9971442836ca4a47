package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/geostamp/pkg/storage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"output": {"jpeg_quality": 75},
		"storage": {"backend": "s3", "s3": {"bucket": "photos", "region": "eu-west-1"}}
	}`), 0644))

	t.Setenv("GEOSTAMP_STORAGE_S3_SECRET_KEY", "from-env")
	t.Setenv("GEOSTAMP_OUTPUT_WEBP_QUALITY", "55")
	t.Setenv("GEOSTAMP_OVERLAY_TIMEZONE_LABEL", "CET (UTC+1)")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Output.JPEGQuality)
	assert.Equal(t, 55, cfg.Output.WebPQuality)
	assert.Equal(t, storage.BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "photos", cfg.Storage.S3.Bucket)
	assert.Equal(t, "from-env", cfg.Storage.S3.SecretKey)
	assert.Equal(t, "CET (UTC+1)", cfg.Overlay.TimezoneLabel)
	assert.Equal(t, Default().Overlay.ThumbnailSize, cfg.Overlay.ThumbnailSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
