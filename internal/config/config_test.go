package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	t.Setenv("GATE_SECRET", "testsecret")
	t.Setenv("COOKIE_HASH_KEY", key)
	t.Setenv("COOKIE_BLOCK_KEY", key)
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	assert.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://reserve.gmuc.co.kr", cfg.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.DequeueWait)
	assert.Equal(t, 15*time.Second, cfg.TransportTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "Resv", cfg.Form.MenuID)
	assert.Equal(t, "002", cfg.Form.UseTypeCd)
}

func TestFromEnvRequiresGateSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("GATE_SECRET", "")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("DEQUEUE_WAIT_MS", "zero")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("DEQUEUE_WAIT_MS", "0")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnvFormFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "form.yaml")
	err := os.WriteFile(path, []byte(`
form:
  useTypeCd: "001"
  adultCnt: 2
  dealType: CASH
upstream:
  referer: https://reserve.example.test/custom
`), 0o600)
	assert.NoError(t, err)
	t.Setenv("FORM_CONFIG", path)

	cfg, err := FromEnv()
	assert.NoError(t, err)
	assert.Equal(t, "001", cfg.Form.UseTypeCd)
	assert.Equal(t, 2, cfg.Form.AdultCnt)
	assert.Equal(t, "CASH", cfg.Form.DealType)
	// Untouched fields keep their defaults.
	assert.Equal(t, "Resv", cfg.Form.MenuID)
	assert.Equal(t, "https://reserve.example.test/custom", cfg.Referer)
}
