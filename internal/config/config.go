package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/court-scheduler/internal/pipeline"
)

// Config is everything the server command needs, sourced from the
// environment plus an optional YAML file for submission form defaults.
type Config struct {
	ListenAddr string
	BaseURL    string // upstream reservation system

	CookieHashKey  []byte
	CookieBlockKey []byte
	GateSecret     string

	DequeueWait      time.Duration
	TransportTimeout time.Duration
	MaxRetries       int

	Form      pipeline.Form
	Referer   string
	UserAgent string
}

// fileConfig is the optional YAML layer (FORM_CONFIG path): the submission
// form fields plus upstream header overrides.
type fileConfig struct {
	Form     pipeline.Form `yaml:"form"`
	Upstream struct {
		Referer   string `yaml:"referer"`
		UserAgent string `yaml:"userAgent"`
	} `yaml:"upstream"`
}

// FromEnv builds the full configuration. GATE_SECRET, COOKIE_HASH_KEY and
// COOKIE_BLOCK_KEY are required; everything else has a default.
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr: envDefault("HTTP_ADDR", ":8080"),
		BaseURL:    strings.TrimRight(envDefault("UPSTREAM_BASE_URL", "https://reserve.gmuc.co.kr"), "/"),
		GateSecret: strings.TrimSpace(os.Getenv("GATE_SECRET")),
		Form:       pipeline.DefaultForm(),
	}
	if cfg.GateSecret == "" {
		return Config{}, fmt.Errorf("GATE_SECRET is required")
	}

	var err error
	if cfg.CookieHashKey, err = mustB64("COOKIE_HASH_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.CookieBlockKey, err = mustB64("COOKIE_BLOCK_KEY"); err != nil {
		return Config{}, err
	}

	waitMS, err := envInt("DEQUEUE_WAIT_MS", 500)
	if err != nil || waitMS < 1 {
		return Config{}, fmt.Errorf("invalid DEQUEUE_WAIT_MS")
	}
	cfg.DequeueWait = time.Duration(waitMS) * time.Millisecond

	timeoutSec, err := envInt("UPSTREAM_TIMEOUT_SECONDS", 15)
	if err != nil || timeoutSec < 1 {
		return Config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT_SECONDS")
	}
	cfg.TransportTimeout = time.Duration(timeoutSec) * time.Second

	cfg.MaxRetries, err = envInt("SUBMIT_MAX_RETRIES", 5)
	if err != nil || cfg.MaxRetries < 1 {
		return Config{}, fmt.Errorf("invalid SUBMIT_MAX_RETRIES")
	}

	if path := strings.TrimSpace(os.Getenv("FORM_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, fmt.Errorf("FORM_CONFIG: %w", err)
		}
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fc := fileConfig{Form: c.Form}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return err
	}
	c.Form = fc.Form
	c.Referer = fc.Upstream.Referer
	c.UserAgent = fc.Upstream.UserAgent
	return nil
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envInt(k string, d int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	return strconv.Atoi(v)
}

func mustB64(k string) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil, fmt.Errorf("%s is required (base64)", k)
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
