// Package config loads the YAML configuration of a ZeroTrustDB instance.
package config

import (
	"os"
	"strings"

	"github.com/nickyhof/ZeroTrustDB/auth"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/he"
	"github.com/nickyhof/ZeroTrustDB/ps"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const DefaultCacheEntries = 1024

type CipherConfig struct {
	Dimension int  `yaml:"dimension"`
	NoiseBits uint `yaml:"noise_bits"`
}

type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

type AuthConfig struct {
	Secret    string `yaml:"secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	RoleClaim string `yaml:"role_claim"`
}

// AuditConfig selects where the audit ledger lives. An empty Dir keeps it
// in memory. When Remote is set the ledger can be pushed there.
type AuditConfig struct {
	Dir        string        `yaml:"dir"`
	Remote     string        `yaml:"remote"`
	RemoteAuth ps.RemoteAuth `yaml:"remote_auth"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Role     core.Role     `yaml:"role"`
	Identity core.Identity `yaml:"identity"`
	Cipher   CipherConfig  `yaml:"cipher"`
	Cache    CacheConfig   `yaml:"cache"`
	Auth     AuthConfig    `yaml:"auth"`
	Audit    AuditConfig   `yaml:"audit"`
	Log      LogConfig     `yaml:"log"`
}

func Default() Config {
	return Config{
		Role: core.RoleAdmin,
		Identity: core.Identity{
			Name:  "ZeroTrustDB",
			Email: "engine@zerotrustdb.local",
		},
		Cipher: CipherConfig{
			Dimension: he.DefaultDimension,
			NoiseBits: he.DefaultNoiseBits,
		},
		Cache: CacheConfig{MaxEntries: DefaultCacheEntries},
		Auth:  AuthConfig{RoleClaim: "role"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	config, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return config, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	config := Default()
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.Cipher.Dimension <= 0 {
		return errors.Errorf("cipher.dimension must be positive, got %d", c.Cipher.Dimension)
	}
	if c.Cipher.NoiseBits == 0 || c.Cipher.NoiseBits > he.MaxNoiseBits {
		return errors.Errorf("cipher.noise_bits must be in [1, %d], got %d", he.MaxNoiseBits, c.Cipher.NoiseBits)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.Errorf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	switch c.Audit.RemoteAuth.Type {
	case "", ps.AuthTypeNone, ps.AuthTypeToken, ps.AuthTypeSSH, ps.AuthTypeBasic:
	default:
		return errors.Errorf("audit.remote_auth.type %q is not supported", c.Audit.RemoteAuth.Type)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// TokenConfig returns the role token settings.
func (c Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:    c.Auth.Secret,
		Issuer:    c.Auth.Issuer,
		Audience:  c.Auth.Audience,
		RoleClaim: c.Auth.RoleClaim,
	}
}

// NewLogger builds a logger with the configured level and format.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(c.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
