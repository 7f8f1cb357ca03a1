// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pathfinder-checker/internal/common/errors"
)

// Load resolves Settings from checker.yaml plus environment overrides.
// Layered resolution produces one immutable struct; the caller's input is
// never merged in place.
func Load() (*Settings, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("checker")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHECKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return resolve(v)
}

// LoadFromFile resolves Settings from a specific file path.
func LoadFromFile(path string) (*Settings, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return resolve(v)
}

func resolve(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	applyDefaults(&s)

	if err := validate(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// applyDefaults sets default values for optional settings fields.
func applyDefaults(s *Settings) {
	if s.Log == "" {
		s.Log = "stdout"
	}
	if s.StubContextPath == "" {
		s.StubContextPath = "http://localhost:3000"
	}
}

// validate checks required settings before any network activity happens.
func validate(s *Settings) error {
	if s.AuthContextPath == "" {
		return errors.NewConfigurationError("auth_context_path is required", "")
	}
	if s.UserName == "" {
		return errors.NewConfigurationError("user_name is required", "")
	}
	if s.Password == "" {
		return errors.NewConfigurationError("password is required", "")
	}
	if s.DataContextPath == "" {
		return errors.NewConfigurationError("data_context_path is required", "")
	}

	hasVersion := s.Version != ""
	hasDoc := len(s.SpecDocument) > 0
	if hasVersion == hasDoc {
		return errors.NewConfigurationError(
			"exactly one of version and spec_document must be supplied",
			fmt.Sprintf("version set: %t, spec_document set: %t", hasVersion, hasDoc),
		)
	}

	if _, err := s.StubHostPort(); err != nil {
		return errors.NewConfigurationError("stub_context_path is not a valid URL", err.Error())
	}

	return nil
}
