// internal/common/config/config.go
package config

import (
	"net/url"
	"strings"
)

// Settings is the resolved checker configuration. It is built once by the
// loader and never mutated afterwards; callers receive it read-only.
type Settings struct {
	AuthContextPath string `mapstructure:"auth_context_path"`
	UserName        string `mapstructure:"user_name"`
	Password        string `mapstructure:"password"`
	DataContextPath string `mapstructure:"data_context_path"`

	// Exactly one of Version and SpecDocument must be supplied.
	Version      string                 `mapstructure:"version"`
	SpecDocument map[string]interface{} `mapstructure:"spec_document"`

	FilterSupport bool `mapstructure:"filter_support"`
	LimitSupport  bool `mapstructure:"limit_support"`
	EventsSupport bool `mapstructure:"events_support"`

	Log        string `mapstructure:"log"`
	VerboseLog bool   `mapstructure:"verbose_log"`

	StubContextPath string    `mapstructure:"stub_context_path"`
	UserAgent       string    `mapstructure:"user_agent"`
	StubData        *StubData `mapstructure:"stub_data"`
	KeepStub        bool      `mapstructure:"keep_stub"`
}

// StubData carries fixed override fields merged over generated defaults when
// the stub server synthesizes a footprint.
type StubData struct {
	CompanyIds []string `mapstructure:"company_ids" json:"companyIds,omitempty"`
	ProductIds []string `mapstructure:"product_ids" json:"productIds,omitempty"`
}

// SpecVersion returns the declared specification version, taken from the
// version field or from the pre-loaded specification document.
func (s *Settings) SpecVersion() string {
	if s.Version != "" {
		return s.Version
	}
	if info, ok := s.SpecDocument["info"].(map[string]interface{}); ok {
		if v, ok := info["version"].(string); ok {
			return v
		}
	}
	return ""
}

// StubHostPort extracts the listen address from StubContextPath.
func (s *Settings) StubHostPort() (string, error) {
	u, err := url.Parse(s.StubContextPath)
	if err != nil {
		return "", err
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":80"
	}
	return host, nil
}
