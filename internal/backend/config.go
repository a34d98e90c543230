package backend

import (
	"fmt"
	"net/url"

	"familysavings/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.Backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend)
	}

	return Config{
		Type: backendType,

		BaseURL:           appConfig.APIURL,
		Timeout:           appConfig.HTTPTimeout,
		MaxIdleConns:      appConfig.MaxIdleConns,
		IdleConnTimeout:   appConfig.IdleConnTimeout,
		MaxConnsPerHost:   appConfig.MaxConnsPerHost,
		MaxConcurrent:     appConfig.MaxConcurrent,
		RequestsPerSecond: appConfig.RateLimit,

		SeedFile: appConfig.SeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case RESTBackend:
		if c.BaseURL == "" {
			return fmt.Errorf("base URL is required for rest backend")
		}
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid base URL %q: scheme must be http or https", c.BaseURL)
		}
		if c.RequestsPerSecond < 0 {
			return fmt.Errorf("requests per second cannot be negative")
		}

	case MemoryBackend:
		// Seeding is optional
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RESTBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
