package conf

import "fmt"

// IngestSettings configures the ingest acceptor process.
type IngestSettings struct {
	Shared

	AdminToken         string
	InternalToken      string
	MaxUploadSizeBytes int64
}

// LoadIngestSettings reads IA configuration from the environment.
func LoadIngestSettings() (IngestSettings, error) {
	v := newViper()

	shared, err := loadShared(v)
	if err != nil {
		return IngestSettings{}, err
	}

	bindings := []envBinding{
		{"admin_token", "ADMIN_TOKEN", validateNonEmpty},
		{"internal_token", "INTERNAL_TOKEN", validateNonEmpty},
		{"max_upload_size_bytes", "MAX_UPLOAD_SIZE_BYTES", validatePositiveInt},
	}
	if err := bindAndValidate(v, bindings); err != nil {
		return IngestSettings{}, err
	}

	v.SetDefault("max_upload_size_bytes", 50*1024*1024)

	adminToken := v.GetString("admin_token")
	internalToken := v.GetString("internal_token")
	if adminToken == "" {
		return IngestSettings{}, fmt.Errorf("ADMIN_TOKEN is required")
	}
	if internalToken == "" {
		return IngestSettings{}, fmt.Errorf("INTERNAL_TOKEN is required")
	}

	return IngestSettings{
		Shared:             shared,
		AdminToken:         adminToken,
		InternalToken:      internalToken,
		MaxUploadSizeBytes: v.GetInt64("max_upload_size_bytes"),
	}, nil
}
