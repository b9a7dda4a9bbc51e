package models

// Config is the service configuration loaded from config.yaml with
// environment overrides applied on top.
type Config struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`

	OCR OCRConfig `yaml:"ocr"`
}

// OCRConfig configures the recognition engine.
type OCRConfig struct {
	Language string `yaml:"language"`

	// ConfidenceThreshold is stored and exposed but not used to filter
	// recognition output.
	ConfidenceThreshold  float64 `yaml:"confidence_threshold"`
	PreprocessingEnabled bool    `yaml:"preprocessing_enabled"`

	// UploadDir is where multipart uploads are spooled while processed.
	// Empty means a directory under the system temp dir.
	UploadDir string `yaml:"upload_dir"`
}

// Default returns the configuration the service starts from before
// config.yaml and environment variables are applied.
func Default() *Config {
	return &Config{
		Port:     8002,
		Host:     "0.0.0.0",
		LogLevel: "info",
		OCR: OCRConfig{
			Language:             "eng",
			ConfidenceThreshold:  60.0,
			PreprocessingEnabled: true,
		},
	}
}

// ExtractRequest identifies an already-resolvable image for the extract and
// analyze endpoints.
type ExtractRequest struct {
	FilePath string `json:"file_path"`
}

// BatchRequest lists the images for a batch run, in processing order.
type BatchRequest struct {
	FilePaths []string `json:"file_paths"`
}
