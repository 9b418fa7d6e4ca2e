package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys that override file values.
const (
	EnvRecognitionURL   = "SIGNCAP_RECOGNITION_URL"
	EnvGestureURL       = "SIGNCAP_GESTURE_URL"
	EnvTranscriptionURL = "SIGNCAP_TRANSCRIPTION_URL"
	EnvBackendURL       = "SIGNCAP_BACKEND_URL"
	EnvBackendKey       = "SIGNCAP_BACKEND_KEY"
	EnvCameraDevice     = "SIGNCAP_CAMERA_DEVICE"
)

var overrideKeys = []string{
	EnvRecognitionURL,
	EnvGestureURL,
	EnvTranscriptionURL,
	EnvBackendURL,
	EnvBackendKey,
	EnvCameraDevice,
}

const defaultEnvFile = ".env"

// readOverrides merges the dotenv file with the process environment. Process
// values win. An explicit envFile must exist; the implicit .env is optional.
func readOverrides(envFile string) (map[string]string, string, error) {
	path := strings.TrimSpace(envFile)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	values, err := godotenv.Read(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		values, path = map[string]string{}, ""
	default:
		return nil, "", fmt.Errorf("read env file %q: %w", path, err)
	}

	out := make(map[string]string, len(overrideKeys))
	for _, key := range overrideKeys {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			out[key] = strings.TrimSpace(v)
			continue
		}
		if v := strings.TrimSpace(values[key]); v != "" {
			out[key] = v
		}
	}
	return out, path, nil
}

func applyOverrides(cfg *Config, env map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := env[key]; ok {
			*dst = v
		}
	}
	set(&cfg.Recognition.BaseURL, EnvRecognitionURL)
	set(&cfg.Recognition.GestureURL, EnvGestureURL)
	set(&cfg.Recognition.TranscriptionURL, EnvTranscriptionURL)
	set(&cfg.Backend.URL, EnvBackendURL)
	set(&cfg.Backend.AnonKey, EnvBackendKey)
	set(&cfg.Capture.Device, EnvCameraDevice)
}
