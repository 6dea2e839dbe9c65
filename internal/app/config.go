package app

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/echo-guard/configs"
	"github.com/RyanBlaney/echo-guard/internal/batch"
)

// GenerateExampleConfig writes the default configuration as YAML
func GenerateExampleConfig(outputFile string) error {
	data, err := yaml.Marshal(configs.GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	return writeExample(outputFile, data)
}

// GenerateExampleManifest writes a batch manifest template
func GenerateExampleManifest(outputFile string) error {
	manifest := &batch.Manifest{
		Pairs: []batch.Pair{
			{Name: "loopback", Primary: "audio/mic_loopback.wav", Secondary: "audio/speaker.wav"},
			{Name: "double_talk", Primary: "audio/mic_talking.wav", Secondary: "audio/speaker.wav"},
		},
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal example manifest: %w", err)
	}

	return writeExample(outputFile, data)
}

// ValidateConfigFile loads a configuration file on top of the defaults and validates it
func ValidateConfigFile(configFile string) (*configs.Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := configs.GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := configs.ValidateConfig(config); err != nil {
		return config, err
	}

	return config, nil
}

func writeExample(outputFile string, data []byte) error {
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputFile, err)
	}

	return nil
}
