// Package scaffold writes the starter sixhat.yml for `sixhat init`.
package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/sixhat/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// Template returns the starter configuration.
func Template() ([]byte, error) {
	content, err := templatesFS.ReadFile("templates/sixhat.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read sixhat.yml template: %w", err)
	}
	return content, nil
}

// Initialize writes sixhat.yml into dir. With force an existing file is
// replaced; without it CheckExisting must pass first.
func Initialize(dir string, force bool) (string, error) {
	path := filepath.Join(dir, config.DefaultPath)
	if !force {
		if err := CheckExisting(dir); err != nil {
			return "", err
		}
	}

	content, err := Template()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := validateCreatedFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// validateCreatedFile checks the written file parses and validates as a
// sixhat configuration.
func validateCreatedFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", path, err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("created %s is not a valid configuration: %w", path, err)
	}
	return nil
}

// PrintSuccess describes what was created and what to do next.
func PrintSuccess(w io.Writer, path string) {
	fmt.Fprintln(w, "\n✅ Successfully initialized sixhat!")
	fmt.Fprintf(w, "\nCreated:\n  ✓ %s\n", path)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Export OPENROUTER_API_KEY (or set API_TYPE and the matching key)")
	fmt.Fprintln(w, "  2. Add '.sixhat/' to your .gitignore file")
	fmt.Fprintln(w, "  3. Run 'sixhat' and enter a requirement")
}
