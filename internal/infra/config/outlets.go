package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gapwatch/internal/domain"
)

//go:embed default_outlets.yaml
var defaultOutlets []byte

type outletsFile struct {
	Outlets []domain.Outlet `yaml:"outlets"`
}

// LoadOutlets читает таблицу изданий из YAML. Пустой путь означает встроенную таблицу.
func LoadOutlets(path string) ([]domain.Outlet, error) {
	data := defaultOutlets
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение таблицы изданий: %w", err)
		}
		data = raw
	}
	return ParseOutlets(data)
}

// ParseOutlets разбирает YAML с таблицей изданий.
func ParseOutlets(data []byte) ([]domain.Outlet, error) {
	var file outletsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("разбор таблицы изданий: %w", err)
	}
	for i := range file.Outlets {
		file.Outlets[i].ID = strings.ToLower(strings.TrimSpace(file.Outlets[i].ID))
		file.Outlets[i].Name = strings.TrimSpace(file.Outlets[i].Name)
	}
	return file.Outlets, nil
}
