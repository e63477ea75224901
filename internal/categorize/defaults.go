package categorize

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dompet/internal/core"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultCategory is one entry of the default category file.
type DefaultCategory struct {
	Name     string `yaml:"name"`
	Icon     string `yaml:"icon"`
	Color    string `yaml:"color"`
	Keywords string `yaml:"keywords"`
}

type defaultsFile struct {
	Income  []DefaultCategory `yaml:"income"`
	Expense []DefaultCategory `yaml:"expense"`
}

// Defaults returns the built-in default categories, income first.
func Defaults() ([]core.Category, error) {
	return parseDefaults(defaultsYAML)
}

// LoadDefaults reads default categories from a YAML file. An empty path
// falls back to the built-in set.
func LoadDefaults(path string) ([]core.Category, error) {
	if path == "" {
		return Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	return parseDefaults(data)
}

func parseDefaults(data []byte) ([]core.Category, error) {
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	out := make([]core.Category, 0, len(f.Income)+len(f.Expense))
	add := func(kind core.Kind, list []DefaultCategory) error {
		for i, d := range list {
			c := core.Category{
				Name:      d.Name,
				Kind:      kind,
				Icon:      d.Icon,
				Color:     d.Color,
				Keywords:  d.Keywords,
				IsDefault: true,
			}
			in := core.CategoryInput{Name: c.Name, Kind: c.Kind}
			if err := in.Validate(); err != nil {
				return fmt.Errorf("%s category #%d: %w", kind, i+1, err)
			}
			out = append(out, c)
		}
		return nil
	}
	if err := add(core.KindIncome, f.Income); err != nil {
		return nil, err
	}
	if err := add(core.KindExpense, f.Expense); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("categories file defines no categories")
	}
	return out, nil
}
