// Package yamlchart decodes chart definitions from YAML documents. It
// is an external loader around the core: it only produces a
// chart.Definition, all validation happens in Compile.
package yamlchart

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/espalier/pkg/chart"
)

// Parse decodes a YAML document into a Definition.
func Parse(data []byte) (chart.Definition, error) {
	var def chart.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return chart.Definition{}, fmt.Errorf("decode chart: %w", err)
	}
	return def, nil
}

// Load reads and decodes a chart definition file.
func Load(path string) (chart.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chart.Definition{}, fmt.Errorf("read chart %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return chart.Definition{}, fmt.Errorf("chart %s: %w", path, err)
	}
	return def, nil
}

// LoadCompiled reads, decodes and compiles a chart definition file.
func LoadCompiled(path string) (*chart.Chart, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	compiled, err := def.Compile()
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", path, err)
	}
	return compiled, nil
}
