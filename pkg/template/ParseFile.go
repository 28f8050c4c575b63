// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package template

import (
	"fmt"
	"html/template"
	"os"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"sumIntegers": func(x, y int) int {
			return x + y
		},
		"formatBytes": func(n int) string {
			const unit = 1024
			if n < unit {
				return fmt.Sprintf("%d B", n)
			}
			div, exp := unit, 0
			for m := n / unit; m >= unit; m /= unit {
				div *= unit
				exp++
			}
			return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
		},
	}
}

// Parse parses a template from text.
func Parse(name string, text string) (Template, error) {
	t, err := template.New(name).Funcs(funcMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("error parsing template %q: %w", name, err)
	}
	return t, nil
}

func ParseFile(name string, path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading template from %q: %w", path, err)
	}
	t, err := template.New(name).Funcs(funcMap()).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing template from %q: %w", path, err)
	}
	return t, nil
}
