// Package templates ships the built-in SVG templates.
package templates

import (
	"embed"
	"path"
	"sort"
	"strings"
)

//go:embed data/*.svg
var files embed.FS

// Lookup returns the template with the given name.
func Lookup(name string) ([]byte, bool) {
	data, err := files.ReadFile(path.Join("data", name+".svg"))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Names returns the sorted names of all built-in templates.
func Names() []string {
	entries, err := files.ReadDir("data")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".svg"))
	}
	sort.Strings(names)
	return names
}
