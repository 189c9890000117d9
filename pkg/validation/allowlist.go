package validation

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed odp.yaml
var odpSchema []byte

// AllowList holds the data fields the downstream submission schema supports.
type AllowList struct {
	FileTypes    []string `yaml:"fileTypes"`
	ProjectTypes []string `yaml:"projectTypes"`

	files    map[string]bool
	projects map[string]bool
}

// ParseAllowList reads an allow-list YAML document.
func ParseAllowList(data []byte) (*AllowList, error) {
	var a AllowList
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse allow-list: %w", err)
	}
	a.index()
	return &a, nil
}

// DefaultAllowList returns the embedded ODP schema allow-list.
func DefaultAllowList() *AllowList {
	a, err := ParseAllowList(odpSchema)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *AllowList) index() {
	a.files = toSet(a.FileTypes)
	a.projects = toSet(a.ProjectTypes)
}

// FileTypeSupported reports whether fn is a supported file field.
func (a *AllowList) FileTypeSupported(fn string) bool {
	return a.files[fn]
}

// ProjectTypeSupported reports whether val is a supported project type.
func (a *AllowList) ProjectTypeSupported(val string) bool {
	return a.projects[val]
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
