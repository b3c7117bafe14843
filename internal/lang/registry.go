package lang

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryOnce sync.Once
	registry     map[string]Language
)

func builtins() map[string]Language {
	registryOnce.Do(func() {
		registry = make(map[string]Language)
		for _, l := range []Language{Python(), Go(), Rust(), TypeScript()} {
			registry[l.Name()] = l
		}
	})
	return registry
}

// Lookup returns the built-in language with the given name.
func Lookup(name string) (Language, error) {
	l, ok := builtins()[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return l, nil
}

// Names returns the names of the built-in languages, sorted.
func Names() []string {
	var names []string
	for name := range builtins() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
