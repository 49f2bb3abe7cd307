package lexicon

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// ErrUnknownLexicon is returned when a built-in lexicon name does not exist
var ErrUnknownLexicon = errors.New("unknown lexicon")

// BuiltinNames returns the names of the embedded lexicons
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin compiles an embedded lexicon by name
func Builtin(name string) (*Lexicon, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownLexicon, name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data, name)
}

// Resolve loads a lexicon from a file path, or falls back to a built-in name
func Resolve(nameOrPath string) (*Lexicon, error) {
	switch strings.ToLower(filepath.Ext(nameOrPath)) {
	case ".yaml", ".yml", ".json":
		return LoadFile(nameOrPath)
	}

	if _, err := os.Stat(nameOrPath); err == nil {
		return LoadFile(nameOrPath)
	}

	return Builtin(nameOrPath)
}
