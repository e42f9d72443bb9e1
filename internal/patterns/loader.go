package patterns

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const maxRulesFileSize = 1024 * 1024 // 1MB

// LoadTables reads additional rule tables from YAML and appends them to the
// built-in tables. A non-empty version in the file replaces the default.
//
//	version: acme-2025.1
//	rules:
//	  - id: escalate
//	    pattern: '\bescalate\s+(.{5,150})'
//	    priority: High
//	    type: explicit
func LoadTables(r io.Reader) (Tables, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxRulesFileSize+1))
	if err != nil {
		return Tables{}, fmt.Errorf("reading rules: %w", err)
	}
	if len(data) > maxRulesFileSize {
		return Tables{}, fmt.Errorf("rules file too large (max %d bytes)", maxRulesFileSize)
	}

	var extra Tables
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return Tables{}, fmt.Errorf("parsing rules: %w", err)
	}

	t := DefaultTables()
	if extra.Version != "" {
		t.Version = extra.Version
	}
	t.Rules = append(t.Rules, extra.Rules...)
	t.Urgency = append(t.Urgency, extra.Urgency...)
	t.Exclusions = append(t.Exclusions, extra.Exclusions...)
	return t, nil
}

// LoadFile compiles the built-in tables extended by a YAML rules file. An
// empty path yields the built-in library.
func LoadFile(path string) (*Library, error) {
	if path == "" {
		return NewDefault()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules file: %w", err)
	}
	defer f.Close()

	t, err := LoadTables(f)
	if err != nil {
		return nil, err
	}
	return New(t)
}
