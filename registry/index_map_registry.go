/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/suparena/entitykit/errors"
)

// Index maps associate a logical entity type with the key templates used to
// place its rows in a single table, e.g.
//
//	{"PK": "PERSON#{ObjectId}", "SK": "PERSON#{ObjectId}", "GSI1PK": "NICK#{nickname}"}
//
// Macros name either a system attribute (ObjectId, EntityType) or a field.

var (
	indexMapRegistry = make(map[string]map[string]string)
	mu               sync.RWMutex

	macroPattern = regexp.MustCompile(`{([^{}]*)}`)
)

// IndexMapFile is the YAML layout accepted by LoadIndexMaps.
//
//	indexMaps:
//	  Person:
//	    PK: "PERSON#{ObjectId}"
//	    SK: "PERSON#{ObjectId}"
type IndexMapFile struct {
	IndexMaps map[string]map[string]string `yaml:"indexMaps"`
}

// DefaultIndexMap returns the index map used for entity types without one.
func DefaultIndexMap() map[string]string {
	return map[string]string{
		"PK": "{EntityType}#{ObjectId}",
		"SK": "{EntityType}#{ObjectId}",
	}
}

// RegisterIndexMap associates an entity type with an index map, replacing
// any previous one.
func RegisterIndexMap(entityType string, idxMap map[string]string) error {
	if entityType == "" {
		return errors.NewValidationError("entityType", "must not be empty")
	}
	if err := ValidateIndexMap(idxMap); err != nil {
		return fmt.Errorf("index map for %q: %w", entityType, err)
	}

	cp := make(map[string]string, len(idxMap))
	for k, v := range idxMap {
		cp[k] = v
	}

	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[entityType] = cp
	return nil
}

// GetIndexMap retrieves the index map registered for entityType, if any.
func GetIndexMap(entityType string) (map[string]string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[entityType]
	return m, ok
}

// IndexMapFor returns the registered index map for entityType, or the default.
func IndexMapFor(entityType string) map[string]string {
	if m, ok := GetIndexMap(entityType); ok {
		return m
	}
	return DefaultIndexMap()
}

// UnregisterIndexMap removes the index map for entityType.
func UnregisterIndexMap(entityType string) {
	mu.Lock()
	defer mu.Unlock()
	delete(indexMapRegistry, entityType)
}

// IndexMappedTypes returns the entity types with a registered index map, sorted.
func IndexMappedTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(indexMapRegistry))
	for name := range indexMapRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadIndexMaps parses and validates a YAML index map file.
func LoadIndexMaps(r io.Reader) (map[string]map[string]string, error) {
	var f IndexMapFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to decode index map file: %w", err)
	}
	for name, m := range f.IndexMaps {
		if err := ValidateIndexMap(m); err != nil {
			return nil, fmt.Errorf("index map for %q: %w", name, err)
		}
	}
	if f.IndexMaps == nil {
		f.IndexMaps = map[string]map[string]string{}
	}
	return f.IndexMaps, nil
}

// RegisterIndexMaps loads a YAML index map file and registers every entry.
// It returns the entity types registered, sorted.
func RegisterIndexMaps(r io.Reader) ([]string, error) {
	maps, err := LoadIndexMaps(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(maps))
	for name, m := range maps {
		if err := RegisterIndexMap(name, m); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateIndexMap checks that PK and SK are present and that every
// template has well-formed, non-empty macros.
func ValidateIndexMap(idxMap map[string]string) error {
	for _, required := range []string{"PK", "SK"} {
		if idxMap[required] == "" {
			return errors.NewValidationError(required, "key template is required")
		}
	}
	for field, template := range idxMap {
		for _, m := range macroPattern.FindAllStringSubmatch(template, -1) {
			if strings.TrimSpace(m[1]) == "" {
				return errors.NewValidationError(field, "empty macro in "+template)
			}
		}
		if rest := macroPattern.ReplaceAllString(template, ""); strings.ContainsAny(rest, "{}") {
			return errors.NewValidationError(field, "unbalanced braces in "+template)
		}
	}
	return nil
}

// Macros returns the macro names referenced by template, in order.
func Macros(template string) []string {
	var names []string
	for _, m := range macroPattern.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

// ExpandTemplate replaces each macro in template using lookup. It fails if
// lookup cannot resolve a macro.
func ExpandTemplate(template string, lookup func(name string) (string, bool)) (string, error) {
	var missing string
	out := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		name := strings.Trim(macro, "{}")
		v, ok := lookup(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", errors.NewValidationError(missing, "no value for macro in "+template)
	}
	return out, nil
}
