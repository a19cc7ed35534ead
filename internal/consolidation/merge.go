package consolidation

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var brandCaser = cases.Title(language.English)

// mergeResult is one product's normalized record plus its confidence score.
type mergeResult struct {
	Fields     map[string]any
	Confidence float64
}

// merge combines operator input with scraped payloads. Input fields win;
// scraped sources fill the gaps in priority order, most trusted first.
// Sources absent from the priority list rank after the listed ones in
// payload order. Confidence is the fraction of known fields that at least
// two contributors agree on, or 1.0 for fields only one contributor knows.
func merge(inputJSON, sourcesJSON string, priority []string) (*mergeResult, error) {
	input := map[string]any{}
	if strings.TrimSpace(inputJSON) != "" {
		if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
			return nil, fmt.Errorf("parse input payload: %w", err)
		}
	}
	sources := map[string]map[string]any{}
	if strings.TrimSpace(sourcesJSON) != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
			return nil, fmt.Errorf("parse source payloads: %w", err)
		}
	}

	ordered := orderSources(sources, priority)

	fields := make(map[string]any, len(input))
	contributors := make(map[string]int)
	agreements := make(map[string]int)

	record := func(key string, value any) {
		contributors[key]++
		if existing, ok := fields[key]; ok {
			if fmt.Sprint(existing) == fmt.Sprint(value) {
				agreements[key]++
			}
			return
		}
		fields[key] = value
	}

	for key, value := range input {
		record(key, value)
	}
	for _, name := range ordered {
		for key, value := range sources[name] {
			record(key, value)
		}
	}

	if brand, ok := fields["brand"].(string); ok {
		fields["brand"] = brandCaser.String(strings.ToLower(brand))
	}

	if len(fields) == 0 {
		return &mergeResult{Fields: fields}, nil
	}

	agreed := 0
	for key := range fields {
		if contributors[key] == 1 || agreements[key] > 0 {
			agreed++
		}
	}
	return &mergeResult{
		Fields:     fields,
		Confidence: float64(agreed) / float64(len(fields)),
	}, nil
}

func orderSources(sources map[string]map[string]any, priority []string) []string {
	seen := make(map[string]struct{}, len(sources))
	ordered := make([]string, 0, len(sources))
	for _, name := range priority {
		if _, ok := sources[name]; ok {
			ordered = append(ordered, name)
			seen[name] = struct{}{}
		}
	}
	rest := make([]string, 0, len(sources))
	for name := range sources {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	// Stable order for unlisted sources.
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			if rest[j] < rest[i] {
				rest[i], rest[j] = rest[j], rest[i]
			}
		}
	}
	return append(ordered, rest...)
}
