package taxonomy

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

type yamlEntry struct {
	Name                string   `yaml:"name"`
	Weight              int      `yaml:"weight"`
	RequireWordBoundary bool     `yaml:"require_word_boundary"`
	Keywords            []string `yaml:"keywords"`
	URLPatterns         []string `yaml:"url_patterns"`
	Domains             []string `yaml:"domains"`
	ContentIndicators   []string `yaml:"content_indicators"`
	ExclusionPhrases    []string `yaml:"exclusion_phrases"`
}

type yamlDoc struct {
	Categories []yamlEntry `yaml:"categories"`
}

// BuiltinTaxonomy returns the default taxonomy entries compiled from the
// embedded YAML document, in declaration order (significant for C5's
// tie-break rule). It panics on malformed embedded YAML since that would
// be a packaging defect, not a runtime condition callers can recover from.
func BuiltinTaxonomy() []Entry {
	var doc yamlDoc
	if err := yaml.Unmarshal(builtinYAML, &doc); err != nil {
		panic(fmt.Sprintf("taxonomy: embedded builtin.yaml is invalid: %v", err))
	}

	entries := make([]Entry, 0, len(doc.Categories))
	for _, y := range doc.Categories {
		e := Entry{
			Name:                y.Name,
			Weight:              y.Weight,
			RequireWordBoundary: y.RequireWordBoundary,
			Keywords:            y.Keywords,
			ContentIndicators:   y.ContentIndicators,
			ExclusionPhrases:    y.ExclusionPhrases,
			Domains:             y.Domains,
		}
		for _, pat := range y.URLPatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				panic(fmt.Sprintf("taxonomy: invalid url pattern %q for %q: %v", pat, y.Name, err))
			}
			e.URLPatterns = append(e.URLPatterns, re)
		}
		if e.Weight == 0 {
			e.Weight = 1
		}
		entries = append(entries, e)
	}
	return entries
}
