package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

type expansionRulesFile struct {
	Rules []struct {
		Keywords []string `yaml:"keywords"`
		Probe    string   `yaml:"probe"`
		K        int      `yaml:"k"`
	} `yaml:"rules"`
}

// LoadExpansionRules reads the query expansion rule set from a YAML file.
// An empty path selects the built-in defaults.
func LoadExpansionRules(path string) ([]domain.ExpansionRule, error) {
	if path == "" {
		return DefaultExpansionRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read expansion rules: %w", err)
	}

	var file expansionRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse expansion rules: %w", err)
	}

	rules := make([]domain.ExpansionRule, 0, len(file.Rules))
	for i, raw := range file.Rules {
		keywords := make([]string, 0, len(raw.Keywords))
		for _, kw := range raw.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("expansion rule %d: keywords are required", i)
		}
		if strings.TrimSpace(raw.Probe) == "" {
			return nil, fmt.Errorf("expansion rule %d: probe is required", i)
		}
		rules = append(rules, domain.ExpansionRule{
			Keywords: keywords,
			Probe:    strings.TrimSpace(raw.Probe),
			K:        raw.K,
		})
	}
	return rules, nil
}

// DefaultExpansionRules covers the profile-style questions the assistant is
// most often asked about: projects, skills and work history.
func DefaultExpansionRules() []domain.ExpansionRule {
	return []domain.ExpansionRule{
		{
			Keywords: []string{"project", "work on", "built"},
			Probe:    "projects and work experience",
			K:        3,
		},
		{
			Keywords: []string{"skill", "technolog", "stack"},
			Probe:    "skills and technologies",
			K:        3,
		},
		{
			Keywords: []string{"experience", "years", "career"},
			Probe:    "professional experience and career history",
			K:        3,
		},
	}
}
