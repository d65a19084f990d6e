package rules

import (
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
)

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Condition   string `yaml:"condition"`
	Action      string `yaml:"action"`
	Priority    int    `yaml:"priority"`
	Active      *bool  `yaml:"active"`
}

// ParseSeed reads a YAML rule list. Rules without an active flag are active.
func ParseSeed(r io.Reader) ([]model.BusinessRule, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.InvalidInput("seed file is empty")
		}
		return nil, apperr.Wrap(apperr.KindValidationInput, err, "parse seed file")
	}

	out := make([]model.BusinessRule, 0, len(f.Rules))
	for _, sr := range f.Rules {
		active := true
		if sr.Active != nil {
			active = *sr.Active
		}
		out = append(out, model.BusinessRule{
			Name:        sr.Name,
			Description: sr.Description,
			Condition:   sr.Condition,
			Action:      sr.Action,
			Priority:    sr.Priority,
			IsActive:    active,
		})
	}
	return out, nil
}

func LoadSeedFile(path string) ([]model.BusinessRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open seed file %s", path)
	}
	defer f.Close()
	return ParseSeed(f)
}
