package config

import (
	"strings"

	"go.trai.ch/mk/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Mkfile is the structure of mkfile.yaml.
type Mkfile struct {
	Version string `yaml:"version"`
	// Root is the directory builds run in, relative to the file.
	Root    string `yaml:"root"`

	Suffixes  Words             `yaml:"suffixes"`
	Null      string            `yaml:"null"`
	Includes  Words             `yaml:"includes"`
	Libraries Words             `yaml:"libraries"`
	Path      Words             `yaml:"path"`
	Paths     map[string]Words  `yaml:"paths"`
	Vars      map[string]string `yaml:"vars"`

	Main      Words   `yaml:"main"`
	Order     []Words `yaml:"order"`
	Begin     Lines   `yaml:"begin"`
	End       Lines   `yaml:"end"`
	Interrupt Lines   `yaml:"interrupt"`

	Transforms []TransformDTO `yaml:"transforms"`
	Rules      []RuleDTO      `yaml:"rules"`
}

// RuleDTO is one entry of the rules list.
type RuleDTO struct {
	Targets  Words  `yaml:"targets"`
	Op       string `yaml:"op"`
	Sources  Words  `yaml:"sources"`
	Commands Lines  `yaml:"commands"`
	Attrs    Words  `yaml:"attrs"`
}

// TransformDTO is one entry of the transforms list.
type TransformDTO struct {
	Name     string `yaml:"name"`
	Sources  Words  `yaml:"sources"`
	Commands Lines  `yaml:"commands"`
}

// Words accepts either a list or a single white-space separated string.
// Archive member lists stay one word.
type Words []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (w *Words) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*w = domain.SplitWords(value.Value)
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*w = list
	return nil
}

// Lines accepts either a list of commands or one block of text with a
// command per line.
type Lines []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *Lines) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var out []string
		for line := range strings.SplitSeq(value.Value, "\n") {
			if strings.TrimSpace(line) != "" {
				out = append(out, line)
			}
		}
		*l = out
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}
