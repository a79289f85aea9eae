// Package config reads mkfile.yaml declarations.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only mkfile version understood.
const SupportedVersion = "1"

// Special rule targets folded into the declaration fields.
const (
	specialSuffixes  = ".SUFFIXES"
	specialMain      = ".MAIN"
	specialOrder     = ".ORDER"
	specialPath      = ".PATH"
	specialNull      = ".NULL"
	specialIncludes  = ".INCLUDES"
	specialLibs      = ".LIBS"
	specialPathMatch = ".PATH."
)

// Loader implements ports.DeclarationSource using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the declarations at path. An empty path searches cwd and its
// parents for a declaration file.
func (l *Loader) Load(cwd, path string) (*domain.Declarations, error) {
	if path == "" {
		found, err := findDeclarations(cwd)
		if err != nil {
			return nil, err
		}
		path = found
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	var mkfile Mkfile
	if err := readAndUnmarshalYAML(path, &mkfile); err != nil {
		return nil, zerr.With(err, "file", path)
	}
	if mkfile.Version != "" && mkfile.Version != SupportedVersion {
		return nil, zerr.With(zerr.With(domain.ErrDeclParseFailed, "version", mkfile.Version), "file", path)
	}
	return l.translate(&mkfile, path), nil
}

func findDeclarations(cwd string) (string, error) {
	currentDir := cwd
	for {
		for _, name := range domain.DeclFileNames() {
			candidate := filepath.Join(currentDir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(domain.ErrDeclFileNotFound, "cwd", cwd)
}

func (l *Loader) translate(m *Mkfile, path string) *domain.Declarations {
	d := &domain.Declarations{
		File:      path,
		Dir:       resolveRoot(path, m.Root),
		Suffixes:  m.Suffixes,
		Null:      m.Null,
		Includes:  m.Includes,
		Libraries: m.Libraries,
		Path:      m.Path,
		Paths:     make(map[string][]string, len(m.Paths)),
		Vars:      m.Vars,
		Main:      m.Main,
		Begin:     m.Begin,
		End:       m.End,
		Interrupt: m.Interrupt,
	}
	for suffix, dirs := range m.Paths {
		d.Paths[suffix] = dirs
	}
	for _, chain := range m.Order {
		d.Order = append(d.Order, []string(chain))
	}
	for _, t := range m.Transforms {
		d.Transforms = append(d.Transforms, domain.Transform{
			Name:     t.Name,
			Sources:  t.Sources,
			Commands: t.Commands,
		})
	}

	// Attribute rules go last so that they do not decide the main target.
	var attrRules []domain.Rule
	for i, dto := range m.Rules {
		if len(dto.Targets) == 0 {
			l.warn(zerr.With(zerr.With(domain.ErrConfig, "rule", i), "reason", "no targets"))
			continue
		}
		op, err := domain.ParseOperator(dto.Op)
		if err != nil {
			l.warn(zerr.With(err, "rule", i))
			continue
		}
		if rule, ok := attrRule(dto); ok {
			attrRules = append(attrRules, rule)
			continue
		}
		if special(d, dto) {
			continue
		}
		d.Rules = append(d.Rules, domain.Rule{
			Targets:  dto.Targets,
			Op:       op,
			Sources:  dto.Sources,
			Commands: dto.Commands,
			Attrs:    normalizeAttrs(dto.Attrs),
		})
	}
	d.Rules = append(d.Rules, attrRules...)
	return d
}

// attrRule turns ".PHONY: clean" into an attribute rule for clean.
func attrRule(dto RuleDTO) (domain.Rule, bool) {
	if len(dto.Targets) != 1 || len(dto.Sources) == 0 {
		return domain.Rule{}, false
	}
	attr, ok := attrTarget(dto.Targets[0])
	if !ok {
		return domain.Rule{}, false
	}
	return domain.Rule{Targets: dto.Sources, Attrs: []string{attr}}, true
}

// special folds a rule on a special target into d.
func special(d *domain.Declarations, dto RuleDTO) bool {
	if len(dto.Targets) != 1 {
		return false
	}
	target := dto.Targets[0]
	switch target {
	case specialSuffixes:
		if len(dto.Sources) == 0 {
			d.Suffixes = nil
		}
		d.Suffixes = append(d.Suffixes, dto.Sources...)
	case specialMain:
		d.Main = append(d.Main, dto.Sources...)
	case specialOrder:
		d.Order = append(d.Order, dto.Sources)
	case specialPath:
		if len(dto.Sources) == 0 {
			d.Path = nil
		}
		d.Path = append(d.Path, dto.Sources...)
	case specialNull:
		if len(dto.Sources) > 0 {
			d.Null = dto.Sources[len(dto.Sources)-1]
		}
	case specialIncludes:
		d.Includes = append(d.Includes, dto.Sources...)
	case specialLibs:
		d.Libraries = append(d.Libraries, dto.Sources...)
	case domain.TargetBegin:
		d.Begin = append(d.Begin, dto.Commands...)
	case domain.TargetEnd:
		d.End = append(d.End, dto.Commands...)
	case domain.TargetInterrupt:
		d.Interrupt = append(d.Interrupt, dto.Commands...)
	default:
		suffix, ok := strings.CutPrefix(target, specialPathMatch)
		if !ok || suffix == "" {
			return false
		}
		d.Paths["."+suffix] = append(d.Paths["."+suffix], dto.Sources...)
	}
	return true
}

// attrTarget maps ".PHONY" to the phony attribute.
func attrTarget(target string) (string, bool) {
	name, ok := strings.CutPrefix(target, ".")
	if !ok || name != strings.ToUpper(name) {
		return "", false
	}
	attr := strings.ToLower(name)
	switch attr {
	case domain.AttrPhony, domain.AttrPrecious, domain.AttrSilent, domain.AttrIgnore,
		domain.AttrUse, domain.AttrExec, domain.AttrJoin, domain.AttrMake,
		domain.AttrOptional, domain.AttrNotMain:
		return attr, true
	}
	return "", false
}

// normalizeAttrs accepts ".PHONY" as well as "phony".
func normalizeAttrs(attrs []string) []string {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, strings.ToLower(strings.TrimPrefix(a, ".")))
	}
	return out
}

func (l *Loader) warn(err error) {
	if l.Logger != nil {
		l.Logger.Warn(err.Error())
	}
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return configDir
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is chosen by the user
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return zerr.Wrap(err, domain.ErrDeclFileNotFound.Error())
	}
	if err != nil {
		return zerr.Wrap(err, domain.ErrDeclReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(data, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrDeclParseFailed.Error())
	}
	return nil
}
