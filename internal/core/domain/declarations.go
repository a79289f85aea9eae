package domain

import "go.trai.ch/zerr"

// Operator is the dependency operator of a rule.
type Operator uint8

const (
	// OpDepends is ':'.
	OpDepends Operator = iota
	// OpForce is '!': the target is always remade.
	OpForce
	// OpEach is '::': each rule for the target is a separate cohort.
	OpEach
)

// ParseOperator maps the textual operator to an Operator.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "", ":":
		return OpDepends, nil
	case "!":
		return OpForce, nil
	case "::":
		return OpEach, nil
	default:
		return OpDepends, zerr.With(ErrConfig, "operator", s)
	}
}

// Special target names.
const (
	TargetBegin     = ".BEGIN"
	TargetEnd       = ".END"
	TargetInterrupt = ".INTERRUPT"
)

// Rule is one dependency declaration.
type Rule struct {
	Targets  []string
	Op       Operator
	Sources  []string
	Commands []string
	Attrs    []string
}

// Transform is one suffix transformation rule such as ".c.o".
type Transform struct {
	Name     string
	Sources  []string
	Commands []string
}

// Declarations is everything a declaration source supplies for one session.
type Declarations struct {
	// File is where the declarations were read from.
	File string
	// Dir is the directory builds run in.
	Dir string

	Suffixes  []string
	Null      string
	Includes  []string
	Libraries []string
	Path      []string
	Paths     map[string][]string
	Vars      map[string]string

	Main      []string
	Order     [][]string
	Begin     []string
	End       []string
	Interrupt []string

	Transforms []Transform
	Rules      []Rule
}

// Attribute names accepted on rules.
const (
	AttrPhony    = "phony"
	AttrPrecious = "precious"
	AttrSilent   = "silent"
	AttrIgnore   = "ignore"
	AttrUse      = "use"
	AttrExec     = "exec"
	AttrJoin     = "join"
	AttrMake     = "make"
	AttrOptional = "optional"
	AttrNotMain  = "notmain"
)

// ApplyAttr sets the kind or modifier named attr on n.
func ApplyAttr(n *Node, attr string) error {
	switch attr {
	case AttrPhony:
		n.Kind = KindPhony
	case AttrUse:
		n.Kind = KindUse
	case AttrJoin:
		n.Kind = KindJoin
	case AttrPrecious:
		n.Mods.Precious = true
	case AttrSilent:
		n.Mods.Silent = true
	case AttrIgnore:
		n.Mods.IgnoreErrors = true
	case AttrExec:
		n.Mods.Exec = true
	case AttrMake:
		n.Mods.MakeAlways = true
	case AttrOptional:
		n.Mods.Optional = true
	case AttrNotMain:
		n.Mods.NotMain = true
	default:
		return zerr.With(ErrConfig, "attribute", attr)
	}
	return nil
}
