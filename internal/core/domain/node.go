package domain

import "time"

// Handle addresses a node in a Graph.
type Handle int32

// NoNode is the handle of no node.
const NoNode Handle = -1

// Kind classifies how a node is built and judged.
type Kind uint8

const (
	// KindNormal is a file target built with the ':' operator.
	KindNormal Kind = iota
	// KindPhony never corresponds to a file and is always remade.
	KindPhony
	// KindJoin is out of date only when one of its children was remade.
	KindJoin
	// KindForce is built with the '!' operator and is always remade.
	KindForce
	// KindUse only contributes commands and children to the nodes using it.
	KindUse
	// KindTransform holds the commands of a suffix transformation rule.
	KindTransform
	// KindArchiveMember names a member inside an archive, e.g. lib.a(m.o).
	KindArchiveMember
)

var kindNames = [...]string{
	KindNormal:        "normal",
	KindPhony:         "phony",
	KindJoin:          "join",
	KindForce:         "force",
	KindUse:           "use",
	KindTransform:     "transform",
	KindArchiveMember: "member",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Modifiers are the boolean attributes a node may carry on top of its Kind.
type Modifiers struct {
	// Each marks '::' targets: every occurrence is built independently and a
	// childless occurrence is always remade.
	Each bool
	// Optional nodes are not an error when they cannot be made.
	Optional bool
	// Precious nodes survive an interrupt.
	Precious bool
	// Library nodes name -lfoo style libraries.
	Library bool
	// Silent suppresses command echo for the whole node.
	Silent bool
	// IgnoreErrors tolerates nonzero exit for the whole node.
	IgnoreErrors bool
	// Exec nodes are always remade.
	Exec bool
	// MakeAlways nodes run even in dry-run mode.
	MakeAlways bool
	// NotMain excludes the node from default target selection.
	NotMain bool
	// Special marks .BEGIN, .END and .INTERRUPT.
	Special bool
}

// Status is the per-run lifecycle of a node.
type Status uint8

const (
	// StatusUnmade is the initial state.
	StatusUnmade Status = iota
	// StatusRequested means the node sits in the ready queue.
	StatusRequested
	// StatusBeingMade means a job for the node is running.
	StatusBeingMade
	// StatusMade means the node was remade this run.
	StatusMade
	// StatusUpToDate means the node needed no work.
	StatusUpToDate
	// StatusError means the node's commands failed.
	StatusError
	// StatusAborted means the node was skipped because of an error below it.
	StatusAborted
	// StatusNoSuchNode is reported for names that were never declared.
	StatusNoSuchNode
)

var statusNames = [...]string{
	StatusUnmade:     "unmade",
	StatusRequested:  "requested",
	StatusBeingMade:  "being made",
	StatusMade:       "made",
	StatusUpToDate:   "up to date",
	StatusError:      "error",
	StatusAborted:    "aborted",
	StatusNoSuchNode: "no such node",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Terminal reports whether the node reached a final state for this run.
func (s Status) Terminal() bool {
	switch s {
	case StatusMade, StatusUpToDate, StatusError, StatusAborted:
		return true
	default:
		return false
	}
}

// Local variable names published on every node.
const (
	VarTarget  = ".TARGET"
	VarPrefix  = ".PREFIX"
	VarImpSrc  = ".IMPSRC"
	VarAllSrc  = ".ALLSRC"
	VarOODate  = ".OODATE"
	VarArchive = ".ARCHIVE"
	VarMember  = ".MEMBER"
)

// Node is a buildable entity. All relationships are handles into the owning
// Graph.
type Node struct {
	ID   Handle
	Name InternedString
	// Path is where the node lives on disk once directory search ran.
	Path string
	// Prefix is the name minus its matched suffix.
	Prefix string

	Kind Kind
	Mods Modifiers

	Status Status
	// Make is set when the node is needed by the current run.
	Make bool
	// Mtime is the modification time; zero means the file does not exist.
	Mtime time.Time
	// Youngest is the child with the newest timestamp seen so far.
	Youngest Handle
	// ChildTime is Youngest's timestamp.
	ChildTime time.Time
	// ChildMade is set once any child was remade this run.
	ChildMade bool

	// Suffix is the suffix table index assigned by the resolver, or NoSuffix.
	Suffix int
	// Resolved is set as soon as implicit source search starts.
	Resolved bool

	Commands []string
	// Sources are raw child specs that still need expansion; only transform
	// and use nodes carry them.
	Sources []string
	// Unmade counts children that have not reached a terminal state.
	Unmade int

	Parents        []Handle
	Children       []Handle
	Cohorts        []Handle
	Preds          []Handle
	Succs          []Handle
	ImpliedParents []Handle

	// Main is the node owning this cohort, or NoNode.
	Main Handle

	Vars map[string]string
}

// Exists reports whether the node was found on disk.
func (n *Node) Exists() bool {
	return !n.Mtime.IsZero()
}

// File returns the path used for timestamps and removal.
func (n *Node) File() string {
	if n.Path != "" {
		return n.Path
	}
	return n.Name.String()
}

// SetVar publishes a local variable.
func (n *Node) SetVar(name, value string) {
	if n.Vars == nil {
		n.Vars = make(map[string]string)
	}
	n.Vars[name] = value
}

// Var returns a local variable.
func (n *Node) Var(name string) (string, bool) {
	v, ok := n.Vars[name]
	return v, ok
}

// IsFile reports whether the node stands for a file on disk.
func (n *Node) IsFile() bool {
	switch n.Kind {
	case KindPhony, KindUse, KindTransform, KindJoin:
		return false
	default:
		return !n.Mods.Special
	}
}
