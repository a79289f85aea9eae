// Package oodate decides whether a node must be remade.
package oodate

import (
	"time"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Evaluator judges nodes against the timestamps of their children.
type Evaluator struct {
	g        *domain.Graph
	suffixes *domain.SuffixTable
	dirs     ports.DirCache
	archives ports.ArchiveReader
	now      func() time.Time
}

// NewEvaluator creates an Evaluator for one session.
func NewEvaluator(
	g *domain.Graph,
	suffixes *domain.SuffixTable,
	dirs ports.DirCache,
	archives ports.ArchiveReader,
) *Evaluator {
	return &Evaluator{
		g:        g,
		suffixes: suffixes,
		dirs:     dirs,
		archives: archives,
		now:      time.Now,
	}
}

// SetClock replaces the source of "now" used for targets that are still
// missing after their commands ran.
func (e *Evaluator) SetClock(now func() time.Time) {
	e.now = now
}

// Stat records the modification time of n. Nodes that are not files keep a
// zero time. A failure to read an archive leaves the member missing and is
// returned for reporting.
func (e *Evaluator) Stat(n *domain.Node) error {
	n.Mtime = time.Time{}
	switch {
	case n.Kind == domain.KindArchiveMember:
		archive, member, _ := domain.ParseMember(n.Name.String())
		t, ok, err := e.archives.MemberMtime(archive, member)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrArchiveReadFailed.Error()), "archive", archive)
		}
		if ok {
			n.Mtime = t
		}
	case !n.IsFile():
	default:
		if n.Path == "" {
			if path, ok := e.dirs.FindFile(e.g.DisplayName(n.ID), e.suffixes.SearchPath(n.Suffix)); ok {
				n.Path = path
			}
		}
		if t, ok := e.dirs.Mtime(e.file(n)); ok {
			n.Mtime = t
		}
	}
	return nil
}

func (e *Evaluator) file(n *domain.Node) string {
	if n.Path != "" {
		return n.Path
	}
	return e.g.DisplayName(n.ID)
}

// OutOfDate reports whether n must be remade. Every child of n must already
// have been decided and propagated.
func (e *Evaluator) OutOfDate(n *domain.Node) (bool, error) {
	switch {
	case n.Kind == domain.KindUse, n.Kind == domain.KindTransform:
		return false, nil
	case n.Kind == domain.KindForce, n.Kind == domain.KindPhony, n.Mods.Exec:
		return true, nil
	case n.Kind == domain.KindJoin:
		return n.ChildMade, nil
	case n.Kind == domain.KindArchiveMember:
		return e.memberOutOfDate(n)
	case n.Mods.Library:
		stale, err := e.tocStale(n)
		if err != nil {
			return false, err
		}
		return stale || e.byTime(n), nil
	}
	return e.byTime(n), nil
}

func (e *Evaluator) byTime(n *domain.Node) bool {
	if len(n.Children) == 0 {
		return !n.Exists() || n.Mods.Each
	}
	return n.Mtime.Before(n.ChildTime)
}

func (e *Evaluator) memberOutOfDate(n *domain.Node) (bool, error) {
	if !n.Exists() || n.Mtime.Before(n.ChildTime) {
		return true, nil
	}
	archive, _, _ := domain.ParseMember(n.Name.String())
	toc, ok, err := e.archives.TOCMtime(archive)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrArchiveReadFailed.Error()), "archive", archive)
	}
	return ok && n.Mtime.After(toc), nil
}

// tocStale reports whether a library's symbol table is older than the
// archive holding it. Archives without a table are never stale.
func (e *Evaluator) tocStale(n *domain.Node) (bool, error) {
	if !n.Exists() {
		return false, nil
	}
	toc, ok, err := e.archives.TOCMtime(n.File())
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrArchiveReadFailed.Error()), "archive", n.File())
	}
	return ok && toc.Before(n.Mtime), nil
}

// Propagate pushes the time of n to each parent's youngest-child tracker.
func (e *Evaluator) Propagate(n *domain.Node) {
	for _, p := range n.Parents {
		parent := e.g.Node(p)
		if parent.Youngest == domain.NoNode || n.Mtime.After(parent.ChildTime) {
			parent.Youngest = n.ID
			parent.ChildTime = n.Mtime
		}
	}
}

// Recheck refreshes n after its commands ran. A target that still does not
// exist counts as made now. Parents learn that a child was remade.
func (e *Evaluator) Recheck(n *domain.Node) error {
	var err error
	if n.IsFile() {
		e.dirs.Invalidate(e.file(n))
		err = e.Stat(n)
	}
	if !n.Exists() {
		n.Mtime = e.now()
	}
	for _, p := range n.Parents {
		e.g.Node(p).ChildMade = true
	}
	e.Propagate(n)
	return err
}

// Assume records n as remade now without looking at the file system. Dry
// runs use it so that parents see the change.
func (e *Evaluator) Assume(n *domain.Node) {
	n.Mtime = e.now()
	for _, p := range n.Parents {
		e.g.Node(p).ChildMade = true
	}
	e.Propagate(n)
}
