package scheduler

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// counted reports whether a child takes part in the walk. Use and transform
// nodes only lend commands.
func counted(n *domain.Node) bool {
	return n.Kind != domain.KindUse && n.Kind != domain.KindTransform
}

// prepare marks every node reachable from targets, merges .USE nodes,
// resolves implicit sources, stats files and queues the leaves.
func (r *run) prepare(targets []domain.Handle) {
	var order []*domain.Node
	var visit func(h domain.Handle)
	visit = func(h domain.Handle) {
		n := r.s.g.Node(h)
		if n.Make {
			return
		}
		n.Make = true
		n.Status = domain.StatusUnmade
		r.applyUses(n)
		if err := r.s.resolver.Resolve(h); err != nil {
			r.s.logger.Warn(err.Error())
		}
		if err := r.s.eval.Stat(n); err != nil {
			r.s.logger.Warn(err.Error())
		}
		for _, c := range slices.Clone(n.Children) {
			if counted(r.s.g.Node(c)) {
				visit(c)
			}
		}
		order = append(order, n)
	}
	for _, h := range targets {
		visit(h)
	}

	for _, n := range order {
		n.Unmade = 0
		for _, c := range n.Children {
			if counted(r.s.g.Node(c)) {
				n.Unmade++
			}
		}
	}
	for _, n := range order {
		if n.Unmade == 0 {
			r.enqueue(n)
		}
	}
}

// applyUses gives n the commands of its .USE children when it has none of
// its own and adopts their children.
func (r *run) applyUses(n *domain.Node) {
	own := len(n.Commands) > 0
	for _, h := range slices.Clone(n.Children) {
		u := r.s.g.Node(h)
		if u.Kind != domain.KindUse {
			continue
		}
		if !own {
			n.Commands = append(n.Commands, u.Commands...)
		}
		for _, c := range u.Children {
			r.s.g.Link(n.ID, c)
		}
	}
}

// enqueue moves n to the ready queue unless an ordering predecessor that
// takes part in the run is still pending.
func (r *run) enqueue(n *domain.Node) {
	if n.Status != domain.StatusUnmade {
		return
	}
	for _, h := range n.Preds {
		p := r.s.g.Node(h)
		if p.Make && !p.Status.Terminal() {
			return
		}
	}
	n.Status = domain.StatusRequested
	r.ready = append(r.ready, n)
}

// complete tells the parents and successors of a made or up to date node.
func (r *run) complete(n *domain.Node) {
	for _, h := range n.Parents {
		p := r.s.g.Node(h)
		if !p.Make || p.Status.Terminal() {
			continue
		}
		p.Unmade--
		switch {
		case p.Unmade < 0:
			err := r.s.g.CycleError([]domain.Handle{p.ID, n.ID, p.ID})
			r.s.renderer.OnMessage(fmt.Sprintf("Graph cycles through %s", r.name(p)))
			r.fail(p, err)
		case p.Unmade == 0:
			r.enqueue(p)
		}
	}
	r.release(n)
}

// release queues successors that were waiting for n.
func (r *run) release(n *domain.Node) {
	for _, h := range n.Succs {
		s := r.s.g.Node(h)
		if s.Make && s.Unmade == 0 {
			r.enqueue(s)
		}
	}
}

// made records n as remade and moves its tail commands to .END.
func (r *run) made(n *domain.Node, tail []string) {
	n.Status = domain.StatusMade
	if err := r.s.eval.Recheck(n); err != nil {
		r.s.logger.Warn(err.Error())
	}
	r.saveTail(n, tail)
	r.complete(n)
}

func (r *run) saveTail(n *domain.Node, tail []string) {
	if len(tail) == 0 || n.Name.String() == domain.TargetEnd {
		return
	}
	scope := domain.Chain{domain.NodeScope{N: n}, r.s.globals}
	end := r.s.g.FindOrCreate(domain.TargetEnd)
	end.Mods.Special = true
	for _, raw := range tail {
		// Markers stay in front so that .END parses them again.
		c := domain.ParseCommand(raw)
		text, err := r.s.expander.Expand(c.Text, scope)
		if err != nil {
			r.s.logger.Warn(err.Error())
			continue
		}
		end.Commands = append(end.Commands, markers(c)+text)
	}
}

func markers(c domain.Command) string {
	var b strings.Builder
	if c.Silent {
		b.WriteByte('@')
	}
	if c.IgnoreErrors {
		b.WriteByte('-')
	}
	if c.Always {
		b.WriteByte('+')
	}
	return b.String()
}

// fail records err for n and stops every node waiting on it.
func (r *run) fail(n *domain.Node, err error) {
	n.Status = domain.StatusError
	r.errs = append(r.errs, err)
	if !r.s.opts.KeepGoing {
		r.aborting = true
	}
	r.abortAncestors(n)
	r.release(n)
}

func (r *run) abortAncestors(n *domain.Node) {
	for _, h := range n.Parents {
		p := r.s.g.Node(h)
		if !p.Make || p.Status.Terminal() {
			continue
		}
		p.Status = domain.StatusAborted
		r.abortAncestors(p)
		r.release(p)
	}
}

// special runs a .BEGIN or .END node through the job machinery, outside
// the concurrency ceiling. Query mode skips both.
func (r *run) special(name string) error {
	n, ok := r.s.g.Find(name)
	if !ok || len(n.Commands) == 0 || r.s.opts.Query {
		return nil
	}
	n.Mods.Special = true
	n.Status = domain.StatusRequested
	p, err := r.commands(n)
	if err != nil {
		r.fail(n, err)
		return nil
	}
	r.execute(n, p)
	return r.loop()
}

// detectCycle reports nodes that can never start. It only runs when the
// walk was not cut short, since an abort leaves pending nodes behind.
func (r *run) detectCycle(targets []domain.Handle) error {
	if r.aborting {
		return nil
	}
	stuck := func(n *domain.Node) bool {
		return n.Make && n.Status == domain.StatusUnmade
	}
	var starts []domain.Handle
	starts = append(starts, targets...)
	for n := range r.s.g.All() {
		if stuck(n) {
			starts = append(starts, n.ID)
		}
	}
	var names []string
	for _, h := range starts {
		n := r.s.g.Node(h)
		if !stuck(n) {
			continue
		}
		if cycle := r.s.g.FindCycle(h, stuck); cycle != nil {
			err := r.s.g.CycleError(cycle)
			r.s.renderer.OnMessage("Graph cycles through " + strings.Join(r.s.g.Names(cycle), " -> "))
			r.markCycle(cycle)
			return err
		}
		names = append(names, r.name(n))
	}
	if len(names) == 0 {
		return nil
	}
	// Nothing cycles through children, so ordering constraints hold the
	// nodes back.
	msg := joinNames(names)
	r.s.renderer.OnMessage("Graph cycles through " + msg)
	return zerr.With(domain.ErrGraphCycle, "targets", msg)
}

func (r *run) markCycle(cycle []domain.Handle) {
	for _, h := range cycle {
		r.s.g.Node(h).Status = domain.StatusAborted
	}
}

// report prints the final status of every requested target.
func (r *run) report(targets []domain.Handle) {
	for _, h := range targets {
		n := r.s.g.Node(h)
		switch n.Status {
		case domain.StatusUpToDate:
			if !r.s.opts.Query {
				r.s.renderer.OnMessage(fmt.Sprintf("`%s' is up to date.", r.name(n)))
			}
		case domain.StatusMade:
		default:
			r.s.renderer.OnMessage(fmt.Sprintf("`%s' not remade because of errors.", r.name(n)))
		}
	}
}

func joinNames(names []string) string {
	return strings.Join(names, " ")
}
