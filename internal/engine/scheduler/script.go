package scheduler

import (
	"strings"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// plan is what examining a ready node decided.
type plan struct {
	outOfDate bool
	// cmds are the expanded head commands of the node.
	cmds []domain.Command
	// run is the subset of cmds that is executed.
	run []domain.Command
	// tail holds raw commands after the "..." marker.
	tail []string
}

func (p plan) needsJob() bool {
	return p.outOfDate && len(p.run) > 0
}

// expandCommands parses markers and substitutes variables in the scope of n.
func (r *run) expandCommands(n *domain.Node, raws []string) ([]domain.Command, error) {
	scope := domain.Chain{domain.NodeScope{N: n}, r.s.globals}
	cmds := make([]domain.Command, 0, len(raws))
	for _, raw := range raws {
		c := domain.ParseCommand(raw)
		text, err := r.s.expander.Expand(c.Text, scope)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrExpandFailed.Error()), "target", r.name(n))
		}
		c.Text = text
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// selectRun picks the commands that actually execute under the run mode.
func (r *run) selectRun(n *domain.Node, cmds []domain.Command) []domain.Command {
	opts := r.s.opts
	switch {
	case opts.Query, opts.Touch:
		return nil
	case opts.DryRun && !n.Mods.MakeAlways:
		var out []domain.Command
		for _, c := range cmds {
			if c.Always {
				out = append(out, c)
			}
		}
		return out
	}
	return cmds
}

// silent reports whether c is run without echo.
func (r *run) silent(n *domain.Node, c domain.Command) bool {
	return r.s.opts.Silent || n.Mods.Silent || c.Silent
}

// ignoresErrors reports whether failures of n's job are tolerated.
func (r *run) ignoresErrors(n *domain.Node) bool {
	return r.s.opts.IgnoreErrors || n.Mods.IgnoreErrors
}

// script renders cmds as one shell script. Echoed lines are printed by the
// shell itself so that they stay in order with the command output.
func script(cmds []domain.Command, silent func(domain.Command) bool) string {
	var b strings.Builder
	for _, c := range cmds {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if !silent(c) {
			b.WriteString("printf '%s\\n' ")
			b.WriteString(shellQuote(c.Text))
			b.WriteByte('\n')
		}
		if c.IgnoreErrors {
			b.WriteString("{ ")
			b.WriteString(c.Text)
			b.WriteString("\n} || true\n")
			continue
		}
		b.WriteString(c.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// sources publishes .ALLSRC and .OODATE on n.
func (r *run) sources(n *domain.Node) {
	var all, newer []string
	for _, h := range n.Children {
		c := r.s.g.Node(h)
		if c.Kind == domain.KindUse || c.Kind == domain.KindTransform {
			continue
		}
		all = append(all, c.File())
		if c.Status == domain.StatusMade || c.Mtime.After(n.Mtime) {
			newer = append(newer, c.File())
		}
	}
	n.SetVar(domain.VarAllSrc, strings.Join(all, " "))
	n.SetVar(domain.VarOODate, strings.Join(newer, " "))
}
