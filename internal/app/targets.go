package app

import (
	"context"
	"errors"
	"io"

	"go.trai.ch/mk/internal/adapters/linear"
	"go.trai.ch/mk/internal/adapters/report"
	"go.trai.ch/mk/internal/adapters/telemetry"
	"go.trai.ch/mk/internal/core/domain"
)

// Target statuses shown by Targets.
const (
	StatusUpToDate  = "up to date"
	StatusOutOfDate = "out of date"
	StatusError     = "error"
	StatusNone      = "-"
)

// Targets describes every declared target. The status of each target comes
// from a query run in its own session, so nothing is built.
func (a *App) Targets(ctx context.Context, opts RunOptions) ([]report.Row, error) {
	inv, err := a.load(opts)
	if err != nil {
		return nil, err
	}

	s := a.session(quietRenderer(), telemetry.NewNoOpTracer(), nil, a.deps.Logger)
	s.Apply(inv.decls)
	g := s.Graph()

	var rows []report.Row
	for _, n := range s.Declared() {
		row := report.Row{
			Target:   n.Name.String(),
			Kind:     n.Kind.String(),
			Attrs:    attrs(n),
			Commands: len(n.Commands),
			Sources:  g.Names(n.Children),
			Status:   StatusNone,
		}
		if n.Mods.Each {
			row.Sources = nil
			for _, h := range n.Cohorts {
				c := g.Node(h)
				row.Sources = append(row.Sources, g.Names(c.Children)...)
				row.Commands += len(c.Commands)
			}
		}
		if n.Kind != domain.KindUse {
			row.Status = a.status(ctx, inv, row.Target)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *App) status(ctx context.Context, inv *invocation, target string) string {
	options := inv.options
	options.Query = true

	s := a.session(quietRenderer(), telemetry.NewNoOpTracer(), nil, discard{})
	s.Apply(inv.decls)
	err := s.Run(ctx, []string{target}, options)
	switch {
	case err == nil:
		return StatusUpToDate
	case errors.Is(err, domain.ErrQueryOutOfDate):
		return StatusOutOfDate
	default:
		a.deps.Logger.Debug(target + ": " + err.Error())
		return StatusError
	}
}

func attrs(n *domain.Node) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(n.Mods.Each, "::")
	add(n.Mods.Precious, domain.AttrPrecious)
	add(n.Mods.Silent, domain.AttrSilent)
	add(n.Mods.IgnoreErrors, domain.AttrIgnore)
	add(n.Mods.Exec, domain.AttrExec)
	add(n.Mods.MakeAlways, domain.AttrMake)
	add(n.Mods.Optional, domain.AttrOptional)
	add(n.Mods.NotMain, domain.AttrNotMain)
	add(n.Mods.Library, "library")
	return out
}

func quietRenderer() *linear.Renderer {
	return linear.NewRenderer(io.Discard, false, false)
}

// discard drops every record. Status sessions apply the declarations a
// second time and would repeat their warnings.
type discard struct{}

func (discard) Debug(string) {}
func (discard) Info(string)  {}
func (discard) Warn(string)  {}
func (discard) Error(error)  {}
