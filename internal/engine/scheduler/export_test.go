package scheduler

import "go.trai.ch/mk/internal/core/domain"

// Script renders cmds the way a job script is written.
func Script(cmds []domain.Command, silent bool) string {
	return script(cmds, func(c domain.Command) bool { return silent || c.Silent })
}
