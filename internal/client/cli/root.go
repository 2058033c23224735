package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	a.mu.Lock()
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	a.mu.Unlock()
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root prints the banner and runs the REPL on a.reader until exit or EOF.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to chantube CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
