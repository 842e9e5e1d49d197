package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grpweb/grpweb/internal/guard"
)

// execIface is the command surface the REPL dispatches to. *App satisfies it.
type execIface interface {
	Route() guard.Route
	Help()
	Login(ctx context.Context, args []string) error
	UseToken(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Open(ctx context.Context, route guard.Route) error
	Quote() error
	CopyToken(ctx context.Context) error
	Refresh(ctx context.Context) error
	Edit(args []string) error
	Set(args []string) error
	Save(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	Cancel() error
	Show(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it to a. Handlers report
// their own errors; the loop ends on EOF, "exit" or "quit".
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "grpweb [%s]> ", a.Route())
		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			a.Help()

		case "login":
			if err := a.Login(ctx, args); err == nil {
				_ = a.Open(ctx, guard.RouteDashboard)
			}

		case "token":
			if err := a.UseToken(ctx, args); err == nil {
				_ = a.Open(ctx, guard.RouteDashboard)
			}

		case "logout":
			_ = a.Logout(ctx)

		case "dashboard", "home":
			_ = a.Open(ctx, guard.RouteDashboard)

		case "messages":
			_ = a.Open(ctx, guard.RouteMessages)

		case "positions":
			_ = a.Open(ctx, guard.RoutePositions)

		case "quote":
			_ = a.Quote()

		case "copy":
			_ = a.CopyToken(ctx)

		case "l", "list", "refresh":
			_ = a.Refresh(ctx)

		case "edit":
			_ = a.Edit(args)

		case "set":
			_ = a.Set(args)

		case "save":
			_ = a.Save(ctx)

		case "delete", "rm":
			_ = a.Delete(ctx, args)

		case "cancel", "new":
			_ = a.Cancel()

		case "show":
			_ = a.Show(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}
