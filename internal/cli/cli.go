package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status        *StatusCommand
	Visit         *VisitCommand
	Star          *StarCommand
	History       *HistoryCommand
	Search        *SearchCommand
	Starred       *StarredCommand
	SessionStart  *SessionStartCommand
	SessionEnd    *SessionEndCommand
	Rematerialize *RematerializeCommand
	Check         *CheckCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "profilectl"
	parser.LongDescription = "Inspect and maintain a browser profile store: history, stars and sessions."

	cmds := &commands{
		Status:        &StatusCommand{globals: &globals, version: version},
		Visit:         &VisitCommand{globals: &globals},
		Star:          &StarCommand{globals: &globals},
		History:       &HistoryCommand{globals: &globals},
		Search:        &SearchCommand{globals: &globals},
		Starred:       &StarredCommand{globals: &globals},
		SessionStart:  &SessionStartCommand{globals: &globals},
		SessionEnd:    &SessionEndCommand{globals: &globals},
		Rematerialize: &RematerializeCommand{globals: &globals},
		Check:         &CheckCommand{globals: &globals},
	}

	parser.AddCommand("status", "Show profile statistics", "Show schema version, event counts and projection sizes for the profile.", cmds.Status)
	parser.AddCommand("visit", "Record a page visit", "Record a visit to a URL, with an optional page title.", cmds.Visit)
	parser.AddCommand("star", "Star or unstar a page", "Record a star (bookmark) or, with --unstar, an unstar event for a URL.", cmds.Star)
	parser.AddCommand("history", "List visited pages", "List visited pages, most recently visited first.", cmds.History)
	parser.AddCommand("search", "Search visited pages", "Search visited pages whose title or URL contains the query.", cmds.Search)
	parser.AddCommand("starred", "List starred pages", "List all currently starred pages.", cmds.Starred)
	parser.AddCommand("session-start", "Start a browsing session", "Record the start of a browsing session and print its id.", cmds.SessionStart)
	parser.AddCommand("session-end", "End a browsing session", "Record the end of a browsing session.", cmds.SessionEnd)
	parser.AddCommand("rematerialize", "Rebuild projections", "Recompute the history and starred tables from the event log.", cmds.Rematerialize)
	parser.AddCommand("check", "Verify projections", "Compare the history and starred tables with the event log.", cmds.Check)

	return parser, &globals, cmds
}

// Run is the main entry point for the profilectl CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("profilectl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
