package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/gomato/internal/scheduler"
	"github.com/loykin/gomato/internal/session"
)

// errCancelled is returned when a session ended in Cancelled; it maps to exit
// code 1 without an error line.
var errCancelled = errors.New("session cancelled")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := buildRoot(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return exitCode(root.ExecuteContext(ctx), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCancelled):
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v.\n", err)
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		_, _ = fmt.Fprintln(stderr, "Hint: run `gomato status` to inspect it, or pass --force to cancel it first.")
	}
	return 1
}

// buildRoot creates the root command with its subcommands.
func buildRoot(stdout, stderr io.Writer) *cobra.Command {
	globalFlags := &GlobalFlags{}
	historyFlags := &HistoryFlags{}
	cancelFlags := &CancelFlags{}

	gomatoCommand := &command{global: globalFlags, stdout: stdout, stderr: stderr}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createSessionCommand(gomatoCommand, session.KindPomodoro, "Work sessions"),
		createSessionCommand(gomatoCommand, session.KindBreak, "Break sessions"),
		createStatusCommand(gomatoCommand),
		createCancelCommand(gomatoCommand, cancelFlags),
		createHistoryCommand(gomatoCommand, historyFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "gomato",
		Short: "Pomodoro timer",
		Long: `Gomato runs one pomodoro or break at a time and records every session.

Examples:
  gomato pomodoro start          # 25 minute work session
  gomato break start -d 10       # 10 minute break
  gomato status
  gomato cancel`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "print resolved paths and debug logs")
	root.PersistentFlags().DurationVar(&flags.TimeUnit, "time-unit", time.Minute, "length of one session minute")
	if err := root.PersistentFlags().MarkHidden("time-unit"); err != nil {
		panic(err)
	}
	return root
}

// createSessionCommand creates "pomodoro" or "break" with its start subcommand.
func createSessionCommand(gomatoCommand *command, kind session.Kind, short string) *cobra.Command {
	parent := &cobra.Command{
		Use:   kind.String(),
		Short: short,
	}
	parent.AddCommand(createStartCommand(gomatoCommand, kind, &StartFlags{}))
	return parent
}

func createStartCommand(gomatoCommand *command, kind session.Kind, startFlags *StartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: fmt.Sprintf("Start a %s and wait until it ends", kind),
		Long: fmt.Sprintf(`Start a %[1]s and block until it finishes or is interrupted.

Only one session may run at a time. With --force an existing session is
cancelled first, interrupting its owner when it is still alive.

Examples:
  gomato %[1]s start
  gomato %[1]s start -d 15 --force`, kind),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gomatoCommand.Start(cmd.Context(), kind, StartFlags{
				Minutes:     startFlags.Minutes,
				DurationSet: cmd.Flags().Changed("duration"),
				Force:       startFlags.Force,
				Wait:        startFlags.Wait,
			})
		},
	}
	cmd.Flags().IntVarP(&startFlags.Minutes, "duration", "d", 0, "length in minutes (default from config)")
	cmd.Flags().BoolVar(&startFlags.Force, "force", false, "cancel the running session first")
	cmd.Flags().DurationVar(&startFlags.Wait, "wait", 5*time.Second, "how long --force waits for the old owner")
	return cmd
}

func createStatusCommand(gomatoCommand *command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gomatoCommand.Status(cmd.Context())
		},
	}
}

func createCancelCommand(gomatoCommand *command, cancelFlags *CancelFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active session",
		Long: `Cancel the active session. A live owner is interrupted and given --wait
to record the cancellation itself; a stale session is marked cancelled directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gomatoCommand.Cancel(cmd.Context(), *cancelFlags)
		},
	}
	cmd.Flags().DurationVar(&cancelFlags.Wait, "wait", 5*time.Second, "how long to wait for the owner to stop")
	return cmd
}

func createHistoryCommand(gomatoCommand *command, historyFlags *HistoryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gomatoCommand.History(cmd.Context(), *historyFlags)
		},
	}
	cmd.Flags().IntVarP(&historyFlags.Limit, "limit", "n", 20, "number of sessions to show")
	return cmd
}
