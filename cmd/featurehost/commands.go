package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/trentlee0/utools-template/internal/app"
	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/pinyin"
)

// Global flags
type globalFlags struct {
	configPath string
	logLevel   string
	plugins    []string
}

func (g *globalFlags) options(logOutput io.Writer) app.Options {
	return app.Options{
		ConfigPath:  g.configPath,
		LogLevel:    g.logLevel,
		LogOutput:   logOutput,
		PluginPaths: g.plugins,
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "featurehost",
		Short: "Launcher for Lua feature plugins",
		Long: `featurehost loads Lua plugins that declare launcher features, compiles
them into no-UI, fixed-list and dynamic-list entries, and runs them from a
terminal launcher with pinyin-aware search.

Run without a subcommand to open the launcher.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("featurehost %s (commit %s, built %s)\n", version, commit, date))

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file (.toml or .yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringSliceVarP(&g.plugins, "plugins", "p", nil, "Additional plugin files or directories")

	runCmd := newRunCmd(g)
	root.RunE = runCmd.RunE
	root.Flags().AddFlagSet(runCmd.Flags())

	root.AddCommand(runCmd, newListCmd(g), newMatchCmd(), newVersionCmd())
	return root
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the launcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Without a log file logs would garble the screen.
			opts := g.options(io.Discard)
			opts.Watch = watch
			application, err := app.New(ctx, opts)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("failed to create terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("failed to initialize terminal: %w", err)
			}
			defer screen.Fini()

			return application.Run(ctx, screen)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload plugins when their files change")
	return cmd
}

func newListCmd(g *globalFlags) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compiled features",
		Long: `List every compiled feature with its mode and triggers.

Examples:
  featurehost list                 # All features
  featurehost list --input "dk"    # Features the input would offer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), g.options(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer application.Shutdown()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			exports := application.Exports()
			if input != "" {
				fmt.Fprintln(w, "CODE\tMODE\tTITLE\tPAYLOAD")
				for _, c := range application.Dispatcher().Candidates(input) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", c.Feature.Code, modeName(exports[c.Feature.Code]), c.Title(), c.Action.Payload)
				}
				return nil
			}

			fmt.Fprintln(w, "CODE\tMODE\tCMDS\tEXPLAIN")
			for _, f := range application.Features() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Code, modeName(exports[f.Code]), formatCmds(f.Cmds), f.Explain)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Only show features offered for this input")
	return cmd
}

// modeName labels an entry for the list table. Lists filled by a producer
// show as "dynamic".
func modeName(e feature.Entry) string {
	switch e := e.(type) {
	case nil:
		return "-"
	case *feature.ListEntry:
		if e.Dynamic() {
			return "dynamic"
		}
	}
	return string(e.Mode())
}

func formatCmds(cmds []host.Cmd) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		switch c.Type {
		case host.CmdKeyword:
			parts[i] = c.Label
		case host.CmdRegex, host.CmdFiles:
			parts[i] = fmt.Sprintf("%s(%s)", c.Type, c.Match)
		default:
			parts[i] = string(c.Type)
		}
	}
	return strings.Join(parts, ", ")
}

func newMatchCmd() *cobra.Command {
	var caseMode string
	cmd := &cobra.Command{
		Use:   "match <text> [pattern...]",
		Short: "Show how text romanizes and which patterns match it",
		Long: `Print the syllables of text and, for every pattern, the matched syllables.

Examples:
  featurehost match "打开 Chrome"
  featurehost match "打开 Chrome" dk kaichrome`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searcher := pinyin.NewSearcher(0, pinyin.Options{Case: pinyin.ParseCase(caseMode)})
			out := cmd.OutOrStdout()

			text := args[0]
			syllables := searcher.Syllables(text)
			fmt.Fprintf(out, "%s\n", strings.Join(syllables, " "))

			for _, pattern := range args[1:] {
				span, ok := searcher.MatchText(text, pattern)
				if !ok {
					fmt.Fprintf(out, "%s: no match\n", pattern)
					continue
				}
				from, to, _ := searcher.Highlight(text, pattern)
				runes := []rune(text)
				fmt.Fprintf(out, "%s: syllables %d-%d (%s) %q\n", pattern, span.From, span.To,
					strings.Join(syllables[span.From:span.To+1], " "), string(runes[from:to]))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&caseMode, "case", "lower", "Pattern case folding (lower, upper, sensitive)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "featurehost %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", date)
		},
	}
}
