// Package cli builds the cobra commands behind the factcheck, roast and
// roastcheck binaries.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"roastcheck/internal/prompt"
)

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.Stdin == nil {
		out.Stdin = os.Stdin
	}
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}
	return &out
}

// NewCommand builds the filter command for task. It reads one JSON object on
// stdin and prints the completion on stdout.
func NewCommand(task prompt.Task, opts *Options) *cobra.Command {
	opts = opts.withDefaults()
	st := &settings{}
	cmd := &cobra.Command{
		Use:   task.String(),
		Short: task.Short(),
		Example: fmt.Sprintf(`  echo '{"targetUsername":"bob","targetMessage":"the moon is cheese"}' | %s
  echo '{"targetMessage":"water is wet"}' | %s --dry-run`, task, task),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			return runFilter(cmd.Context(), task, cfg, st.dryRun, opts)
		},
	}
	cmd.SetIn(opts.Stdin)
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)
	st.bindSource(cmd.Flags())
	st.bindGeneration(cmd.Flags())
	return cmd
}

func newModelsCmd(opts *Options) *cobra.Command {
	st := &settings{}
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List gguf models in the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			mgr, err := buildManager(cfg, nil, opts.Adapter)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(opts.Stdout)
			table.SetHeader([]string{"ID", "Family", "Quant", "Size (MiB)", "Default"})
			for _, m := range mgr.ListModels() {
				def := ""
				if m.ID == mgr.ModelID() {
					def = "*"
				}
				table.Append([]string{m.ID, m.Family, m.Quant, strconv.FormatInt(m.SizeBytes>>20, 10), def})
			}
			table.Render()
			return nil
		},
	}
	st.bindSource(cmd.Flags())
	return cmd
}

func newSanityCmd(opts *Options) *cobra.Command {
	st := &settings{}
	cmd := &cobra.Command{
		Use:   "sanity",
		Short: "Check that the configured model and backend are usable",
		Long:  "Prints a JSON report. Exits non-zero when a check fails. The model is not loaded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			m, err := buildManager(cfg, nil, opts.Adapter)
			if err != nil {
				return err
			}
			rep := m.SanityCheck(cmd.Context())
			enc := json.NewEncoder(opts.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if !rep.OK {
				return fmt.Errorf("sanity check failed: %s", rep.Error)
			}
			return nil
		},
	}
	st.bindSource(cmd.Flags())
	return cmd
}

// NewRootCmd builds the unified roastcheck command tree. Cobra adds the
// completion subcommand.
func NewRootCmd(opts *Options) *cobra.Command {
	opts = opts.withDefaults()
	root := &cobra.Command{
		Use:           "roastcheck",
		Short:         "Fact-check or roast a chat message with a local language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	for _, t := range prompt.Tasks() {
		root.AddCommand(NewCommand(t, opts))
	}
	root.AddCommand(newModelsCmd(opts), newSanityCmd(opts))
	return root
}

// Main runs the standalone filter for task with the process arguments and
// returns the exit status.
func Main(task prompt.Task) int {
	return execute(NewCommand(task, nil), os.Args[1:], os.Stderr)
}

// MainRoot runs the unified command tree and returns the exit status.
func MainRoot() int {
	return execute(NewRootCmd(nil), os.Args[1:], os.Stderr)
}

func execute(cmd *cobra.Command, args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}
