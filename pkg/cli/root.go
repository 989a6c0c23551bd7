// Package cli implements the statehead command line client: list cluster
// entities, list and fetch node logs, and check the head's health.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/statehead/pkg/state"
)

const defaultAddress = "http://localhost:8265"

var kinds = func() []string {
	out := make([]string, len(state.Kinds))
	for i, k := range state.Kinds {
		out[i] = string(k)
	}
	return out
}()

type globalOptions struct {
	address string
	timeout time.Duration
}

// NewRootCommand builds the statehead command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "statehead",
		Short:         "Query cluster state and node logs through the head",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addr := os.Getenv("STATEHEAD_ADDRESS")
	if addr == "" {
		addr = defaultAddress
	}
	root.PersistentFlags().StringVar(&opts.address, "address", addr, "Head address (env STATEHEAD_ADDRESS)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-node timeout, whole seconds (head default 30s)")

	root.AddCommand(newListCommand(opts), newLogsCommand(opts), newHealthCommand(opts))
	return root
}

// Execute runs the command tree and prints a styled error on failure.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}

func newListCommand(g *globalOptions) *cobra.Command {
	var (
		limit   int
		filters []string
		format  string
		wide    bool
	)
	cmd := &cobra.Command{
		Use:       "list <" + strings.Join(kinds, "|") + ">",
		Short:     "List cluster entities of one kind",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !validKind(kind) {
				return fmt.Errorf("unknown kind %q, expected one of %s", kind, strings.Join(kinds, ", "))
			}
			p := ListParams{Limit: limit, Timeout: g.timeout}
			for _, f := range filters {
				k, v, ok := strings.Cut(f, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid filter %q, expected key=value", f)
				}
				p.Filters = append(p.Filters, [2]string{k, v})
			}

			env, err := NewHeadClient(g.address).List(cmd.Context(), kind, p)
			if err != nil {
				return err
			}
			if env.PartialFailureWarning != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("Warning: ")+*env.PartialFailureWarning)
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return printJSON(out, env.Result)
			}
			rows, err := decodeRows(env.Result)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, subtleStyle.Render("No "+kind+" found"))
				return nil
			}
			fmt.Fprintln(out, renderTable(columnsFor(kind, rows, wide), rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (head default 100)")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Equality filter key=value, repeatable")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&wide, "wide", false, "Show every field")
	return cmd
}

func newLogsCommand(g *globalOptions) *cobra.Command {
	var (
		t      LogTarget
		glob   string
		lines  int
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "logs [filename]",
		Short: "List a node's log files, or print one",
		Long: "Without a file selector (filename, --actor-id or --pid) the matching log\n" +
			"file names of the node are listed. With one, the file's last lines are\n" +
			"printed and, with --follow, new lines as they are written.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				t.Filename = args[0]
			}
			t.Timeout = g.timeout
			client := NewHeadClient(g.address)

			if t.Filename == "" && t.ActorID == "" && t.PID == "" {
				env, err := client.ListLogs(cmd.Context(), t, glob)
				if err != nil {
					return err
				}
				var names []string
				if err := json.Unmarshal(env.Result, &names); err != nil {
					return fmt.Errorf("decode result: %w", err)
				}
				sort.Strings(names)
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}
			return client.StreamLog(cmd.Context(), t, lines, follow, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&t.NodeID, "node-id", "", "Target node id")
	cmd.Flags().StringVar(&t.NodeIP, "node-ip", "", "Target node ip, used when --node-id is not given")
	cmd.Flags().StringVar(&t.ActorID, "actor-id", "", "Print the log of this actor's worker")
	cmd.Flags().StringVar(&t.PID, "pid", "", "Print the log of the worker with this pid")
	cmd.Flags().StringVar(&glob, "glob", "", "File name pattern when listing (default *)")
	cmd.Flags().IntVarP(&lines, "tail", "n", 0, "Number of trailing lines (head default 1000)")
	cmd.Flags().BoolVarP(&follow, "follow", "F", false, "Keep printing new lines")
	return cmd
}

func newHealthCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the head's health and registered agent counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := NewHeadClient(g.address).Health(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(h))
			for k := range h {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", headerStyle.Render(k+":"), h[k])
			}
			return nil
		},
	}
}

func validKind(kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
