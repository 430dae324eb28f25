package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/kubekattle/ecsenv/internal/envtable"
)

type envRow struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Secret bool   `json:"secret"`
}

// envRows converts the table to display rows. Values are masked here, before
// any encoder sees them.
func envRows(table envtable.Table) []envRow {
	entries := table.Entries()
	out := make([]envRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, envRow{Name: e.Name, Value: e.Display(), Secret: e.Secret})
	}
	return out
}

func newEnvCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Resolve and print a service's environment without launching anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, cluster, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.logger.Sync() }()
			service, err := opts.pickService(ctx, p, cluster, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			table, err := p.resolveTable(ctx, cluster, service)
			if err != nil {
				return err
			}
			return renderEnv(cmd.OutOrStdout(), table, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "dotenv", "Output format: dotenv, table, json, yaml")
	return cmd
}

// renderEnv writes the table in the requested format. Every format goes
// through envRows (or printResolved), so secret values are masked no matter
// how the output is encoded.
func renderEnv(out io.Writer, table envtable.Table, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "dotenv":
		printResolved(out, table)
		return nil
	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVALUE\tSOURCE")
		for _, row := range envRows(table) {
			source := "plain"
			if row.Secret {
				source = "secret"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Name, row.Value, source)
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(envRows(table))
	case "yaml", "yml":
		b, err := yaml.Marshal(envRows(table))
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported --format %q (expected dotenv, table, json, or yaml)", format)
	}
}
