package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newServicesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services deployed in a cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, cluster, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.logger.Sync() }()
			services, err := p.dir.ListServices(ctx, cluster.Name)
			if err != nil {
				return err
			}
			if len(services) == 0 {
				return &emptyDirectoryError{cluster: cluster.Name}
			}
			for _, svc := range services {
				fmt.Fprintln(cmd.OutOrStdout(), svc)
			}
			return nil
		},
	}
}
