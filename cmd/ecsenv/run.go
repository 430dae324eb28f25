// File: cmd/ecsenv/run.go
// Brief: Root command: resolve a service's environment and launch a command with it.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/kubekattle/ecsenv/internal/clusterset"
	"github.com/kubekattle/ecsenv/internal/directory"
	"github.com/kubekattle/ecsenv/internal/envtable"
	"github.com/kubekattle/ecsenv/internal/launch"
	"github.com/kubekattle/ecsenv/internal/logging"
	"github.com/kubekattle/ecsenv/internal/paramstore"
	"github.com/kubekattle/ecsenv/internal/taskdef"
)

// usageError is an operator mistake on the command line, reported with exit
// code 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

type rootOptions struct {
	clusterName  string
	service      string
	region       string
	logLevel     string
	noColor      bool
	clusterSpecs []string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ecsenv -- COMMAND [ARGS...]",
		Short: "Run a command with the resolved environment of an ECS service",
		Long: `ecsenv resolves the runtime environment of a deployed ECS service: the
plain environment entries of its task definition merged with the secrets the
definition references in the parameter store. It then launches a command with
exactly that environment. Secret values are masked in everything ecsenv
prints; only the launched command sees them.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, args, opts)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.clusterName, "cluster", "c", "", "Target cluster (must be one of the configured known clusters)")
	pf.StringVarP(&opts.service, "service", "s", "", "Service to resolve; prompts interactively when omitted")
	pf.StringVar(&opts.region, "region", "", "AWS region override (defaults to the cluster's configured region)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level for ecsenv output (debug, info, warn, error)")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	pf.StringSliceVar(&opts.clusterSpecs, "clusters", nil, "Known clusters as name or name=region (also via config file or ECSENV_CLUSTERS)")
	envCmd := newEnvCommand(opts)
	servicesCmd := newServicesCommand(opts)
	cmd.AddCommand(envCmd, servicesCmd)
	cmd.Example = `  # Open a rails console with web's production environment
  ecsenv --cluster prod --service web -- bundle exec rails console

  # Pick the service interactively
  ecsenv --cluster staging -- psql

  # Inspect the resolved environment without launching anything
  ecsenv env --cluster prod --service web`
	bindViper(cmd, envCmd, servicesCmd)
	return cmd
}

// pipeline bundles the three query stages behind their narrow interfaces so
// tests can substitute fakes.
type pipeline struct {
	logger  *zap.Logger
	dir     *directory.Client
	defs    *taskdef.Resolver
	secrets *paramstore.Resolver
}

// ecsAPI is the union of the ECS surface the pipeline consumes.
type ecsAPI interface {
	directory.API
	taskdef.API
}

func newPipeline(logger *zap.Logger, ecsClient ecsAPI, ssmClient paramstore.API) *pipeline {
	return &pipeline{
		logger:  logger,
		dir:     directory.New(ecsClient),
		defs:    taskdef.New(ecsClient),
		secrets: paramstore.New(ssmClient),
	}
}

// setup validates the cluster against the known set and builds the pipeline
// on real AWS clients.
func (o *rootOptions) setup(ctx context.Context) (*pipeline, clusterset.Cluster, error) {
	if o.noColor {
		color.NoColor = true
	}
	logger, err := logging.New(o.logLevel)
	if err != nil {
		return nil, clusterset.Cluster{}, err
	}
	if strings.TrimSpace(o.clusterName) == "" {
		return nil, clusterset.Cluster{}, &usageError{msg: "--cluster is required"}
	}
	set, err := clusterset.Parse(o.clusterSpecs)
	if err != nil {
		return nil, clusterset.Cluster{}, err
	}
	cluster, err := set.Resolve(o.clusterName)
	if err != nil {
		return nil, clusterset.Cluster{}, err
	}
	region := cluster.Region
	if strings.TrimSpace(o.region) != "" {
		region = strings.TrimSpace(o.region)
	}
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, clusterset.Cluster{}, fmt.Errorf("load aws config: %w", err)
	}
	return newPipeline(logger, ecs.NewFromConfig(awsCfg), ssm.NewFromConfig(awsCfg)), cluster, nil
}

// pickService returns the explicitly requested service, or prompts with the
// cluster's service list when none was given.
func (o *rootOptions) pickService(ctx context.Context, p *pipeline, cluster clusterset.Cluster, in io.Reader, out io.Writer) (string, error) {
	if s := strings.TrimSpace(o.service); s != "" {
		return s, nil
	}
	services, err := p.dir.ListServices(ctx, cluster.Name)
	if err != nil {
		return "", err
	}
	if len(services) == 0 {
		return "", &emptyDirectoryError{cluster: cluster.Name}
	}
	// Only a real terminal gets the prompt; piped stdin must pass --service.
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return selectService(ctx, in, out, services, interactive)
}

// resolveTable runs the linear resolution pipeline: definition reference,
// declared environment, secret batch, merge.
func (p *pipeline) resolveTable(ctx context.Context, cluster clusterset.Cluster, service string) (envtable.Table, error) {
	ref, err := p.dir.CurrentDefinition(ctx, cluster.Name, service)
	if err != nil {
		return envtable.Table{}, err
	}
	p.logger.Debug("resolved deployed definition",
		zap.String("service", service),
		zap.String("taskDefinition", ref))
	plain, refs, err := p.defs.Resolve(ctx, ref)
	if err != nil {
		return envtable.Table{}, err
	}
	resolved, err := p.secrets.ResolveBatch(ctx, refs)
	if err != nil {
		return envtable.Table{}, err
	}
	// Unresolved refs are dropped from the table rather than failing the
	// run; log the names (never the locators' values) so the omission is
	// at least observable.
	for _, name := range envtable.Unresolved(refs, resolved) {
		p.logger.Debug("secret reference did not resolve; dropping", zap.String("name", name))
	}
	return envtable.Merge(plain, refs, resolved), nil
}

// printResolved renders the masked table, one NAME=VALUE line per entry.
// This is the only place secrets become displayable text.
func printResolved(out io.Writer, table envtable.Table) {
	secretLine := color.New(color.FgYellow).SprintFunc()
	for _, e := range table.Entries() {
		line := e.Name + "=" + e.Display()
		if e.Secret {
			line = secretLine(line)
		}
		fmt.Fprintln(out, line)
	}
}

func runLaunch(cmd *cobra.Command, args []string, opts *rootOptions) error {
	if len(args) == 0 {
		return &usageError{msg: "no command given; usage: ecsenv --cluster NAME -- COMMAND [ARGS...]"}
	}
	argv := args
	if len(args) == 1 {
		split, err := launch.Split(args[0])
		if err != nil {
			return err
		}
		argv = split
	}
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
	printResolved(cmd.ErrOrStderr(), table)
	p.logger.Info("launching command",
		zap.String("cluster", cluster.Name),
		zap.String("service", service),
		zap.Int("entries", table.Len()),
		zap.Strings("argv", argv))
	code, err := launch.Run(ctx, argv, table.Environ(), launch.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return &childExitError{code: code}
	}
	return nil
}
