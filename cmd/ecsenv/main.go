// main.go bootstraps ecsenv: it builds the root Cobra command, wires the
// viper config overlay, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kubekattle/ecsenv/internal/clusterset"
	"github.com/kubekattle/ecsenv/internal/directory"
	"github.com/kubekattle/ecsenv/internal/launch"
	"github.com/kubekattle/ecsenv/internal/paramstore"
	"github.com/kubekattle/ecsenv/internal/taskdef"
)

// Exit codes. The launched command's own exit code is propagated verbatim
// and therefore not listed here.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitNotFound    = 3
	exitUnavailable = 4
	exitAborted     = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	os.Exit(exitCode(err))
}

// childExitError carries a nonzero exit code from the launched command. The
// child already reported whatever it had to say; ecsenv only forwards the
// code.
type childExitError struct {
	code int
}

func (e *childExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.code)
}

// emptyDirectoryError is the expected empty-result path: the cluster exists
// but has no services. Informational, not a crash.
type emptyDirectoryError struct {
	cluster string
}

func (e *emptyDirectoryError) Error() string {
	return fmt.Sprintf("no services found in cluster %q", e.cluster)
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	var childExit *childExitError
	if errors.As(err, &childExit) {
		return
	}
	var emptyDir *emptyDirectoryError
	if errors.As(err, &emptyDir) {
		fmt.Fprintln(os.Stderr, emptyDir.Error())
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, directory.ErrUnavailable), errors.Is(err, taskdef.ErrUnavailable):
		message = fmt.Sprintf("%s\nHint: check AWS credentials and network reachability, then re-run.", err)
	case errors.Is(err, paramstore.ErrUnavailable):
		message = fmt.Sprintf("%s\nHint: the task definition resolved but the parameter store did not answer; check ssm:GetParameters permissions.", err)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed).Sprint("Error:"), message)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var childExit *childExitError
	if errors.As(err, &childExit) {
		return childExit.code
	}
	var unknownCluster *clusterset.UnknownError
	var serviceNotFound *directory.ServiceNotFoundError
	var definitionNotFound *taskdef.NotFoundError
	var usage *usageError
	switch {
	case errors.Is(err, launch.ErrAborted):
		return exitAborted
	case errors.As(err, &unknownCluster), errors.As(err, &usage):
		return exitUsage
	case errors.As(err, &serviceNotFound), errors.As(err, &definitionNotFound):
		return exitNotFound
	case errors.Is(err, directory.ErrUnavailable),
		errors.Is(err, taskdef.ErrUnavailable),
		errors.Is(err, paramstore.ErrUnavailable):
		return exitUnavailable
	}
	return exitFailure
}

func bindViper(commands ...*cobra.Command) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("ECSENV")
	v.AutomaticEnv()
	configFile := os.Getenv("ECSENV_CONFIG")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		for _, dir := range configSearchDirs() {
			v.AddConfigPath(dir)
		}
	}

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := flagValueString(v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

// flagValueString renders a viper value so pflag can re-parse it. Config
// lists (e.g. the clusters key) become comma-separated values.
func flagValueString(val interface{}) string {
	switch typed := val.(type) {
	case []interface{}:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(typed, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "ecsenv"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "ecsenv"))
		add(filepath.Join(home, ".ecsenv"))
	}
	return dirs
}
