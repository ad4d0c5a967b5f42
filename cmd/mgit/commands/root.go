package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mgit/pkg/app"
	"mgit/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries the state shared by one invocation's commands.
type cli struct {
	cfgFile string
	verbose bool

	settings *config.Settings
	app      *app.App
}

// Execute runs the command line against os.Args.
func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) error {
	// each invocation starts from a clean configuration
	viper.Reset()

	c := &cli{}
	root := c.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	if c.app != nil {
		if cerr := c.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mgit",
		Short:         "mgit: a content-addressable object store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ./.mgit/config.yaml or $HOME/.mgit/config.yaml)")
	flags.String("storage-path", "", "directory to store objects")
	flags.String("repo", "", "working tree root (default is the current directory)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.newInitCmd(),
		c.newHashObjectCmd(),
		c.newCatFileCmd(),
		c.newWriteTreeCmd(),
		c.newCommitTreeCmd(),
		c.newCommitCmd(),
		c.newLogCmd(),
		c.newCheckoutCmd(),
	)
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if err := viper.BindPFlag("storage.path", flags.Lookup("storage-path")); err != nil {
		return err
	}
	if err := viper.BindPFlag("repo.path", flags.Lookup("repo")); err != nil {
		return err
	}
	if err := config.Load(c.cfgFile); err != nil {
		return err
	}

	s, err := config.Current()
	if err != nil {
		return err
	}
	c.settings = s

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(strings.ToUpper(s.Log.Level))); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", slog.String("path", used))
	}
	return nil
}

// open wires the repository services on first use.
func (c *cli) open(cmd *cobra.Command) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.NewApp(cmd.Context(), c.settings)
	if err != nil {
		return nil, fmt.Errorf("%w\n(did you run 'mgit init'?)", err)
	}
	c.app = a
	return a, nil
}
