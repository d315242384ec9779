package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/justice/config"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// options are the flags shared by every subcommand.
type options struct {
	dir       string
	classPath []string
	verbose   int
	logFile   string

	config *config.Config
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.FindAndLoad(o.dir)
	if err != nil {
		return err
	}
	o.config = cfg

	verbosity := cfg.Log.Verbosity
	if cmd.Flags().Changed("verbose") {
		verbosity = o.verbose
	}
	path := cfg.LogFile()
	if o.logFile != "" {
		path = o.logFile
	}
	if path == "" {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &path)
	}
	return nil
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "justice",
		Short:   "Verify Java class files",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "directory to search for justice.toml")
	rootCmd.PersistentFlags().StringSliceVar(&opts.classPath, "cp", nil, "additional class path entries (directories, jars, jmods)")
	rootCmd.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newRoundtripCmd(opts))
	rootCmd.AddCommand(newCacheCmd(opts))
	rootCmd.AddCommand(newLSPCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
