package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/jwtly10/go-postjson/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the postjson command. Every argument is positional, so
// values that start with a dash are posted as is rather than parsed as flags.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postjson <name> <value>",
		Short: "POST {\"<name>\":\"<value>\"} as JSON to a test endpoint",
		Long: `Builds a one entry JSON object from the two arguments and POSTs it.

The endpoint, CA bundle and trace output are read from the environment
(POSTJSON_URL, POSTJSON_CA_BUNDLE, POSTJSON_VERBOSE), or from a .env file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, positional(args)); err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			return nil
		},
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				fmt.Fprintf(stderr, "%s %v\n", color.Red.Sprint("Fatal:"), err)
				return err
			}

			logger, closer := SetupLogger(cfg)
			defer closer.Close()

			args = positional(args)
			app := NewApp(cfg, logger, stdout, stderr)
			return app.Run(cmd.Context(), args[0], args[1])
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// positional drops the "--" Execute puts in front of the arguments
func positional(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}

// Execute runs postjson with args and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(stdout, stderr)
	// The leading "--" stops cobra from matching the first argument against
	// its hidden commands such as __complete. It also keeps a nil slice from
	// falling back to os.Args.
	cmd.SetArgs(append([]string{"--"}, args...))

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(stderr, usage)
		}
		return 1
	}
	return 0
}
