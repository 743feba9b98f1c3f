package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/rigfit/config"
	"go.viam.com/rigfit/logging"
)

// printf prints a message with no decoration.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// newLogger returns the logger a command reports progress with.
func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(generalFlagDebug) {
		return logging.NewDebugLogger("rigfit")
	}
	return logging.NewLogger("rigfit")
}

// readConfig reads the config named by the global config flag.
func readConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg, err := config.Read(c.Context, c.String(generalFlagConfig), logger)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config %s", c.String(generalFlagConfig))
	}
	return cfg, nil
}

// ensureDir creates dir if needed.
func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "could not create directory: %s", dir)
	}
	return nil
}
