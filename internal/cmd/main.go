// Package cmd implements the commerce command line tool: browse a catalog
// and drive a cart against the commerce API or a local sandbox.
package cmd

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/birbparty/birb-commerce/sdk"
	"github.com/mitchellh/cli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Version of the command line tool
var Version = sdk.Version

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := "commerce"
	if len(args) > 0 {
		args = args[1:]
	}

	if len(args) == 1 && (args[0] == "-version" || args[0] == "-v") {
		args = []string{"version"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	return Run(ctx, cliName, args, log, ui, nil)
}

// Run executes args against the command table. A nil fs uses the OS
// filesystem for client state.
func Run(ctx context.Context, name string, args []string, log logrus.FieldLogger, ui cli.Ui, fs afero.Fs) int {
	c := &cli.CLI{
		Name:       name,
		Args:       args,
		Version:    Version,
		Commands:   Commands(ctx, log, ui, fs),
		HelpWriter: uiWriter{ui},
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return exitCode
}

// uiWriter sends help text through the UI so tests can capture it.
type uiWriter struct {
	ui cli.Ui
}

func (w uiWriter) Write(p []byte) (int, error) {
	w.ui.Error(string(p))
	return len(p), nil
}
