// Package base holds what every commerce subcommand shares: the UI, the
// logger and the flags that configure the SDK client.
package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/birbparty/birb-commerce/sdk"
	"github.com/birbparty/birb-commerce/storage"
	"github.com/mitchellh/cli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// HeaderDebug asks the API to include console output in its responses.
const HeaderDebug = "X-Commerce-Debug"

// Command is embedded by every subcommand.
type Command struct {
	Ctx context.Context
	Log logrus.FieldLogger
	UI  cli.Ui
	// Fs holds client state such as the cart id
	Fs afero.Fs

	flagBaseURL  string
	flagKey      string
	flagDebug    bool
	flagStateDir string
	flagTimeout  time.Duration
}

// New returns a Command writing to ui. A nil fs uses the OS filesystem.
func New(ctx context.Context, log logrus.FieldLogger, ui cli.Ui, fs afero.Fs) *Command {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Command{Ctx: ctx, Log: log, UI: ui, Fs: fs}
}

// ClientFlags registers the flags that configure the SDK client. Defaults
// come from the COMMERCE_* environment.
func (c *Command) ClientFlags(f *FlagSet) {
	f.StringVar(&c.flagBaseURL, "base-url", "",
		"API host. Overrides COMMERCE_BASE_URL.")
	f.StringVar(&c.flagKey, "key", "",
		"Public API key. Overrides COMMERCE_PUBLIC_KEY.")
	f.BoolVar(&c.flagDebug, "debug", false,
		"Print console output returned by the API and details of failed requests.")
	f.StringVar(&c.flagStateDir, "state-dir", "",
		"Directory holding the cart id between runs. Overrides COMMERCE_STATE_DIR.")
	f.DurationVar(&c.flagTimeout, "timeout", 0,
		"Request timeout.")
}

// StateDir resolves where client state is kept.
func (c *Command) StateDir() string {
	if c.flagStateDir != "" {
		return c.flagStateDir
	}
	if dir := os.Getenv("COMMERCE_STATE_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "birb-commerce")
	}
	return ".birb-commerce"
}

// Client builds an SDK client from the environment and the parsed flags.
// Reported events and debug output are written to the UI.
func (c *Command) Client() (*sdk.Client, error) {
	cfg, err := sdk.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if c.flagBaseURL != "" {
		cfg.WithBaseURL(c.flagBaseURL)
	}
	if c.flagTimeout > 0 {
		cfg.WithTimeout(c.flagTimeout)
	}
	debug := c.flagDebug || cfg.Debug
	if debug {
		cfg.WithHeader(HeaderDebug, "true")
	}

	store, err := storage.NewFileStore(c.Fs, c.StateDir())
	if err != nil {
		return nil, err
	}

	cfg.WithStorage(store).
		WithLogger(c.Log).
		WithEventCallback(func(name string) {
			c.UI.Info("event: " + name)
		}).
		WithDebugSink(sdk.DebugSinkFunc(c.debugLine))

	client, err := sdk.New(c.flagKey, debug, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return client, nil
}

func (c *Command) debugLine(level string, args ...any) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if s, ok := arg.(string); ok {
			parts = append(parts, s)
			continue
		}
		data, err := json.Marshal(arg)
		if err != nil {
			parts = append(parts, fmt.Sprint(arg))
			continue
		}
		parts = append(parts, string(data))
	}
	line := fmt.Sprintf("[%s] %s", level, strings.Join(parts, " "))
	if level == "error" {
		c.UI.Warn(line)
		return
	}
	c.UI.Info(line)
}

// Output prints v as indented JSON.
func (c *Command) Output(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("error rendering output: %v", err))
		return 1
	}
	c.UI.Output(string(data))
	return 0
}

// Fail reports err and returns the exit code for it. API errors include
// the response body the server sent.
func (c *Command) Fail(action string, err error) int {
	c.UI.Error(fmt.Sprintf("error %s: %v", action, err))
	var sdkErr *sdk.Error
	if errors.As(err, &sdkErr) && sdkErr.Data != nil {
		if data, err := json.MarshalIndent(sdkErr.Data, "", "  "); err == nil {
			c.UI.Error(string(data))
		}
	}
	return 1
}
