package cmd

import (
	"context"

	"github.com/birbparty/birb-commerce/internal/cmd/base"
	"github.com/birbparty/birb-commerce/internal/cmd/commands/cart"
	"github.com/birbparty/birb-commerce/internal/cmd/commands/catalog"
	"github.com/mitchellh/cli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Commands builds the command table for the commerce CLI.
func Commands(ctx context.Context, log logrus.FieldLogger, ui cli.Ui, fs afero.Fs) map[string]cli.CommandFactory {
	b := base.New(ctx, log, ui, fs)

	return map[string]cli.CommandFactory{
		"products": func() (cli.Command, error) {
			return &catalog.ProductsCommand{Command: b}, nil
		},
		"products list": func() (cli.Command, error) {
			return &catalog.ProductsListCommand{Command: b}, nil
		},
		"products show": func() (cli.Command, error) {
			return &catalog.ProductsShowCommand{Command: b}, nil
		},
		"categories": func() (cli.Command, error) {
			return &catalog.CategoriesCommand{Command: b}, nil
		},
		"categories list": func() (cli.Command, error) {
			return &catalog.CategoriesListCommand{Command: b}, nil
		},
		"categories show": func() (cli.Command, error) {
			return &catalog.CategoriesShowCommand{Command: b}, nil
		},
		"merchant": func() (cli.Command, error) {
			return &catalog.MerchantCommand{Command: b}, nil
		},
		"cart": func() (cli.Command, error) {
			return &cart.Command{Command: b}, nil
		},
		"cart show": func() (cli.Command, error) {
			return cart.NewShowCommand(b), nil
		},
		"cart add": func() (cli.Command, error) {
			return &cart.AddCommand{Command: b}, nil
		},
		"cart update": func() (cli.Command, error) {
			return &cart.UpdateCommand{Command: b}, nil
		},
		"cart remove": func() (cli.Command, error) {
			return &cart.RemoveCommand{Command: b}, nil
		},
		"cart empty": func() (cli.Command, error) {
			return cart.NewEmptyCommand(b), nil
		},
		"cart delete": func() (cli.Command, error) {
			return cart.NewDeleteCommand(b), nil
		},
		"cart refresh": func() (cli.Command, error) {
			return cart.NewRefreshCommand(b), nil
		},
		"version": func() (cli.Command, error) {
			return &versionCommand{ui: ui}, nil
		},
	}
}

type versionCommand struct {
	ui cli.Ui
}

func (c *versionCommand) Synopsis() string { return "Print the version" }

func (c *versionCommand) Help() string { return "Usage: commerce version" }

func (c *versionCommand) Run(args []string) int {
	c.ui.Output("commerce " + Version)
	return 0
}
