package cart

import (
	"flag"
	"fmt"

	"github.com/birbparty/birb-commerce/internal/cmd/base"
	"github.com/birbparty/birb-commerce/sdk"
	"github.com/mitchellh/cli"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Manage the shopper cart"
}

func (c *Command) Help() string {
	return `Usage: commerce cart <subcommand> [options] [args]

  This command groups subcommands for the cart. The cart id is kept in the
  state directory and a new cart is created on first use.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

// simple covers the cart subcommands that take no arguments.
type simple struct {
	*base.Command

	name     string
	synopsis string
	action   string
	call     func(*sdk.Client) (*sdk.Result, error)
}

func (c *simple) Synopsis() string {
	return c.synopsis
}

func (c *simple) Help() string {
	return fmt.Sprintf("Usage: commerce cart %s [options]\n\n  %s.", c.name, c.synopsis) +
		c.Flags().Help()
}

func (c *simple) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("cart "+c.name, flag.ContinueOnError))
	c.ClientFlags(f)
	return f
}

func (c *simple) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := c.call(client)
	if err != nil {
		return c.Fail(c.action, err)
	}
	return c.Output(result.Data())
}

// NewShowCommand prints the current cart.
func NewShowCommand(b *base.Command) cli.Command {
	return &simple{
		Command:  b,
		name:     "show",
		synopsis: "Show the current cart",
		action:   "retrieving cart",
		call: func(client *sdk.Client) (*sdk.Result, error) {
			return client.Cart.Retrieve(b.Ctx)
		},
	}
}

// NewEmptyCommand removes every line item.
func NewEmptyCommand(b *base.Command) cli.Command {
	return &simple{
		Command:  b,
		name:     "empty",
		synopsis: "Remove every item from the cart",
		action:   "emptying cart",
		call: func(client *sdk.Client) (*sdk.Result, error) {
			return client.Cart.Empty(b.Ctx)
		},
	}
}

// NewDeleteCommand deletes the cart and forgets its id.
func NewDeleteCommand(b *base.Command) cli.Command {
	return &simple{
		Command:  b,
		name:     "delete",
		synopsis: "Delete the cart and forget its id",
		action:   "deleting cart",
		call: func(client *sdk.Client) (*sdk.Result, error) {
			return client.Cart.Delete(b.Ctx)
		},
	}
}

// NewRefreshCommand starts a new cart.
func NewRefreshCommand(b *base.Command) cli.Command {
	return &simple{
		Command:  b,
		name:     "refresh",
		synopsis: "Start a new cart",
		action:   "creating cart",
		call: func(client *sdk.Client) (*sdk.Result, error) {
			return client.Cart.Refresh(b.Ctx)
		},
	}
}
