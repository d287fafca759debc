package cart

import (
	"flag"

	"github.com/birbparty/birb-commerce/internal/cmd/base"
	"github.com/birbparty/birb-commerce/sdk"
	"github.com/mitchellh/cli"
)

type AddCommand struct {
	*base.Command

	flagQuantity int
	flagOptions  base.KeyValueFlag
}

func (c *AddCommand) Synopsis() string {
	return "Add a product to the cart"
}

func (c *AddCommand) Help() string {
	return `Usage: commerce cart add [options] <product-id>

  Adds a product to the cart. Variant options are given as group=option
  pairs and may be repeated:

      $ commerce cart add -quantity 2 -option vgrp_size=optn_large prod_123` +
		c.Flags().Help()
}

func (c *AddCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("cart add", flag.ContinueOnError))
	c.ClientFlags(f)

	c.flagOptions = base.KeyValueFlag{}
	f.IntVar(&c.flagQuantity, "quantity", 1, "Quantity to add.")
	f.Var(c.flagOptions, "option", "Variant option as group=option. May be repeated.")

	return f
}

func (c *AddCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("expected exactly one product id")
		return cli.RunResultHelp
	}
	if c.flagQuantity < 1 {
		c.UI.Error("quantity must be at least 1")
		return 1
	}

	var options any
	if len(c.flagOptions) > 0 {
		options = map[string]string(c.flagOptions)
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Cart.Add(c.Ctx, flags.Arg(0), c.flagQuantity, options)
	if err != nil {
		return c.Fail("adding to cart", err)
	}
	return c.Output(result.Data())
}

type UpdateCommand struct {
	*base.Command

	flagQuantity int
}

func (c *UpdateCommand) Synopsis() string {
	return "Change the quantity of a line item"
}

func (c *UpdateCommand) Help() string {
	return `Usage: commerce cart update -quantity=<n> [options] <line-item-id>

  Sets the quantity of a line item. A quantity of 0 removes it.` +
		c.Flags().Help()
}

func (c *UpdateCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("cart update", flag.ContinueOnError))
	c.ClientFlags(f)
	f.IntVar(&c.flagQuantity, "quantity", -1, "(Required) New quantity.")
	return f
}

func (c *UpdateCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("expected exactly one line item id")
		return cli.RunResultHelp
	}
	if c.flagQuantity < 0 {
		c.UI.Error("quantity flag is required")
		return 1
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Cart.Update(c.Ctx, flags.Arg(0),
		sdk.NewObject().Set("quantity", c.flagQuantity))
	if err != nil {
		return c.Fail("updating line item", err)
	}
	return c.Output(result.Data())
}

type RemoveCommand struct {
	*base.Command
}

func (c *RemoveCommand) Synopsis() string {
	return "Remove a line item from the cart"
}

func (c *RemoveCommand) Help() string {
	return `Usage: commerce cart remove [options] <line-item-id>` + c.Flags().Help()
}

func (c *RemoveCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("cart remove", flag.ContinueOnError))
	c.ClientFlags(f)
	return f
}

func (c *RemoveCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("expected exactly one line item id")
		return cli.RunResultHelp
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Cart.Remove(c.Ctx, flags.Arg(0))
	if err != nil {
		return c.Fail("removing line item", err)
	}
	return c.Output(result.Data())
}
