package catalog

import (
	"flag"

	"github.com/birbparty/birb-commerce/internal/cmd/base"
	"github.com/birbparty/birb-commerce/sdk"
	"github.com/mitchellh/cli"
)

type CategoriesCommand struct {
	*base.Command
}

func (c *CategoriesCommand) Synopsis() string {
	return "Browse product categories"
}

func (c *CategoriesCommand) Help() string {
	return `Usage: commerce categories <subcommand> [options] [args]

  This command groups subcommands for listing and retrieving categories.`
}

func (c *CategoriesCommand) Run(args []string) int {
	return cli.RunResultHelp
}

type CategoriesListCommand struct {
	*base.Command

	flagLimit int
	flagPage  int
}

func (c *CategoriesListCommand) Synopsis() string {
	return "List categories"
}

func (c *CategoriesListCommand) Help() string {
	return `Usage: commerce categories list [options]` + c.Flags().Help()
}

func (c *CategoriesListCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("categories list", flag.ContinueOnError))
	c.ClientFlags(f)
	f.IntVar(&c.flagLimit, "limit", 0, "Maximum number of categories per page.")
	f.IntVar(&c.flagPage, "page", 0, "Page number, starting at 1.")
	return f
}

func (c *CategoriesListCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	params := sdk.NewObject()
	setInt(params, "limit", c.flagLimit)
	setInt(params, "page", c.flagPage)

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Categories.List(c.Ctx, params)
	if err != nil {
		return c.Fail("listing categories", err)
	}
	return c.Output(result.Data())
}

type CategoriesShowCommand struct {
	*base.Command
}

func (c *CategoriesShowCommand) Synopsis() string {
	return "Show a single category"
}

func (c *CategoriesShowCommand) Help() string {
	return `Usage: commerce categories show [options] <id-or-slug>` + c.Flags().Help()
}

func (c *CategoriesShowCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("categories show", flag.ContinueOnError))
	c.ClientFlags(f)
	return f
}

func (c *CategoriesShowCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("expected exactly one category id or slug")
		return cli.RunResultHelp
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Categories.Retrieve(c.Ctx, flags.Arg(0), nil)
	if err != nil {
		return c.Fail("retrieving category", err)
	}
	return c.Output(result.Data())
}

type MerchantCommand struct {
	*base.Command
}

func (c *MerchantCommand) Synopsis() string {
	return "Show the merchant behind the API key"
}

func (c *MerchantCommand) Help() string {
	return `Usage: commerce merchant [options]` + c.Flags().Help()
}

func (c *MerchantCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("merchant", flag.ContinueOnError))
	c.ClientFlags(f)
	return f
}

func (c *MerchantCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Merchants.About(c.Ctx)
	if err != nil {
		return c.Fail("retrieving merchant", err)
	}
	return c.Output(result.Data())
}
