package catalog

import (
	"flag"

	"github.com/birbparty/birb-commerce/internal/cmd/base"
	"github.com/birbparty/birb-commerce/sdk"
	"github.com/mitchellh/cli"
)

type ProductsCommand struct {
	*base.Command
}

func (c *ProductsCommand) Synopsis() string {
	return "Browse the product catalog"
}

func (c *ProductsCommand) Help() string {
	return `Usage: commerce products <subcommand> [options] [args]

  This command groups subcommands for listing and retrieving products.`
}

func (c *ProductsCommand) Run(args []string) int {
	return cli.RunResultHelp
}

type ProductsListCommand struct {
	*base.Command

	flagLimit     int
	flagPage      int
	flagCategory  string
	flagQuery     string
	flagSortBy    string
	flagDirection string
}

func (c *ProductsListCommand) Synopsis() string {
	return "List products"
}

func (c *ProductsListCommand) Help() string {
	return `Usage: commerce products list [options]

  Lists products, optionally filtered by category or a search query.` +
		c.Flags().Help()
}

func (c *ProductsListCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("products list", flag.ContinueOnError))
	c.ClientFlags(f)

	f.IntVar(&c.flagLimit, "limit", 0, "Maximum number of products per page.")
	f.IntVar(&c.flagPage, "page", 0, "Page number, starting at 1.")
	f.StringVar(&c.flagCategory, "category", "", "Only list products in this category slug.")
	f.StringVar(&c.flagQuery, "query", "", "Search product names and descriptions.")
	f.StringVar(&c.flagSortBy, "sort", "", "Sort field: name, price or created.")
	f.StringVar(&c.flagDirection, "direction", "", "Sort direction: asc or desc.")

	return f
}

func (c *ProductsListCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	params := sdk.NewObject()
	setInt(params, "limit", c.flagLimit)
	setInt(params, "page", c.flagPage)
	setString(params, "category_slug", c.flagCategory)
	setString(params, "query", c.flagQuery)
	setString(params, "sortBy", c.flagSortBy)
	setString(params, "sortDirection", c.flagDirection)

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Products.List(c.Ctx, params)
	if err != nil {
		return c.Fail("listing products", err)
	}
	return c.Output(result.Data())
}

type ProductsShowCommand struct {
	*base.Command
}

func (c *ProductsShowCommand) Synopsis() string {
	return "Show a single product"
}

func (c *ProductsShowCommand) Help() string {
	return `Usage: commerce products show [options] <id-or-permalink>

  Retrieves a product by id or permalink.` +
		c.Flags().Help()
}

func (c *ProductsShowCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("products show", flag.ContinueOnError))
	c.ClientFlags(f)
	return f
}

func (c *ProductsShowCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("expected exactly one product id or permalink")
		return cli.RunResultHelp
	}

	client, err := c.Client()
	if err != nil {
		return c.Fail("creating client", err)
	}
	defer client.Close()

	result, err := client.Products.Retrieve(c.Ctx, flags.Arg(0), nil)
	if err != nil {
		return c.Fail("retrieving product", err)
	}
	return c.Output(result.Data())
}

func setInt(o *sdk.Object, key string, v int) {
	if v > 0 {
		o.Set(key, v)
	}
}

func setString(o *sdk.Object, key, v string) {
	if v != "" {
		o.Set(key, v)
	}
}
