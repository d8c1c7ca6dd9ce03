package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhouzirui/kite-dashboard/backend/internal/client"
	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
)

type holdingsCmd struct {
	cfg *config.Config
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display stored holdings with their portfolio share" }
func (*holdingsCmd) Usage() string {
	return `holdings

  Lists every holding with price, value, P&L and share of the portfolio.
`
}
func (*holdingsCmd) SetFlags(*flag.FlagSet) {}

func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rows, err := client.New(c.cfg.Client.BaseURL, nil).Holdings(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching holdings: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(os.Stdout, newRenderer(), holdingsMarkdown(rows))
	return subcommands.ExitSuccess
}

type sectorsCmd struct {
	cfg *config.Config
}

func (*sectorsCmd) Name() string     { return "sectors" }
func (*sectorsCmd) Synopsis() string { return "display portfolio value per sector" }
func (*sectorsCmd) Usage() string {
	return `sectors

  Shows the total value held in each sector and its share of the portfolio.
`
}
func (*sectorsCmd) SetFlags(*flag.FlagSet) {}

func (c *sectorsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rows, err := client.New(c.cfg.Client.BaseURL, nil).Sectors(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching sector allocation: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(os.Stdout, newRenderer(), sectorsMarkdown(rows))
	return subcommands.ExitSuccess
}

type newsCmd struct {
	cfg *config.Config
}

func (*newsCmd) Name() string     { return "news" }
func (*newsCmd) Synopsis() string { return "summarize the latest news for the top holdings" }
func (*newsCmd) Usage() string {
	return `news

  Fetches one summarized article per top holding with its sentiment.
`
}
func (*newsCmd) SetFlags(*flag.FlagSet) {}

func (c *newsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	items, err := client.New(c.cfg.Client.BaseURL, nil).News(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching market news: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(os.Stdout, newRenderer(), newsMarkdown(items))
	return subcommands.ExitSuccess
}

type loginCmd struct {
	cfg *config.Config
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "print the broker login link" }
func (*loginCmd) Usage() string {
	return `login

  Prints the Kite Connect login URL to open in a browser.
`
}
func (*loginCmd) SetFlags(*flag.FlagSet) {}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	loginURL, err := client.New(c.cfg.Client.BaseURL, nil).LoginURL(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching login url: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(loginURL)
	return subcommands.ExitSuccess
}
