// Command h2trade is the command-line client for the hydrogen marketplace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/h2market/h2trade/internal/app"
	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/pkg/config"
	"github.com/h2market/h2trade/pkg/logger"
)

const usage = `usage: h2trade <command> [flags]

commands:
  login      -u <username|email> -p <password>
  register   -u <username> -e <email> -p <password> [-org <name>]
  logout
  whoami
  listings
  listing    -id <listing id>
  list       -qty <kg> -price <per kg> -region <region> -method <method>
             [-purity <%>] [-ghg <kgCO2e/kg>] [-feedstock] [-energy] [-terms] [-from <YYYY-MM-DD>]
  orders
  dashboard  [-refresh]
  bid        -listing <id> -qty <kg> -price <per kg>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "h2trade"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger.Component("app"))
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Session.Store).Msg("open session")
	}
	defer a.Close(context.Background())

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err := cmd(ctx, a, os.Args[2:]); err != nil {
		if a.Session.ExpireOnUnauthorized(ctx, err) {
			fmt.Fprintln(os.Stderr, "Your session has expired. Please log in again.")
		}
		fmt.Fprintln(os.Stderr, "error:", domain.Message(err))
		log.Debug().Err(err).Str("command", os.Args[1]).Msg("command failed")
		a.Close(context.Background())
		os.Exit(1)
	}
}
