package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goflags "github.com/jessevdk/go-flags"

	manager "github.com/RomanDevelop/alien-manager"
	"github.com/RomanDevelop/alien-manager/app"
	"github.com/RomanDevelop/alien-manager/common"
)

var config app.Config

func waitForShutdown(f func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	s, ok := <-c
	if !ok {
		return
	}
	log.Printf("Got signal: %v", s)

	f()
}

// withManager opens the manager for a single command. The context is
// cancelled on SIGINT or SIGTERM.
func withManager(f func(ctx context.Context, m *manager.Manager) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	m, closer, err := app.Open(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Printf("Close failed: %v", err)
		}
	}()
	return f(ctx, m)
}

func parseAmount(s string) (*big.Int, error) {
	amount, err := common.ParseEther(s)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, common.ErrInvalidAmount
	}
	return amount, nil
}

// parseTime accepts unix seconds or RFC 3339.
func parseTime(s string) (time.Time, error) {
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q is neither unix seconds nor RFC 3339", s)
	}
	return t, nil
}

func addCommand(parser *goflags.Parser, name, short string, data interface{}) {
	if _, err := parser.AddCommand(name, short, "", data); err != nil {
		log.Fatalf("Failed to add command %s: %v", name, err)
	}
}

func main() {
	log.SetFlags(0)
	errWrongCommand := 2

	parser := goflags.NewParser(&config, goflags.HelpFlag|goflags.PassDoubleDash)
	addCommand(parser, "status", "Show presale phase and progress", &statusCommand{})
	addCommand(parser, "info", "Show presale status and a user's contribution", &infoCommand{})
	addCommand(parser, "conditions", "Show sale conditions and purchase examples", &conditionsCommand{})
	addCommand(parser, "balances", "Show MATIC and ALIEN balances", &balancesCommand{})
	addCommand(parser, "buy", "Buy tokens for the given MATIC amount", &buyCommand{})
	addCommand(parser, "claim", "Claim purchased tokens", &claimCommand{})
	addCommand(parser, "withdraw-funds", "Withdraw raised MATIC (owner)", &withdrawFundsCommand{})
	addCommand(parser, "withdraw-tokens", "Withdraw unsold tokens (owner)", &withdrawTokensCommand{})
	addCommand(parser, "emergency-withdraw", "Withdraw the presale balance with a high gas limit (owner)", &emergencyCommand{})
	addCommand(parser, "pause", "Pause the presale (owner)", &pauseCommand{paused: true})
	addCommand(parser, "resume", "Resume the presale (owner)", &pauseCommand{paused: false})
	addCommand(parser, "update-price", "Set the token price in MATIC (owner)", &updatePriceCommand{})
	addCommand(parser, "update-hardcap", "Set the hard cap in MATIC (owner)", &updateHardCapCommand{})
	addCommand(parser, "update-times", "Set presale start and end (owner)", &updateTimesCommand{})
	addCommand(parser, "extend", "Move the presale end to now plus a duration (owner)", &extendCommand{})
	addCommand(parser, "transfer", "Transfer ALIEN tokens from the wallet to the presale", &transferCommand{})
	addCommand(parser, "purchases", "List TokensPurchased events", &purchasesCommand{})
	addCommand(parser, "holders", "List top token holders", &holdersCommand{})
	addCommand(parser, "verify", "Verify the presale source on the explorer", &verifyCommand{})
	addCommand(parser, "history", "Show recent actions", &historyCommand{})
	addCommand(parser, "stats", "Show action statistics", &statsCommand{})
	addCommand(parser, "clear-history", "Remove all recorded actions", &clearHistoryCommand{})
	addCommand(parser, "serve", "Run the HTTP API and the status poller", &serveCommand{})

	if _, err := parser.Parse(); err != nil {
		if err, ok := err.(*goflags.Error); ok && err.Type == goflags.ErrHelp {
			fmt.Println(err.Message)
			os.Exit(errWrongCommand)
		}
		log.Fatalf("Error: %v.", err)
	}
}
