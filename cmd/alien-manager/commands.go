package main

import (
	"context"
	"fmt"
	"os"

	ethcommon "github.com/ethereum/go-ethereum/common"

	manager "github.com/RomanDevelop/alien-manager"
	"github.com/RomanDevelop/alien-manager/app"
	"github.com/RomanDevelop/alien-manager/common"
)

// optionalAddress parses an address argument, empty means the zero address.
func optionalAddress(s string) (ethcommon.Address, error) {
	if s == "" {
		return ethcommon.Address{}, nil
	}
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return ethcommon.HexToAddress(s), nil
}

type statusCommand struct{}

func (c *statusCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(m, status)
		return nil
	})
}

type infoCommand struct {
	Args struct {
		Address string `positional-arg-name:"address" description:"address, the wallet when omitted"`
	} `positional-args:"yes"`
}

func (c *infoCommand) Execute(args []string) error {
	user, err := optionalAddress(c.Args.Address)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		info, err := m.Info(ctx, user)
		if err != nil {
			return err
		}
		printStatus(m, &info.PresaleStatus)
		fmt.Printf("User:             %s\n", info.User.Address.Hex())
		fmt.Printf("Contribution:     %s %s\n", common.FormatEther(info.User.Contribution), common.NativeSymbol)
		fmt.Printf("Claimable:        %s\n", common.FormatTokenBalance(info.User.ClaimableTokens, common.TokenSymbol))
		return nil
	})
}

type conditionsCommand struct{}

func (c *conditionsCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		cond, err := m.Conditions(ctx)
		if err != nil {
			return err
		}
		printStatus(m, &cond.PresaleStatus)
		fmt.Printf("Token:            %s %s, %d decimals (%s)\n", cond.TokenSymbol, cond.Token.Hex(),
			cond.TokenDecimals, m.AddressURL(cond.Token))
		fmt.Printf("Owner:            %s\n", cond.Owner.Hex())
		fmt.Printf("Wallet is owner:  %s\n", yesNo(cond.IsOwner))
		fmt.Printf("Tokens for sale:  %s\n", common.FormatTokenBalance(cond.TokensForSale, common.TokenSymbol))
		fmt.Printf("Tokens sold:      %s\n", common.FormatTokenBalance(cond.TokensSold, common.TokenSymbol))
		fmt.Printf("Tokens remaining: %s\n", common.FormatTokenBalance(cond.TokensRemaining, common.TokenSymbol))
		fmt.Printf("Presale holds:    %s\n", common.FormatTokenBalance(cond.PresaleTokenBalance, common.TokenSymbol))
		fmt.Println("Purchase examples:")
		for _, e := range cond.Examples {
			fmt.Printf("  %s %s -> %s\n", common.FormatEther(e.Amount), common.NativeSymbol,
				common.FormatTokenBalance(e.Tokens, common.TokenSymbol))
		}
		return nil
	})
}

type balancesCommand struct {
	Args struct {
		Address string `positional-arg-name:"address" description:"address, the wallet when omitted"`
	} `positional-args:"yes"`
}

func (c *balancesCommand) Execute(args []string) error {
	addr, err := optionalAddress(c.Args.Address)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		b, err := m.Balances(ctx, addr)
		if err != nil {
			return err
		}
		fmt.Printf("Address: %s\n", b.Address.Hex())
		fmt.Printf("%s:   %s\n", common.NativeSymbol, common.FormatEther(b.Native))
		fmt.Printf("%s:   %s\n", common.TokenSymbol, common.FormatTokenBalance(b.Token, common.TokenSymbol))
		return nil
	})
}

type purchasesCommand struct{}

func (c *purchasesCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		report, err := m.Purchases(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Blocks %d-%d: %d purchases, %s %s total\n", report.FromBlock, report.ToBlock,
			len(report.Purchases), common.FormatEther(report.Total), common.NativeSymbol)
		for _, p := range report.Purchases {
			fmt.Printf("  %s  %s  %s %s -> %s  %s\n", p.Time.Format(timeLayout), p.Buyer.Hex(),
				common.FormatEther(p.Amount), common.NativeSymbol,
				common.FormatTokenBalance(p.Tokens, common.TokenSymbol), m.TxURL(p.TxHash))
		}
		if len(report.Buyers) > 0 {
			fmt.Println("Buyers:")
		}
		for i, b := range report.Buyers {
			fmt.Printf("  %3d. %s  %s %s\n", i+1, b.Buyer.Hex(), common.FormatEther(b.Amount), common.NativeSymbol)
		}
		return nil
	})
}

type holdersCommand struct {
	Top int `long:"top" description:"number of holders, TOP_N when zero"`
}

func (c *holdersCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		holders, err := m.Holders(ctx, c.Top)
		if err != nil {
			return err
		}
		for i, h := range holders {
			fmt.Printf("%3d. %s  %s  %.4f%%\n", i+1, h.Address.Hex(),
				common.FormatTokenBalance(h.Balance, common.TokenSymbol), h.Percent)
		}
		return nil
	})
}

type verifyCommand struct {
	Address string `long:"address" description:"contract address, PRESALE_ADDRESS when empty"`
	Source  string `long:"source" required:"yes" description:"flattened Solidity source of AlienPresale"`
}

func (c *verifyCommand) Execute(args []string) error {
	addr, err := optionalAddress(c.Address)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(c.Source)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.Verify(ctx, addr, string(source), nil)
		if res != nil {
			fmt.Printf("Verification of %s: %s\n", res.Address.Hex(), res.Status)
			fmt.Printf("Code: %s\n", res.URL)
		}
		return err
	})
}

type historyCommand struct {
	Limit int `long:"limit" default:"10" description:"number of recent actions"`
}

func (c *historyCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		actions, err := m.History(ctx, c.Limit)
		if err != nil {
			return err
		}
		printActions(actions)
		return nil
	})
}

type statsCommand struct{}

func (c *statsCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		stats, err := m.Stats(ctx)
		if err != nil {
			return err
		}
		printStats(stats)
		return nil
	})
}

type clearHistoryCommand struct{}

func (c *clearHistoryCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		if err := m.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Println("History cleared")
		return nil
	})
}

type serveCommand struct{}

func (c *serveCommand) Execute(args []string) error {
	a := app.New()
	if err := a.Start(config); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	waitForShutdown(a.Close)
	return nil
}
