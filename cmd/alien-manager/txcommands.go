package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	manager "github.com/RomanDevelop/alien-manager"
	"github.com/RomanDevelop/alien-manager/common"
)

type amountArgs struct {
	Amount string `positional-arg-name:"amount" description:"decimal amount, e.g. 0.5"`
}

type buyCommand struct {
	Args amountArgs `positional-args:"yes" required:"yes"`
}

func (c *buyCommand) Execute(args []string) error {
	amount, err := parseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.Buy(ctx, amount)
		printTx(m, "buy", res)
		return err
	})
}

type claimCommand struct{}

func (c *claimCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.Claim(ctx)
		printTx(m, "claim", res)
		return err
	})
}

type withdrawFundsCommand struct{}

func (c *withdrawFundsCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.WithdrawFunds(ctx)
		printTx(m, "withdraw funds", res)
		return err
	})
}

type withdrawTokensCommand struct{}

func (c *withdrawTokensCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.WithdrawUnsoldTokens(ctx)
		printTx(m, "withdraw unsold tokens", res)
		return err
	})
}

type emergencyCommand struct{}

func (c *emergencyCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.EmergencyWithdraw(ctx)
		printTx(m, "emergency withdraw", res)
		return err
	})
}

type pauseCommand struct {
	paused bool
}

func (c *pauseCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.Pause(ctx, c.paused)
		if c.paused {
			printTx(m, "pause", res)
		} else {
			printTx(m, "resume", res)
		}
		return err
	})
}

type updatePriceCommand struct {
	Args amountArgs `positional-args:"yes" required:"yes"`
}

func (c *updatePriceCommand) Execute(args []string) error {
	price, err := parseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, readBack, err := m.UpdatePrice(ctx, price)
		printTx(m, "update price", res)
		if readBack != nil {
			fmt.Printf("Token price is now %s %s\n", common.FormatEther(readBack), common.NativeSymbol)
		}
		return err
	})
}

type updateHardCapCommand struct {
	Args amountArgs `positional-args:"yes" required:"yes"`
}

func (c *updateHardCapCommand) Execute(args []string) error {
	hardCap, err := parseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, readBack, err := m.UpdateHardCap(ctx, hardCap)
		printTx(m, "update hard cap", res)
		if readBack != nil {
			fmt.Printf("Hard cap is now %s %s\n", common.FormatEther(readBack), common.NativeSymbol)
		}
		return err
	})
}

type updateTimesCommand struct {
	Args struct {
		Start string `positional-arg-name:"start" description:"unix seconds or RFC 3339"`
		End   string `positional-arg-name:"end" description:"unix seconds or RFC 3339"`
	} `positional-args:"yes" required:"yes"`
}

func (c *updateTimesCommand) Execute(args []string) error {
	start, err := parseTime(c.Args.Start)
	if err != nil {
		return err
	}
	end, err := parseTime(c.Args.End)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.UpdateTimes(ctx, start, end)
		printTx(m, "update times", res)
		return err
	})
}

// confirm asks a yes/no question on in.
func confirm(in io.Reader, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

type extendCommand struct {
	Duration time.Duration `long:"duration" description:"time from now to the new end, EXTEND_DURATION when zero"`
	Yes      bool          `short:"y" long:"yes" description:"do not ask for confirmation"`
}

func (c *extendCommand) Execute(args []string) error {
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		plan, err := m.PlanExtend(ctx, c.Duration)
		if err != nil {
			return err
		}
		fmt.Printf("Start:   %s (kept)\n", plan.Start.UTC().Format(timeLayout))
		fmt.Printf("End:     %s\n", plan.OldEnd.UTC().Format(timeLayout))
		fmt.Printf("New end: %s\n", plan.NewEnd.UTC().Format(timeLayout))
		if !c.Yes && !confirm(os.Stdin, "Extend the presale?") {
			fmt.Println("Cancelled")
			return nil
		}
		res, err := m.Extend(ctx, plan)
		printTx(m, "extend", res)
		return err
	})
}

type transferCommand struct {
	Args amountArgs `positional-args:"yes" required:"yes"`
}

func (c *transferCommand) Execute(args []string) error {
	amount, err := parseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return withManager(func(ctx context.Context, m *manager.Manager) error {
		res, err := m.TransferToPresale(ctx, amount)
		if res == nil {
			return err
		}
		printTx(m, "transfer", res.Tx)
		if res.WalletBalance != nil {
			fmt.Printf("Wallet:  %s\n", common.FormatTokenBalance(res.WalletBalance, common.TokenSymbol))
		}
		if res.PresaleBalance != nil {
			fmt.Printf("Presale: %s\n", common.FormatTokenBalance(res.PresaleBalance, common.TokenSymbol))
		}
		return err
	})
}
