// deploy-presale deploys AlienPresale with the default parameters: start in
// 5 minutes, 20 days long, 100 MATIC hard cap, 0.0005 MATIC per token.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	goflags "github.com/jessevdk/go-flags"

	"github.com/RomanDevelop/alien-manager/app"
	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/evm"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func parse(config interface{}) {
	errWrongCommand := 2

	_, err := goflags.Parse(config)
	if err != nil {
		if err, ok := err.(*goflags.Error); ok && err.Type == goflags.ErrHelp {
			os.Exit(errWrongCommand)
		}
		log.Fatalf("Error during flags parsing: %v.", err)
	}
}

func printParams(title string, p common.DeployParams) {
	fmt.Println(title)
	fmt.Printf("  Token:       %s\n", p.Token.Hex())
	fmt.Printf("  Start time:  %s (%d)\n", p.StartTime.UTC().Format(timeLayout), p.StartTime.Unix())
	fmt.Printf("  End time:    %s (%d)\n", p.EndTime.UTC().Format(timeLayout), p.EndTime.Unix())
	fmt.Printf("  Hard cap:    %s %s\n", common.FormatEther(p.HardCap), common.NativeSymbol)
	fmt.Printf("  Token price: %s %s\n", common.FormatEther(p.TokenPrice), common.NativeSymbol)
}

func deploy(ctx context.Context, config app.Config) (ethcommon.Address, error) {
	if _, err := evm.LoadArtifact(config.ArtifactPath); err != nil {
		return ethcommon.Address{}, err
	}
	m, closer, err := app.Open(ctx, config)
	if err != nil {
		return ethcommon.Address{}, err
	}
	defer closer.Close()

	var token ethcommon.Address
	if config.TokenAddress != "" {
		token = ethcommon.HexToAddress(config.TokenAddress)
	}
	params, err := m.DefaultDeployParams(token)
	if err != nil {
		return ethcommon.Address{}, err
	}
	fmt.Printf("Deployer: %s\n", m.Account().Hex())
	printParams("Deploying AlienPresale with:", params)

	d, err := m.Deploy(ctx, params)
	if err != nil {
		if d != nil {
			fmt.Printf("Contract deployed at %s but could not be read back\n", d.Address.Hex())
		}
		return ethcommon.Address{}, err
	}

	fmt.Printf("\nAlienPresale deployed at %s\n", d.Address.Hex())
	fmt.Printf("Transaction: %s (block %d, gas used %d)\n", m.TxURL(d.Tx.Hash), d.Tx.BlockNumber, d.Tx.GasUsed)
	fmt.Printf("Explorer:    %s\n", d.ExplorerURL)
	if d.OnChain.HardCap != nil {
		printParams("On-chain parameters:", common.DeployParams{
			Token:      d.OnChain.Token,
			StartTime:  d.OnChain.StartTime,
			EndTime:    d.OnChain.EndTime,
			HardCap:    d.OnChain.HardCap,
			TokenPrice: d.OnChain.TokenPrice,
		})
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Verify the contract: alien-manager verify --address", d.Address.Hex(), "--source AlienPresale.sol")
	fmt.Println("  2. Set PRESALE_ADDRESS=" + d.Address.Hex())
	fmt.Println("  3. Check the presale: alien-manager info")
	return d.Address, nil
}

func main() {
	log.SetFlags(0)
	var config app.Config
	parse(&config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	start := time.Now()
	addr, err := deploy(ctx, config)
	stop()
	if err != nil {
		log.Printf("deploy failed: %v", err)
		os.Exit(1)
	}
	log.Printf("Deployed %s in %s", addr.Hex(), time.Since(start).Round(time.Second))
}
