package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/starius/api2"

	manager "github.com/RomanDevelop/alien-manager"
	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/evm"
	"github.com/RomanDevelop/alien-manager/explorer"
	"github.com/RomanDevelop/alien-manager/historydb"
	"github.com/RomanDevelop/alien-manager/schedule"
)

const defaultArtifactPath = "artifacts/contracts/AlienPresale.sol/AlienPresale.json"

var (
	_ manager.Chain    = (*evm.Client)(nil)
	_ manager.Presale  = (*evm.Presale)(nil)
	_ manager.Token    = (*evm.Token)(nil)
	_ manager.Deployer = (*evm.Deployer)(nil)
	_ manager.Explorer = (*explorer.Client)(nil)
	_ manager.History  = (*historydb.CSVFile)(nil)
	_ manager.History  = (*historydb.PostgresDB)(nil)
)

type Config struct {
	PrivateKey     string `long:"private-key" env:"PRIVATE_KEY" description:"hex private key of the wallet, read only mode when empty"`
	WalletAddress  string `long:"wallet" env:"WALLET_ADDRESS" description:"wallet address used when no private key is set"`
	PresaleAddress string `long:"presale" env:"PRESALE_ADDRESS" description:"address of the deployed AlienPresale contract"`
	TokenAddress   string `long:"token" env:"TOKEN_ADDRESS" default:"0xa8e302849DdF86769C026d9A2405e1cdA01ED992" description:"ALIEN token address"`

	Network       string `short:"n" long:"network" env:"NETWORK" default:"polygon" description:"network name from the toolchain config"`
	ToolchainPath string `long:"toolchain-cfg" env:"TOOLCHAIN_CONFIG" description:"path to the TOML toolchain config, built-in presets when empty"`
	ArtifactPath  string `long:"artifact" env:"PRESALE_ARTIFACT" default:"artifacts/contracts/AlienPresale.sol/AlienPresale.json" description:"compiled AlienPresale artifact"`

	ExplorerAPIKey string `long:"explorer-api-key" env:"POLYGONSCAN_API_KEY" description:"Polygonscan API key"`
	ExplorerAPI    string `long:"explorer-api" env:"POLYGONSCAN_API" description:"explorer API URL, network default when empty"`

	PresaleStartBlock uint64        `long:"presale-start-block" env:"PRESALE_START_BLOCK" description:"first block of the purchase scan, found by start time when zero"`
	FromBlocks        uint64        `long:"from-blocks" env:"FROM_BLOCKS" default:"2000000" description:"blocks back from the head to scan when the start block is unknown"`
	WindowSize        uint64        `long:"window-size" env:"WINDOW_SIZE" default:"1000" description:"eth_getLogs block window"`
	ScanWindow        uint64        `long:"scan-window" env:"SCAN_WINDOW" default:"50000" description:"explorer getLogs block step"`
	TopN              int           `long:"top" env:"TOP_N" default:"20" description:"number of holders to show"`
	ExtendDuration    time.Duration `long:"extend-duration" env:"EXTEND_DURATION" default:"480h" description:"how long from now the presale is extended"`

	HistoryFile      string `long:"history-file" env:"HISTORY_FILE" default:"history.csv" description:"CSV file of the action history"`
	HistoryDBCfgPath string `long:"history-db-cfg" env:"HISTORY_DB_CFG_PATH" description:"path to Postgres config of the action history, CSV file is used when empty"`

	ApiAddr        string        `short:"a" long:"api-addr" env:"API_ADDR" default:":9580" description:"host:port that the API server listens on"`
	StatusInterval time.Duration `long:"status-interval" env:"STATUS_INTERVAL" default:"10m" description:"how often the server polls the presale status"`
}

func parseAddress(name, s string) (ethcommon.Address, error) {
	if s == "" {
		return ethcommon.Address{}, nil
	}
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, fmt.Errorf("invalid %s %q", name, s)
	}
	return ethcommon.HexToAddress(s), nil
}

// SettingsFromConfig builds manager settings. Verification settings come
// from the compiler section of the toolchain config.
func SettingsFromConfig(c Config, compiler evm.CompilerSettings) manager.Settings {
	settings := manager.DefaultSettings()
	settings.PresaleStartBlock = c.PresaleStartBlock
	if c.FromBlocks != 0 {
		settings.FromBlocks = c.FromBlocks
	}
	if c.WindowSize != 0 {
		settings.LogWindow = c.WindowSize
	}
	if c.ScanWindow != 0 {
		settings.ExplorerStep = c.ScanWindow
	}
	if c.TopN > 0 {
		settings.TopN = c.TopN
	}
	if c.ExtendDuration > 0 {
		settings.ExtendDuration = c.ExtendDuration
	}
	settings.StatusInterval = c.StatusInterval
	if compiler.LongVersion != "" {
		settings.Verify.CompilerVersion = compiler.LongVersion
	}
	settings.Verify.Optimizer = compiler.Optimizer
	if compiler.Runs != 0 {
		settings.Verify.Runs = compiler.Runs
	}
	return settings
}

type closers []io.Closer

// Close closes in reverse order and returns the first error.
func (cs closers) Close() error {
	var firstErr error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openHistory(ctx context.Context, c Config) (manager.History, io.Closer, error) {
	if c.HistoryDBCfgPath == "" {
		f := historydb.NewCSVFile(c.HistoryFile)
		return f, f, nil
	}
	pg, err := historydb.OpenPostgresWithRetries(ctx, c.HistoryDBCfgPath)
	if err != nil {
		return nil, nil, err
	}
	hdb, err := historydb.NewDB(pg)
	if err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("failed to initialize historyDB: %w", err)
	}
	return hdb, hdb, nil
}

func loadDeployer(client *evm.Client, path string) manager.Deployer {
	if path == "" {
		path = defaultArtifactPath
	}
	artifact, err := evm.LoadArtifact(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to load artifact %s: %v", path, err)
		}
		return nil
	}
	return evm.NewDeployer(client, artifact)
}

// Open connects to the network and builds a Manager. The returned closer
// releases the RPC connection and the history backend.
func Open(ctx context.Context, c Config) (*manager.Manager, io.Closer, error) {
	toolchain, err := evm.LoadToolchainConfig(c.ToolchainPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load toolchain config: %w", err)
	}
	network, err := toolchain.Network(c.Network)
	if err != nil {
		return nil, nil, err
	}
	wallet, err := parseAddress("wallet address", c.WalletAddress)
	if err != nil {
		return nil, nil, err
	}
	presaleAddr, err := parseAddress("presale address", c.PresaleAddress)
	if err != nil {
		return nil, nil, err
	}
	tokenAddr, err := parseAddress("token address", c.TokenAddress)
	if err != nil {
		return nil, nil, err
	}
	if tokenAddr == (ethcommon.Address{}) {
		tokenAddr = common.DefaultTokenAddress
	}

	var privateKey string
	if c.PrivateKey != "" {
		if _, err := evm.ParsePrivateKey(c.PrivateKey); err != nil {
			log.Printf("Private key is not usable, running read only: %v", err)
		} else {
			privateKey = c.PrivateKey
		}
	}
	client, err := evm.NewClient(ctx, network, privateKey, wallet)
	if err != nil {
		return nil, nil, err
	}
	cs := closers{client}

	apiKey := c.ExplorerAPIKey
	if apiKey == "" {
		apiKey = toolchain.ApiKey(c.Network)
	}
	apiURL := c.ExplorerAPI
	if apiURL == "" {
		apiURL = network.ExplorerAPI
	}
	explorerClient := explorer.New(explorer.Config{
		APIURL: apiURL,
		WebURL: network.ExplorerURL,
		APIKey: apiKey,
	})

	history, historyCloser, err := openHistory(ctx, c)
	if err != nil {
		cs.Close()
		return nil, nil, err
	}
	cs = append(cs, historyCloser)

	bindPresale := func(addr ethcommon.Address) (manager.Presale, error) {
		p, err := client.Presale(addr)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	deps := manager.Deps{
		Rules:       schedule.Default(),
		Chain:       client,
		Token:       client.Token(tokenAddr),
		BindPresale: bindPresale,
		Explorer:    explorerClient,
		History:     history,
	}
	if presaleAddr != (ethcommon.Address{}) {
		if deps.Presale, err = bindPresale(presaleAddr); err != nil {
			cs.Close()
			return nil, nil, err
		}
	}
	if deployer := loadDeployer(client, c.ArtifactPath); deployer != nil {
		deps.Deployer = deployer
	}

	m, err := manager.New(SettingsFromConfig(c, toolchain.Compiler), deps)
	if err != nil {
		cs.Close()
		return nil, nil, fmt.Errorf("could not initialize manager: %w", err)
	}
	return m, cs, nil
}

// App serves the read only API and runs the status poller.
type App struct {
	server *http.Server

	manager *manager.Manager
	closer  io.Closer
}

func New() *App {
	return &App{}
}

func (a *App) Start(c Config) error {
	m, closer, err := Open(context.Background(), c)
	if err != nil {
		return err
	}
	a.manager = m
	a.closer = closer
	m.Start()

	routes := manager.GetRoutes(m)
	mux := http.NewServeMux()
	api2.BindRoutes(mux, routes)

	log.Printf("Listening on %v...", c.ApiAddr)
	a.server = &http.Server{Addr: c.ApiAddr, Handler: mux}

	go func() {
		if err := a.server.ListenAndServe(); err != nil {
			log.Printf("server.ListenAndServe failed: %v.", err)
		}
	}()

	return nil
}

func (a *App) Close() {
	if a.server != nil {
		if err := a.server.Close(); err != nil {
			log.Printf("server.Close failed: %v.", err)
		}
	}
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			log.Printf("manager.Close failed: %v", err)
		}
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			log.Printf("closer.Close failed: %v", err)
		}
	}
}
