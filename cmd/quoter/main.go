package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/infinitypools/quoter-go/discovery"
	"github.com/infinitypools/quoter-go/onchain"
	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/quote"
	"github.com/infinitypools/quoter-go/wire"
)

func main() {
	root := &cobra.Command{
		Use:          "quoter",
		Short:        "AMM quote engine for CL and bin pools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Discover pools for a pair and print the best quote",
		RunE:  runQuote,
	}
	addPairFlags(quoteCmd)
	quoteCmd.Flags().String("amount", "", "trade amount in raw token units")
	quoteCmd.Flags().Bool("exact-out", false, "treat amount as the desired output")
	root.AddCommand(quoteCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Discover and densify pools for a pair, printing snapshots",
		RunE:  runPools,
	}
	addPairFlags(poolsCmd)
	root.AddCommand(poolsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC endpoint URL")
	cmd.Flags().Uint64("chain-id", 0, "chain id (0 asks the endpoint)")
	cmd.Flags().String("token-in", "", "input token address, or \"native\"")
	cmd.Flags().String("token-out", "", "output token address, or \"native\"")
	cmd.Flags().Uint8("decimals-in", 18, "input token decimals")
	cmd.Flags().Uint8("decimals-out", 18, "output token decimals")
	cmd.Flags().String("symbol-in", "", "input token symbol")
	cmd.Flags().String("symbol-out", "", "output token symbol")
	cmd.Flags().Duration("timeout", 0, "overall deadline")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

func parseCurrency(raw string, chainID uint64, decimals uint8, symbol string) (pools.Currency, error) {
	if strings.EqualFold(raw, "native") {
		return pools.NewNative(chainID, decimals, symbol), nil
	}
	if !common.IsHexAddress(raw) {
		return pools.Currency{}, fmt.Errorf("invalid token address %q", raw)
	}
	return pools.NewToken(chainID, common.HexToAddress(raw), decimals, symbol), nil
}

// pipeline wires the RPC client, multicall batcher, and discoverer for one
// invocation and tears them down afterwards.
type pipeline struct {
	client     *onchain.Client
	discoverer *discovery.Discoverer
	currencyA  pools.Currency
	currencyB  pools.Currency
	logger     *slog.Logger
}

func setup(ctx context.Context, cfg Config, logger *slog.Logger) (*pipeline, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.TokenIn == "" || cfg.TokenOut == "" {
		return nil, fmt.Errorf("token-in and token-out are required")
	}

	client, err := onchain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		chainID = id.Uint64()
	}

	chainCfg, ok := discovery.ConfigForChain(chainID)
	if !ok {
		client.Close()
		return nil, fmt.Errorf("chain %d is not supported", chainID)
	}

	multicall, err := onchain.NewMulticall(
		client,
		chainCfg.Multicall,
		logger.With("component", "multicall"),
		prometheus.DefaultRegisterer,
	)
	if err != nil {
		client.Close()
		return nil, err
	}

	discoverer, err := discovery.New(chainID, multicall)
	if err != nil {
		client.Close()
		return nil, err
	}

	a, err := parseCurrency(cfg.TokenIn, chainID, cfg.DecimalsIn, cfg.SymbolIn)
	if err != nil {
		client.Close()
		return nil, err
	}
	b, err := parseCurrency(cfg.TokenOut, chainID, cfg.DecimalsOut, cfg.SymbolOut)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &pipeline{
		client:     client,
		discoverer: discoverer,
		currencyA:  a,
		currencyB:  b,
		logger:     logger,
	}, nil
}

func (p *pipeline) close() {
	p.client.Close()
}

// discover runs the CL and bin discovery plus densification pipelines
// concurrently and returns every quotable snapshot.
func (p *pipeline) discover(ctx context.Context) ([]pools.Pool, error) {
	var candidates []pools.Pool

	group, groupCtx := errgroup.WithContext(ctx)
	var (
		clResults  []pools.Pool
		binResults []pools.Pool
	)

	group.Go(func() error {
		discovered, err := p.discoverer.CLPools(groupCtx, p.currencyA, p.currencyB)
		if err != nil {
			return fmt.Errorf("cl discovery: %w", err)
		}
		filled, err := p.discoverer.FillTicks(groupCtx, discovered)
		if err != nil {
			return fmt.Errorf("cl densify: %w", err)
		}
		for _, pool := range filled {
			clResults = append(clResults, pool)
		}
		return nil
	})

	group.Go(func() error {
		discovered, err := p.discoverer.BinPools(groupCtx, p.currencyA, p.currencyB)
		if err != nil {
			return fmt.Errorf("bin discovery: %w", err)
		}
		filled, err := p.discoverer.FillBins(groupCtx, discovered)
		if err != nil {
			return fmt.Errorf("bin densify: %w", err)
		}
		for _, pool := range filled {
			binResults = append(binResults, pool)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	candidates = append(candidates, clResults...)
	candidates = append(candidates, binResults...)
	p.logger.Info("discovery finished",
		"cl_pools", len(clResults),
		"bin_pools", len(binResults),
	)
	return candidates, nil
}

type quoteOutput struct {
	AmountIn   string     `json:"amountIn"`
	AmountOut  string     `json:"amountOut"`
	Gas        uint64     `json:"gas"`
	Considered int        `json:"poolsConsidered"`
	Pool       *wire.Pool `json:"pool"`
	PoolAfter  *wire.Pool `json:"poolAfter"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(cfg.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return fmt.Errorf("amount must be a positive integer, got %q", cfg.Amount)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	p, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	candidates, err := p.discover(ctx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no pools found for pair")
	}

	var results []*quote.Result
	for _, pool := range candidates {
		var res *quote.Result
		var quoteErr error
		if cfg.ExactOut {
			res, quoteErr = quote.ExactOut(pool, pools.NewAmount(p.currencyB, amount))
		} else {
			res, quoteErr = quote.ExactIn(pool, pools.NewAmount(p.currencyA, amount))
		}
		if quoteErr != nil {
			logger.Warn("pool rejected", "pool_id", pool.PoolID().Hex(), "error", quoteErr)
			continue
		}
		if res == nil {
			logger.Debug("no quote from pool", "pool_id", pool.PoolID().Hex())
			continue
		}
		results = append(results, res)
	}

	best := quote.Best(results, !cfg.ExactOut)
	if best == nil {
		return fmt.Errorf("no pool produced a quote")
	}

	before, err := wire.Serialize(best.Pool)
	if err != nil {
		return err
	}
	after, err := wire.Serialize(best.PoolAfter)
	if err != nil {
		return err
	}

	out := quoteOutput{
		Gas:        best.Gas,
		Considered: len(candidates),
		Pool:       before,
		PoolAfter:  after,
	}
	if cfg.ExactOut {
		out.AmountIn = best.Amount.Raw.String()
		out.AmountOut = amount.String()
	} else {
		out.AmountIn = amount.String()
		out.AmountOut = best.Amount.Raw.String()
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	p, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	candidates, err := p.discover(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	for _, pool := range candidates {
		envelope, err := wire.Serialize(pool)
		if err != nil {
			return err
		}
		if err := encoder.Encode(envelope); err != nil {
			return err
		}
	}
	return nil
}
