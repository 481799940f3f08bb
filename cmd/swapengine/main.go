package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/amm"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/approval"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/cache"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/chain"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/config"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/flags"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/kyberswap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/prices"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/reserves"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/storage"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/swap"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/wallet"
)

type options struct {
	account string
	in      string
	out     string
	amount  string
	side    string
	mode    string
	execute bool
	wait    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.account, "account", "", "wallet address the swap is for")
	flag.StringVar(&opts.in, "in", "", "input token symbol or address (default: chain default)")
	flag.StringVar(&opts.out, "out", "", "output token symbol or address (default: chain default)")
	flag.StringVar(&opts.amount, "amt", "", "amount in human units; empty starts the interactive prompt")
	flag.StringVar(&opts.side, "side", "exactIn", "exactIn | exactOut")
	flag.StringVar(&opts.mode, "mode", "", "detailed | simple (default: swap.simple_mode flag)")
	flag.BoolVar(&opts.execute, "execute", false, "submit the quote through the wallet")
	flag.BoolVar(&opts.wait, "wait", false, "after submitting, poll until the batch is final")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)

	_, filename, _, _ := runtime.Caller(0)
	_ = godotenv.Load(filepath.Join(filepath.Dir(filename), "../..", ".env"))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init swap engine")
	}
	defer eng.close()

	if err := eng.setup(ctx, opts); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	if opts.amount == "" {
		eng.interactive(ctx)
		return
	}
	if err := eng.oneShot(ctx, opts); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// engine holds the wired swap flow for one chain.
type engine struct {
	cfg      *config.Config
	logger   *logrus.Logger
	chain    constants.Chain
	reader   *chain.Reader
	store    *swap.Store
	orch     *swap.Orchestrator
	exec     *swap.Executor // nil without a wallet endpoint
	wallet   *wallet.Client
	flags    *flags.Store
	closers  []func()
	lastSeen swap.Phase
}

func newEngine(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*engine, error) {
	c, err := constants.ChainByID(cfg.ChainID)
	if err != nil {
		return nil, err
	}
	e := &engine{cfg: cfg, logger: logger, chain: c}

	eth, err := chain.Dial(ctx, cfg.RPCUrl)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, eth.Close)

	if e.reader, err = chain.NewReader(chain.ReaderConfig{Caller: eth, ChainID: c.ID, Logger: logger}); err != nil {
		return nil, err
	}

	// Redis and ClickHouse are optional for the CLI.
	var (
		history     storage.SwapHistory
		attempts    storage.SwapStore
		reserveMemo storage.ReserveCache
		priceMemo   storage.PriceCache
	)
	if rc, err := cache.NewRedisCache(cfg.RedisAddr, logger); err != nil {
		logger.WithError(err).Warn("redis unavailable, running without history and flags")
	} else {
		history, reserveMemo, priceMemo = rc, rc, rc
		e.closers = append(e.closers, func() { _ = rc.Close() })
		if e.flags, err = flags.NewStore(rc.Client(), logger); err != nil {
			return nil, err
		}
	}
	if ch, err := cache.NewClickHouseStore(cache.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	}); err != nil {
		logger.WithError(err).Warn("clickhouse unavailable, attempts will not be stored")
	} else {
		attempts = ch
		e.closers = append(e.closers, func() { _ = ch.Close() })
	}

	fetcher, err := reserves.NewFetcher(reserves.FetcherConfig{Reader: e.reader, Cache: reserveMemo, TTL: cfg.ReserveTTL, Logger: logger})
	if err != nil {
		return nil, err
	}
	checker, err := approval.NewChecker(e.reader, logger)
	if err != nil {
		return nil, err
	}
	priceService, err := prices.NewService(prices.ServiceConfig{
		Feed:   prices.NewCoinGecko(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, cfg.HTTPTimeout),
		Cache:  priceMemo,
		TTL:    cfg.PriceCacheTTL,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	kyber := kyberswap.NewClient(cfg.KyberswapBaseURL, cfg.KyberswapClientID, cfg.HTTPTimeout)

	e.store = swap.NewStore(swap.NewState(c, swap.ModeDetailed))
	e.orch, err = swap.NewOrchestrator(ctx, swap.OrchestratorConfig{
		Store:          e.store,
		Local:          swap.NewLocalQuoter(fetcher),
		Aggregator:     swap.NewAggregatorQuoter(kyber),
		Approvals:      checker,
		Prices:         priceService,
		SlippageBps:    cfg.SlippageBps,
		Debounce:       cfg.Debounce,
		RequestTimeout: cfg.HTTPTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, e.orch.Close)

	if cfg.WalletRPCUrl == "" {
		return e, nil
	}
	if e.wallet, err = wallet.Dial(ctx, wallet.ClientConfig{URL: cfg.WalletRPCUrl, Logger: logger}); err != nil {
		return nil, err
	}
	e.closers = append(e.closers, e.wallet.Close)

	e.exec, err = swap.NewExecutor(swap.ExecutorConfig{
		Store:        e.store,
		Submitter:    e.wallet,
		Builder:      kyber,
		SlippageBps:  cfg.SlippageBps,
		Deadline:     cfg.SwapDeadline,
		PaymasterURL: cfg.PaymasterURL,
		SponsorGas:   e.flagFunc(constants.FlagSponsorGas),
		Source:       cfg.KyberswapClientID,
		History:      history,
		Attempts:     attempts,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *engine) flagFunc(key string) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		if e.flags == nil {
			return false
		}
		return e.flags.Enabled(ctx, key, false)
	}
}

func (e *engine) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (e *engine) setup(ctx context.Context, opts options) error {
	mode := swap.ModeDetailed
	switch opts.mode {
	case "simple":
		mode = swap.ModeSimple
	case "detailed":
	case "":
		if e.flagFunc(constants.FlagSimpleMode)(ctx) {
			mode = swap.ModeSimple
		}
	default:
		return fmt.Errorf("unknown -mode %q", opts.mode)
	}
	e.orch.SetMode(mode)

	if opts.account != "" {
		if !common.IsHexAddress(opts.account) {
			return fmt.Errorf("invalid -account %q", opts.account)
		}
		e.orch.SetAccount(common.HexToAddress(opts.account))
	}
	if opts.in != "" {
		t, err := e.token(ctx, opts.in)
		if err != nil {
			return err
		}
		e.orch.SelectToken(swap.FieldIn, t)
	}
	if opts.out != "" {
		t, err := e.token(ctx, opts.out)
		if err != nil {
			return err
		}
		e.orch.SelectToken(swap.FieldOut, t)
	}
	return nil
}

func (e *engine) token(ctx context.Context, s string) (models.Token, error) {
	if t, ok := e.chain.TokenBySymbol(s); ok {
		return t, nil
	}
	if !common.IsHexAddress(s) {
		return models.Token{}, fmt.Errorf("unknown token %q on %s", s, e.chain.Name)
	}
	addr := common.HexToAddress(s)
	if addr == models.NativeAddress {
		return e.chain.Native, nil
	}
	if t, ok := e.chain.TokenByAddress(addr); ok {
		return t, nil
	}
	return e.reader.ResolveToken(ctx, addr)
}

func (e *engine) oneShot(ctx context.Context, opts options) error {
	side, err := amm.ParseSide(opts.side)
	if err != nil {
		return err
	}
	e.orch.EditAmount(side, opts.amount)
	e.orch.Wait()

	s := e.store.Snapshot()
	printState(s, e.cfg.SlippageBps)
	if s.Phase != swap.PhaseReady {
		return fmt.Errorf("quote not ready: %s", s.Message())
	}
	if !opts.execute {
		return nil
	}
	return e.submit(ctx, opts.wait)
}

func (e *engine) submit(ctx context.Context, wait bool) error {
	if e.exec == nil {
		return fmt.Errorf("WALLET_RPC_URL is not set, cannot submit")
	}
	id, err := e.exec.Submit(ctx)
	if err != nil {
		return fmt.Errorf("%s (%w)", swap.UserMessage(err), err)
	}
	fmt.Printf("submitted batch %s\n", id)
	if !wait {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	st, err := wallet.WaitForCalls(waitCtx, e.wallet, id, 2*time.Second)
	if err != nil {
		return fmt.Errorf("waiting for batch: %w", err)
	}
	fmt.Printf("batch %s final: status=%d success=%v receipts=%d\n", id, st.Status, st.Succeeded(), len(st.Receipts))
	return nil
}

const help = `commands:
  in <token> | out <token>      select a token (symbol or address)
  pay <amount>                  set the amount you pay (exact input)
  get <amount>                  set the amount you receive (exact output)
  flip                          switch sides
  mode detailed|simple          choose the quoting strategy
  account <address>             set the wallet account
  chain <id>                    switch chain (tokens reset)
  refresh                       requote the current amount
  swap [wait]                   submit the ready quote
  dismiss                       clear a finished attempt
  state | help | quit`

func (e *engine) interactive(ctx context.Context) {
	unsubscribe := e.store.Subscribe(func(s swap.State) {
		if s.Phase == e.lastSeen && s.Phase != swap.PhaseReady {
			return
		}
		e.lastSeen = s.Phase
		printState(s, e.cfg.SlippageBps)
	})
	defer unsubscribe()

	fmt.Println(help)
	in := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch fields[0] {
		case "in", "out":
			t, err := e.token(ctx, arg)
			if err != nil {
				fmt.Println(err)
				continue
			}
			field := swap.FieldIn
			if fields[0] == "out" {
				field = swap.FieldOut
			}
			e.orch.SelectToken(field, t)
		case "pay":
			e.orch.EditAmount(amm.ExactIn, arg)
		case "get":
			e.orch.EditAmount(amm.ExactOut, arg)
		case "flip":
			e.orch.SwitchSides()
		case "mode":
			if arg == "simple" {
				e.orch.SetMode(swap.ModeSimple)
			} else {
				e.orch.SetMode(swap.ModeDetailed)
			}
		case "account":
			if !common.IsHexAddress(arg) {
				fmt.Println("invalid address")
				continue
			}
			e.orch.SetAccount(common.HexToAddress(arg))
		case "chain":
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				fmt.Println("invalid chain id")
				continue
			}
			if id != e.chain.ID {
				fmt.Printf("note: on-chain reads stay on chain %d\n", e.chain.ID)
			}
			e.orch.SwitchChain(id)
		case "refresh":
			e.orch.Refresh()
		case "swap":
			e.orch.Wait()
			if err := e.submit(ctx, arg == "wait"); err != nil {
				fmt.Println(err)
			}
		case "dismiss":
			e.orch.Dismiss()
		case "state":
			printState(e.store.Snapshot(), e.cfg.SlippageBps)
		case "help":
			fmt.Println(help)
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command, type help")
		}
	}
}

func printState(s swap.State, slippageBps uint16) {
	fmt.Printf("[%s] %s %s -> %s %s", s.Phase, s.InputDisplay(), s.TokenIn.Symbol, s.OutputDisplay(), s.TokenOut.Symbol)
	if s.Quote != nil && s.Phase == swap.PhaseReady {
		fmt.Printf(" via %s", s.Quote.Strategy)
		if s.Quote.Side == amm.ExactIn {
			minOut := models.NewTokenAmount(s.Quote.Output.Token, swap.MinimumReceived(s.Quote, slippageBps))
			fmt.Printf(" min %s", minOut.String())
		} else {
			maxIn := models.NewTokenAmount(s.Quote.Input.Token, s.Quote.ApprovalAmount(slippageBps))
			fmt.Printf(" max %s", maxIn.String())
		}
		fmt.Printf(" approval=%s", s.Approval)
		if s.InputUSD.Valid {
			fmt.Printf(" ~$%s", s.InputUSD.Decimal.StringFixed(2))
		}
	}
	if msg := s.Message(); msg != "" {
		fmt.Printf(" (%s)", msg)
	}
	if s.BatchID != "" {
		fmt.Printf(" batch=%s", s.BatchID)
	}
	fmt.Println()
}
