// Package stackpay wires the USDC payment link service: link storage,
// the Ethereum-to-Stacks bridge orchestration and the background status
// progression, behind one constructor.
package stackpay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/stackpay/stackpay/api"
	"github.com/stackpay/stackpay/chain"
	"github.com/stackpay/stackpay/config"
	"github.com/stackpay/stackpay/links"
	"github.com/stackpay/stackpay/logger"
	"github.com/stackpay/stackpay/metrics"
	"github.com/stackpay/stackpay/payment"
	"github.com/stackpay/stackpay/progress"
	"github.com/stackpay/stackpay/stacksapi"
	"github.com/stackpay/stackpay/types"
)

// Service is the assembled payment link service.
type Service struct {
	cfg *config.Config
	log logger.Logger
	rec metrics.Recorder

	store        links.Store
	chainClient  *chain.EVMClient
	orchestrator *payment.Orchestrator
	stacksClient *stacksapi.Client
	driver       *progress.Driver
	router       *gin.Engine
}

// New assembles the service from cfg. The chain connection is optional:
// without an RPC URL the service runs store-only and the progression
// driver falls back to fixed delays.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.NewZapLogger(cfg.Server.LogLevel)
	}
	if s.rec == nil {
		if cfg.Server.Metrics {
			s.rec = metrics.NewPrometheusRecorder()
		} else {
			s.rec = metrics.NoopRecorder{}
		}
	}

	if s.store == nil {
		store, err := buildStore(cfg, s.log)
		if err != nil {
			return nil, err
		}
		s.store = store
	}

	if cfg.Ethereum.RPCURL != "" {
		client, err := chain.NewEVMClient(
			cfg.Ethereum.RPCURL,
			common.HexToAddress(cfg.Ethereum.USDCAddress),
			common.HexToAddress(cfg.Ethereum.XReserveAddress),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create chain client: %w", err)
		}
		s.chainClient = client

		s.orchestrator = payment.NewOrchestrator(client, payment.Config{
			LocalToken:    common.HexToAddress(cfg.Ethereum.USDCAddress),
			RemoteDomain:  cfg.Ethereum.RemoteDomain,
			TokenDecimals: cfg.Ethereum.TokenDecimals,
		}, s.log, s.rec)

		if cfg.Ethereum.PayerKey != "" {
			payer, err := chain.NewAccountFromHex(cfg.Ethereum.PayerKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load payer key: %w", err)
			}
			s.orchestrator.ConnectPayer(payer)
		}
	}

	s.stacksClient = stacksapi.NewClient(cfg.Stacks.APIBaseURL, s.log)

	var eth progress.EthConfirmer
	if s.chainClient != nil {
		eth = s.chainClient
	}
	s.driver = progress.NewDriver(s.store, eth, s.stacksClient, progress.Config{
		PollInterval:          cfg.Progress.PollInterval,
		RequiredConfirmations: cfg.Progress.RequiredConfirmations,
		ConfirmDelay:          cfg.Progress.ConfirmDelay,
		BridgeDelay:           cfg.Progress.BridgeDelay,
		StuckTimeout:          cfg.Progress.StuckTimeout,
	}, s.log, s.rec)

	s.router = api.NewRouter(api.NewLinkHandler(s.store, s.log, s.rec))

	return s, nil
}

func buildStore(cfg *config.Config, log logger.Logger) (links.Store, error) {
	storeCfg := links.DefaultStoreConfig()
	if cfg.Links.MinDeposit != "" {
		min, err := types.ParseAmount(cfg.Links.MinDeposit)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum deposit: %w", err)
		}
		storeCfg.MinDeposit = min
	}
	if cfg.Links.MemoMaxLength > 0 {
		storeCfg.MemoMaxLength = cfg.Links.MemoMaxLength
	}

	if cfg.Database.Driver == "" {
		log.Warn("no database configured, using in-memory store", nil)
		return links.NewMemoryStore(storeCfg), nil
	}

	db, err := links.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return links.NewGormStore(db, storeCfg)
}

// Start launches the status progression driver.
func (s *Service) Start(ctx context.Context) {
	s.driver.Start(ctx)
}

// Close stops background work and releases the chain connection.
func (s *Service) Close() {
	s.driver.Stop()
	if s.chainClient != nil {
		s.chainClient.Close()
	}
}

// Router returns the HTTP handler for the service.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Store returns the link store.
func (s *Service) Store() links.Store {
	return s.store
}

// Orchestrator returns the payment orchestrator, or nil when no chain
// connection is configured.
func (s *Service) Orchestrator() *payment.Orchestrator {
	return s.orchestrator
}
