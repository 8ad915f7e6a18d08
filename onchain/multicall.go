package onchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMulticallAddress is the canonical Multicall3 deployment shared by
// most EVM chains.
var DefaultMulticallAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const (
	// DefaultCallGasLimit is the per-call gas budget when the caller does not
	// set one.
	DefaultCallGasLimit = uint64(1_000_000)
	// retryGasMultiplier scales the per-call gas budget on the single retry
	// of failed calls.
	retryGasMultiplier = uint64(2)
)

var ErrEmptyBatch = errors.New("multicall: empty batch")

const multicall3ABI = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "bool", "name": "allowFailure", "type": "bool"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Call3[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "aggregate3",
    "outputs": [
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "payable",
    "type": "function"
  }
]`

// Call is one read in a batch. GasLimit is the per-call budget folded into
// the batch's overall gas cap; zero means DefaultCallGasLimit.
type Call struct {
	Target   common.Address
	CallData []byte
	GasLimit uint64
}

// Result is the outcome of one call. Index always refers back to the
// position of the originating Call in the request slice, so pairing does not
// depend on response ordering.
type Result struct {
	Index      int
	Success    bool
	ReturnData []byte
}

// Batcher executes a batch of reads. Implementations must return exactly one
// Result per Call with Result.Index set to the call's position.
type Batcher interface {
	Aggregate(ctx context.Context, calls []Call) ([]Result, error)
}

type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type result3 struct {
	Success    bool
	ReturnData []byte
}

// Multicall batches reads through a Multicall3 contract. Failed calls are
// retried once with a larger gas budget; calls failing the retry surface as
// unsuccessful results rather than batch errors.
type Multicall struct {
	caller   ContractCaller
	address  common.Address
	contract abi.ABI
	logger   Logger

	batches   prometheus.Counter
	failures  prometheus.Counter
	durations prometheus.Histogram
}

// NewMulticall builds a batcher over the given caller. Metrics are registered
// on the provided registerer; pass prometheus.DefaultRegisterer in binaries.
func NewMulticall(caller ContractCaller, address common.Address, logger Logger, reg prometheus.Registerer) (*Multicall, error) {
	contract, err := abi.JSON(strings.NewReader(multicall3ABI))
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	m := &Multicall{
		caller:   caller,
		address:  address,
		contract: contract,
		logger:   logger,
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_multicall_batches_total",
			Help: "Number of multicall batches executed.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_multicall_call_failures_total",
			Help: "Number of individual calls that failed after retry.",
		}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quoter_multicall_batch_duration_seconds",
			Help:    "Latency of multicall batches.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.batches, m.failures, m.durations} {
			if err := reg.Register(c); err != nil {
				var already prometheus.AlreadyRegisteredError
				if !errors.As(err, &already) {
					return nil, fmt.Errorf("register multicall metrics: %w", err)
				}
			}
		}
	}
	return m, nil
}

// Aggregate executes the batch. The returned slice has exactly one entry per
// call, in request order, each carrying its originating index.
func (m *Multicall) Aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}
	m.batches.Inc()
	start := time.Now()
	defer func() { m.durations.Observe(time.Since(start).Seconds()) }()

	results, err := m.execute(ctx, calls, 1)
	if err != nil {
		return nil, err
	}

	// Retry failed calls once with a bigger gas budget.
	var failedIdx []int
	var failedCalls []Call
	for i, r := range results {
		if !r.Success {
			failedIdx = append(failedIdx, i)
			failedCalls = append(failedCalls, calls[i])
		}
	}
	if len(failedCalls) > 0 {
		retried, err := m.execute(ctx, failedCalls, retryGasMultiplier)
		if err == nil {
			for j, r := range retried {
				if r.Success {
					results[failedIdx[j]] = Result{Index: failedIdx[j], Success: true, ReturnData: r.ReturnData}
				}
			}
		} else if m.logger != nil {
			m.logger.Warn("multicall retry failed", "calls", len(failedCalls), "err", err)
		}
	}

	for _, r := range results {
		if !r.Success {
			m.failures.Inc()
		}
	}
	return results, nil
}

func (m *Multicall) execute(ctx context.Context, calls []Call, gasMultiplier uint64) ([]Result, error) {
	packedCalls := make([]call3, len(calls))
	var gasBudget uint64
	for i, c := range calls {
		packedCalls[i] = call3{Target: c.Target, AllowFailure: true, CallData: c.CallData}
		limit := c.GasLimit
		if limit == 0 {
			limit = DefaultCallGasLimit
		}
		gasBudget += limit * gasMultiplier
	}

	input, err := m.contract.Pack("aggregate3", packedCalls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	raw, err := m.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &m.address,
		Gas:  gasBudget,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall eth_call: %w", err)
	}

	var decoded []result3
	if err := m.contract.UnpackIntoInterface(&decoded, "aggregate3", raw); err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(decoded) != len(calls) {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(decoded), len(calls))
	}

	results := make([]Result, len(decoded))
	for i, r := range decoded {
		results[i] = Result{Index: i, Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}

var _ Batcher = (*Multicall)(nil)
