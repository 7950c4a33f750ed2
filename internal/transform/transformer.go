package transform

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"combgraph/internal/ingest"
	"combgraph/internal/metrics"
)

// Transformer dispatches a single put/del operation into an Accumulator,
// per spec §4.7: it decides which entity kind(s) the operation's path
// maps to and upserts them, leaving the Accumulator to merge repeated
// references within the batch.
type Transformer struct {
	log *logrus.Logger
}

// New constructs a Transformer.
func New(log *logrus.Logger) *Transformer {
	if log == nil {
		log = logrus.New()
	}
	return &Transformer{log: log}
}

// Transform routes op to the rule matching its path's first element.
// Unknown first elements are logged and dropped, never treated as an
// error that would stall the ingest pipeline (spec §9 Design Notes:
// "unknown tags are logged and dropped").
func (t *Transformer) Transform(acc *Accumulator, network string, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) == 0 {
		return fmt.Errorf("transform: operation has an empty path")
	}

	switch op.Path[0] {
	case "contracts":
		return t.transformContract(acc, op, block)
	case "balances":
		return t.transformBalance(acc, op, block)
	case "broca":
		return t.transformBroca(acc, op, block)
	case "dex":
		return t.transformDex(acc, op, block)
	case "feed":
		return t.transformFeed(acc, op, block)
	case "chain":
		return t.transformChainStats(acc, op, block)
	case "services":
		return t.transformService(acc, op, block)
	case "validators":
		return t.transformValidator(acc, op, block)
	default:
		metrics.OperationsDropped.WithLabelValues(network, op.Path[0]).Inc()
		t.log.WithFields(logrus.Fields{
			"network": network,
			"path":    op.Path,
		}).Warn("transform: unknown path prefix, dropping operation")
		return nil
	}
}
