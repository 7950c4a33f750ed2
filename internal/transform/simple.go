package transform

import (
	"encoding/json"
	"fmt"

	"combgraph/internal/graph"
	"combgraph/internal/ingest"
)

// transformBalance handles balances/<user> (spec §4.7 expansion): upsert
// Account(user), set its balance scalar.
func (t *Transformer) transformBalance(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 2 {
		return fmt.Errorf("transform: balances operation missing user segment")
	}
	user := op.Path[1]
	if op.Type == ingest.OpDel {
		acc.Upsert("Account", user, graph.Mutation{"username": user, "balance": 0})
		return nil
	}
	var balance int64
	if err := json.Unmarshal(op.Data, &balance); err != nil {
		return fmt.Errorf("transform: decode balance for %s: %w", user, err)
	}
	acc.Upsert("Account", user, graph.Mutation{"username": user, "balance": balance})
	return nil
}

// transformBroca handles broca/<user>: a secondary resource balance in the
// upstream protocol, same shape as balances.
func (t *Transformer) transformBroca(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 2 {
		return fmt.Errorf("transform: broca operation missing user segment")
	}
	user := op.Path[1]
	if op.Type == ingest.OpDel {
		acc.Upsert("Account", user, graph.Mutation{"username": user, "broca": 0})
		return nil
	}
	var broca int64
	if err := json.Unmarshal(op.Data, &broca); err != nil {
		return fmt.Errorf("transform: decode broca for %s: %w", user, err)
	}
	acc.Upsert("Account", user, graph.Mutation{"username": user, "broca": broca})
	return nil
}

// dexOrder is the wire shape of a dex/<market>/orders/<id> value.
type dexOrder struct {
	Account string  `json:"account"`
	Side    string  `json:"side"`
	Rate    float64 `json:"rate"`
	Amount  float64 `json:"amount"`
}

// transformDex handles dex/<market>/orders/<id> and
// dex/<market>/ohlc/<bucket>.
func (t *Transformer) transformDex(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 3 {
		return fmt.Errorf("transform: dex operation path too short: %v", op.Path)
	}
	market := op.Path[1]
	marketUID := acc.Upsert("Market", market, graph.Mutation{"market": market})

	switch op.Path[2] {
	case "orders":
		if len(op.Path) < 4 {
			return fmt.Errorf("transform: dex order missing id segment")
		}
		orderID := market + "\x00" + op.Path[3]
		if op.Type == ingest.OpDel {
			acc.Upsert("DexOrder", orderID, graph.Mutation{"orderId": op.Path[3], "market": marketUID, "open": false})
			return nil
		}
		var o dexOrder
		if err := json.Unmarshal(op.Data, &o); err != nil {
			return fmt.Errorf("transform: decode dex order %s: %w", op.Path[3], err)
		}
		acc.Upsert("Account", o.Account, graph.Mutation{"username": o.Account})
		acc.Upsert("DexOrder", orderID, graph.Mutation{
			"orderId": op.Path[3],
			"market":  marketUID,
			"account": o.Account,
			"side":    o.Side,
			"rate":    o.Rate,
			"amount":  o.Amount,
			"open":    true,
		})
		return nil

	case "ohlc":
		if len(op.Path) < 4 {
			return fmt.Errorf("transform: ohlc bucket missing bucket segment")
		}
		bucket := op.Path[3]
		var candle struct {
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume float64 `json:"volume"`
		}
		if err := json.Unmarshal(op.Data, &candle); err != nil {
			return fmt.Errorf("transform: decode ohlc bucket %s/%s: %w", market, bucket, err)
		}
		acc.Upsert("OhlcBucket", market+"\x00"+bucket, graph.Mutation{
			"market": marketUID,
			"bucket": bucket,
			"open":   candle.Open,
			"high":   candle.High,
			"low":    candle.Low,
			"close":  candle.Close,
			"volume": candle.Volume,
		})
		return nil

	default:
		return fmt.Errorf("transform: unknown dex sub-path %q", op.Path[2])
	}
}

// transformFeed handles feed/<symbol>: a PriceFeed entity.
func (t *Transformer) transformFeed(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 2 {
		return fmt.Errorf("transform: feed operation missing symbol segment")
	}
	symbol := op.Path[1]
	var feed struct {
		Value     float64 `json:"value"`
		Timestamp uint64  `json:"timestamp"`
	}
	if err := json.Unmarshal(op.Data, &feed); err != nil {
		return fmt.Errorf("transform: decode feed %s: %w", symbol, err)
	}
	acc.Upsert("PriceFeed", symbol, graph.Mutation{
		"symbol":    symbol,
		"value":     feed.Value,
		"timestamp": feed.Timestamp,
	})
	return nil
}

// transformChainStats handles chain/stats: a singleton ChainStats entity
// per network, merging the JSON value's top-level keys as scalars.
func (t *Transformer) transformChainStats(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	var raw map[string]any
	if err := json.Unmarshal(op.Data, &raw); err != nil {
		return fmt.Errorf("transform: decode chain stats: %w", err)
	}
	fields := graph.Mutation{"blockNum": block.BlockNum}
	for k, v := range raw {
		fields[k] = v
	}
	acc.Upsert("ChainStats", "singleton", fields)
	return nil
}

// transformService handles services/<id>.
func (t *Transformer) transformService(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 2 {
		return fmt.Errorf("transform: service operation missing id segment")
	}
	id := op.Path[1]
	if op.Type == ingest.OpDel {
		acc.Upsert("Service", id, graph.Mutation{"serviceId": id, "active": false})
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(op.Data, &raw); err != nil {
		return fmt.Errorf("transform: decode service %s: %w", id, err)
	}
	fields := graph.Mutation{"serviceId": id, "active": true}
	for k, v := range raw {
		fields[k] = v
	}
	acc.Upsert("Service", id, fields)
	return nil
}

// transformValidator handles validators/<account>, linked to the global
// Account.
func (t *Transformer) transformValidator(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 2 {
		return fmt.Errorf("transform: validator operation missing account segment")
	}
	account := op.Path[1]
	accountUID := acc.Upsert("Account", account, graph.Mutation{"username": account})
	if op.Type == ingest.OpDel {
		acc.Upsert("Validator", account, graph.Mutation{"account": accountUID, "active": false})
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(op.Data, &raw); err != nil {
		return fmt.Errorf("transform: decode validator %s: %w", account, err)
	}
	fields := graph.Mutation{"account": accountUID, "active": true}
	for k, v := range raw {
		fields[k] = v
	}
	acc.Upsert("Validator", account, fields)
	return nil
}
