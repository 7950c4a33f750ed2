// Package transform implements the Data Transformer from spec §4.7: it
// turns a single put/del operation into an ordered list of graph
// mutations, deduplicating entities referenced more than once within a
// batch via the Accumulator, and decomposing the intricate contract value
// shape into Account, Contract, ContractFile, and Path entities.
package transform

// BlockInfo carries the block context a transform needs to stamp onto
// mutated entities (e.g. "newest block number wins" for shared-CID file
// membership, per spec §4.7 step 8).
type BlockInfo struct {
	BlockNum  uint64
	Timestamp uint64
}

// Stats summarizes one batch's accumulated Path/File bookkeeping, drained
// alongside the mutation list per spec §4.7.
type Stats struct {
	TotalPaths             int
	TotalFiles              int
	PathsWithMultipleFiles int
	LargestPath             string
	LargestPathFileCount    int
}
