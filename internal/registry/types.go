package registry

import (
	"regexp"
	"time"
)

// prefixPattern enforces the grammar from spec §3: a non-empty prefix
// ending in "_" matching [A-Za-z0-9_-]+_.
var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+_$`)

// symbolPattern enforces spec §4.2's token symbol grammar.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// TokenDescriptor describes one token a network tracks. Precision and Icon
// are carried from the upstream token-registration flow (see SPEC_FULL.md
// Data Model); neither is validated. Register sets a zero Precision to 3.
type TokenDescriptor struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Precision int    `json:"precision"`
	Icon      string `json:"icon,omitempty"`
}

func (t TokenDescriptor) validate() error {
	if !symbolPattern.MatchString(t.Symbol) {
		return errf("token symbol %q must match ^[A-Z0-9]{2,10}$", t.Symbol)
	}
	if t.Name == "" {
		return errf("token %q missing name", t.Symbol)
	}
	return nil
}

// Config is the caller-supplied configuration for Register.
type Config struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Tokens          []TokenDescriptor `json:"tokens"`
	SchemaExtension string            `json:"schemaExtension,omitempty"`
	GraphAddr       string            `json:"graphAddr,omitempty"`
}

func (c Config) validate(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return errf("prefix %q must match ^[A-Za-z0-9_-]+_$", prefix)
	}
	if c.Name == "" {
		return errf("network %q: name is required", prefix)
	}
	if c.Description == "" {
		return errf("network %q: description is required", prefix)
	}
	if len(c.Tokens) == 0 {
		return errf("network %q: at least one token is required", prefix)
	}
	for _, t := range c.Tokens {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Network is the runtime record created by Register: the persisted Config
// plus the bookkeeping spec §3 attaches to it. Exactly one graph.Client is
// owned per Network; the client itself is held by the Registry, not
// serialized into Network.
type Network struct {
	Prefix      string            `json:"prefix"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tokens      []TokenDescriptor `json:"tokens"`
	DataDir     string            `json:"dataDir"`
	RegisteredAt time.Time        `json:"registeredAt"`
}

// TokenStats is the per-token statistic recorded by Snapshot.
type TokenStats struct {
	Symbol       string `json:"symbol"`
	HolderCount  int    `json:"holderCount"`
	TotalSupply  string `json:"totalSupply"`
}

// CheckpointArtifact is persisted under
// checkpoints/<prefix>/<blockNum>.json, per spec §6 Persisted State.
type CheckpointArtifact struct {
	BlockNum   uint64       `json:"blockNum"`
	StateHash  string       `json:"stateHash"`
	TakenAt    time.Time    `json:"takenAt"`
	TokenStats []TokenStats `json:"tokenStats"`
}
