// Package registry implements the Namespace / Network Registry from spec
// §4.2: it maps a network prefix to its schema, data directory, token set,
// and a dedicated graph-client instance, persisting itself to a JSON file
// so registrations survive a restart.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"combgraph/internal/graph"
)

const registryFileName = "network-registry.json"

// Dialer constructs the graph.Client a newly registered (or reloaded)
// Network should own. Production wiring dials a real gRPC channel;
// tests supply an in-memory fake via graph.New.
type Dialer func(prefix string) (*graph.Client, error)

// persistedEntry is the on-disk shape of one registry-file record.
type persistedEntry struct {
	Config       Config    `json:"config"`
	DataDir      string    `json:"dataDir"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type entry struct {
	net    Network
	client *graph.Client
}

// Registry owns every registered Network and is read-mostly: lookups take
// a read lock, Register takes the write lock (spec §5 Shared
// resources).
type Registry struct {
	mu         sync.RWMutex
	dataDir    string
	baseSchema string
	dialer     Dialer
	log        *logrus.Logger

	networks   map[string]*entry
	tokenIndex *lru.Cache[string, string] // token symbol -> prefix
}

// New constructs an empty Registry rooted at dataDir. baseSchema is
// concatenated with each network's optional SchemaExtension before being
// applied, per SPEC_FULL.md §4.2.
func New(dataDir, baseSchema string, dialer Dialer, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	idx, _ := lru.New[string, string](4096)
	return &Registry{
		dataDir:    dataDir,
		baseSchema: baseSchema,
		dialer:     dialer,
		log:        log,
		networks:   make(map[string]*entry),
		tokenIndex: idx,
	}
}

func (r *Registry) registryFilePath() string {
	return filepath.Join(r.dataDir, registryFileName)
}

// Load reconstitutes the Registry from its persisted file. Per spec §4.2
// Durability, a failure to read any single entry is logged but does not
// abort startup of sibling networks.
func (r *Registry) Load() error {
	path := r.registryFilePath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrStorageError, path, err)
	}

	var persisted map[string]persistedEntry
	if err := json.Unmarshal(data, &persisted); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrStorageError, path, err)
	}

	for prefix, pe := range persisted {
		if err := r.installLocked(prefix, pe.Config, pe.DataDir, pe.RegisteredAt, false); err != nil {
			r.log.WithFields(logrus.Fields{"prefix": prefix, "error": err}).
				Error("registry: failed to reconstitute network, skipping")
			continue
		}
	}
	return nil
}

// Register validates cfg, creates the network's data directory, applies its
// combined schema, persists the registry file, and installs a dedicated
// Graph Client. See spec §4.2.
func (r *Registry) Register(prefix string, cfg Config) (*Network, error) {
	if err := cfg.validate(prefix); err != nil {
		return nil, err
	}
	tokens := make([]TokenDescriptor, len(cfg.Tokens))
	copy(tokens, cfg.Tokens)
	for i := range tokens {
		if tokens[i].Precision == 0 {
			tokens[i].Precision = 3
		}
	}
	cfg.Tokens = tokens

	r.mu.Lock()
	if _, exists := r.networks[prefix]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, prefix)
	}
	r.mu.Unlock()

	if err := r.installLocked(prefix, cfg, "", time.Now(), true); err != nil {
		return nil, err
	}

	r.mu.RLock()
	net := r.networks[prefix].net
	r.mu.RUnlock()
	return &net, nil
}

// installLocked performs directory creation, schema application, dialing,
// and map insertion for one network. persist controls whether the registry
// file is rewritten afterwards (false during Load, since every entry there
// is already persisted).
func (r *Registry) installLocked(prefix string, cfg Config, dataDir string, registeredAt time.Time, persist bool) error {
	if dataDir == "" {
		dataDir = filepath.Join(r.dataDir, "networks", prefix)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStorageError, dataDir, err)
	}

	client, err := r.dialer(prefix)
	if err != nil {
		return fmt.Errorf("%w: dial graph client for %s: %v", ErrStorageError, prefix, err)
	}

	schema := r.baseSchema
	if cfg.SchemaExtension != "" {
		schema = schema + "\n" + cfg.SchemaExtension
	}
	if schema != "" {
		if err := client.ApplySchema(context.Background(), schema); err != nil {
			_ = client.Close()
			return fmt.Errorf("%w: %v", ErrSchemaError, err)
		}
	}

	net := Network{
		Prefix:       prefix,
		Name:         cfg.Name,
		Description:  cfg.Description,
		Tokens:       cfg.Tokens,
		DataDir:      dataDir,
		RegisteredAt: registeredAt,
	}

	r.mu.Lock()
	r.networks[prefix] = &entry{net: net, client: client}
	for _, tok := range cfg.Tokens {
		r.tokenIndex.Add(tok.Symbol, prefix)
	}
	r.mu.Unlock()

	if persist {
		if err := r.persist(); err != nil {
			r.mu.Lock()
			delete(r.networks, prefix)
			r.mu.Unlock()
			_ = client.Close()
			return err
		}
	}
	return nil
}

// persist rewrites the registry file from the current in-memory map.
// Callers must not hold r.mu when calling this (it acquires its own read
// lock internally is avoided by snapshotting first).
func (r *Registry) persist() error {
	r.mu.RLock()
	persisted := make(map[string]persistedEntry, len(r.networks))
	for prefix, e := range r.networks {
		persisted[prefix] = persistedEntry{
			Config: Config{
				Name:        e.net.Name,
				Description: e.net.Description,
				Tokens:      e.net.Tokens,
			},
			DataDir:      e.net.DataDir,
			RegisteredAt: e.net.RegisteredAt,
		}
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal registry: %v", ErrStorageError, err)
	}
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStorageError, r.dataDir, err)
	}
	if err := os.WriteFile(r.registryFilePath(), data, 0o644); err != nil {
		return fmt.Errorf("%w: write registry file: %v", ErrStorageError, err)
	}
	return nil
}

// Get returns the Network registered under prefix.
func (r *Registry) Get(prefix string) (Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.networks[prefix]
	if !ok {
		return Network{}, false
	}
	return e.net, true
}

// Client returns the Graph Client owned by the network registered under
// prefix.
func (r *Registry) Client(prefix string) (*graph.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.networks[prefix]
	if !ok {
		return nil, false
	}
	return e.client, true
}

// All returns every registered Network.
func (r *Registry) All() []Network {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Network, 0, len(r.networks))
	for _, e := range r.networks {
		out = append(out, e.net)
	}
	return out
}

// FindByToken returns the Network carrying a token with the given symbol.
func (r *Registry) FindByToken(symbol string) (Network, bool) {
	r.mu.RLock()
	prefix, ok := r.tokenIndex.Get(symbol)
	r.mu.RUnlock()
	if !ok {
		return Network{}, false
	}
	return r.Get(prefix)
}

// Snapshot records a checkpoint artifact under the network's data
// directory, per spec §4.2.
func (r *Registry) Snapshot(prefix string, blockNum uint64, stateHash string, stats []TokenStats) error {
	net, ok := r.Get(prefix)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}

	artifact := CheckpointArtifact{
		BlockNum:   blockNum,
		StateHash:  stateHash,
		TakenAt:    time.Now(),
		TokenStats: stats,
	}
	dir := filepath.Join(filepath.Dir(filepath.Dir(net.DataDir)), "checkpoints", prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStorageError, dir, err)
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal checkpoint artifact: %v", ErrStorageError, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.json", blockNum))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorageError, path, err)
	}
	return nil
}

// Close releases every network's Graph Client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, e := range r.networks {
		if err := e.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
