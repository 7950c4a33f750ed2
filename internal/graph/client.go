// Package graph implements the Graph Client Adapter: a typed, namespaced
// wrapper over an external graph store. The store itself is out of scope;
// Client talks to it through the Conn seam so production code can dial a
// real service while tests substitute an in-memory fake.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Config controls the transport Client dials.
type Config struct {
	Addr           string
	MaxSendMsgSize int // default 50 MiB, per spec §4.1
	MaxRecvMsgSize int
}

func (c Config) withDefaults() Config {
	if c.MaxSendMsgSize <= 0 {
		c.MaxSendMsgSize = 50 << 20
	}
	if c.MaxRecvMsgSize <= 0 {
		c.MaxRecvMsgSize = 50 << 20
	}
	return c
}

// Mutation is a single JSON mutation object as built by the transformer.
// Client.Write namespaces a copy of each Mutation via NamespaceBatch and
// never modifies the caller's map.
type Mutation = map[string]any

// Conn is the transport seam a Client drives. Production code gets one from
// Dial; tests substitute a fake.
type Conn interface {
	Query(ctx context.Context, query string, vars map[string]string) ([]byte, error)
	Mutate(ctx context.Context, mutations []Mutation) (map[string]string, error)
	ApplySchema(ctx context.Context, schema string) error
	Close() error
}

// Client is the namespaced, typed wrapper callers use. One Client is owned
// by exactly one Network (spec §3 Ownership) and is safe for concurrent use
// (spec §5 Shared resources).
type Client struct {
	prefix string
	conn   Conn
	log    *logrus.Logger
}

// Dial opens an insecure gRPC channel to the graph store and returns a
// Client namespaced to prefix. The channel is insecure by default per spec
// §4.1; message-size bounds are configurable.
func Dial(prefix string, cfg Config, log *logrus.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logrus.New()
	}
	cc, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
			grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.CallContentSubtype(codecName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("graph: dial %s: %w", cfg.Addr, err)
	}
	return New(prefix, &grpcConn{cc: cc}, log), nil
}

// New wraps an already-constructed Conn (typically a fake in tests).
func New(prefix string, conn Conn, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{prefix: prefix, conn: conn, log: log}
}

// Prefix returns the network prefix this Client is namespaced to.
func (c *Client) Prefix() string { return c.prefix }

// ApplySchema applies text; idempotent on the store side per spec §4.1.
func (c *Client) ApplySchema(ctx context.Context, text string) error {
	if err := c.conn.ApplySchema(ctx, text); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// Query runs a read-only query and returns the store's raw JSON result.
// Query-side variables are passed through unrewritten: spec §4.1 makes the
// transformer responsible for pre-namespacing them.
func (c *Client) Query(ctx context.Context, text string, vars map[string]string) ([]byte, error) {
	return c.conn.Query(ctx, text, vars)
}

// Write commits mutations in a single atomic transaction. Every mutation and
// every referenced temporary id is namespaced by NamespaceBatch before being
// sent, per the rule in spec §4.1 (accounts and full-path identifiers are
// global and never prefixed): NamespaceBatch, not Namespace, because a
// cross-entity edge field in one mutation commonly references another
// mutation's blank id in the same batch, and the two must be rewritten
// identically for the store to resolve the link.
func (c *Client) Write(ctx context.Context, mutations []Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	namespaced := NamespaceBatch(c.prefix, mutations)
	if _, err := c.conn.Mutate(ctx, namespaced); err != nil {
		if isRetryable(err) {
			return fmt.Errorf("%w: %v", ErrRetryable, err)
		}
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Close releases the underlying transport.
func (c *Client) Close() error { return c.conn.Close() }

// isRetryable classifies a transport error as Retryable per spec §7: store
// unavailability and deadline exceeded are retried at the pipeline level,
// everything else fails the transaction outright.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if t, ok := err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
	}
	return false
}

// grpcConn is the production Conn backed by a real gRPC channel. The graph
// store is expected to expose a service registered as "graph.Graph" with
// unary methods Query/Mutate/ApplySchema; since the store's schema language
// and proto definitions are external (spec §1), grpcConn speaks to it with
// the JSON codec registered in codec.go rather than a generated stub.
type grpcConn struct {
	cc *grpc.ClientConn
}

type queryRequest struct {
	Query string            `json:"query"`
	Vars  map[string]string `json:"vars"`
}

type queryResponse struct {
	JSON []byte `json:"json"`
}

type mutateRequest struct {
	Mutations []Mutation `json:"mutations"`
}

type mutateResponse struct {
	Uids map[string]string `json:"uids"`
}

type schemaRequest struct {
	Schema string `json:"schema"`
}

type schemaResponse struct{}

func (g *grpcConn) Query(ctx context.Context, query string, vars map[string]string) ([]byte, error) {
	req := queryRequest{Query: query, Vars: vars}
	var resp queryResponse
	if err := g.cc.Invoke(ctx, "/graph.Graph/Query", &req, &resp); err != nil {
		return nil, err
	}
	return resp.JSON, nil
}

func (g *grpcConn) Mutate(ctx context.Context, mutations []Mutation) (map[string]string, error) {
	req := mutateRequest{Mutations: mutations}
	var resp mutateResponse
	if err := g.cc.Invoke(ctx, "/graph.Graph/Mutate", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Uids, nil
}

func (g *grpcConn) ApplySchema(ctx context.Context, schema string) error {
	req := schemaRequest{Schema: schema}
	var resp schemaResponse
	return g.cc.Invoke(ctx, "/graph.Graph/ApplySchema", &req, &resp)
}

func (g *grpcConn) Close() error { return g.cc.Close() }

// DeadlineFor returns a context bounded by the per-transaction deadline
// described in spec §5, defaulting to 30s.
func DeadlineFor(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(parent, d)
}
