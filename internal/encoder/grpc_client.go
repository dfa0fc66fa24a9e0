package encoder

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"golang.org/x/time/rate"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

// GRPCClientConfig configures a remote encoder connection.
type GRPCClientConfig struct {
	// Addr is the encoder service's host:port.
	Addr string

	// JWTSecret signs the per-call service bearer token.
	JWTSecret string

	// RequestsPerSecond and Burst throttle outgoing Encode calls so a slow
	// or small encoder deployment isn't overrun by the chunk encoder's
	// batch loop (spec §5: encoder calls are the pipeline's only blocking
	// network-shaped operation).
	RequestsPerSecond float64
	Burst             int

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}

// GRPCClient calls a remote encoder service over gRPC using the package's
// custom JSON content-subtype codec instead of generated protobuf stubs
// (codec.go) — there is no .proto contract to generate from for this
// private service boundary.
type GRPCClient struct {
	conn    *grpc.ClientConn
	limiter *rate.Limiter
	tokens  *tokenSource
}

// NewGRPCClient dials addr and returns a ready client. The dial blocks
// until the connection is established or cfg.DialTimeout elapses.
func NewGRPCClient(cfg GRPCClientConfig) (*GRPCClient, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("encoder: dial %s: %w", cfg.Addr, err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &GRPCClient{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		tokens:  newTokenSource(cfg.JWTSecret, 5*time.Minute),
	}, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Encode implements Encoder by invoking the remote service's Encode method.
func (c *GRPCClient) Encode(ctx context.Context, texts []string) (*mat.Matrix, []int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("encoder: rate limit wait: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("encoder: mint service token: %w", err)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	req := &encodeRequest{Texts: texts}
	resp := &encodeResponse{}

	if err := c.conn.Invoke(ctx, "/colbert.Encoder/Encode", req, resp); err != nil {
		return nil, nil, fmt.Errorf("encoder: Encode RPC: %w", err)
	}

	if resp.Dim <= 0 {
		return nil, nil, fmt.Errorf("encoder: remote returned non-positive dim %d", resp.Dim)
	}
	total := 0
	for _, l := range resp.Doclens {
		total += l
	}
	if len(resp.Embeddings) != resp.Dim*total {
		return nil, nil, fmt.Errorf("encoder: embeddings length %d does not match dim %d * sum(doclens) %d", len(resp.Embeddings), resp.Dim, total)
	}

	m := mat.New(resp.Dim, total)
	copy(m.Data(), resp.Embeddings)

	return m, resp.Doclens, nil
}
