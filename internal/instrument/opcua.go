package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"

	"reactir/internal/logging"
)

// OPCUALink is a Link over an OPC UA client session. Reads are serialized so
// the two polling loops never interleave requests on the shared session.
type OPCUALink struct {
	mu       sync.Mutex
	client   *opcua.Client
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger
}

func newOPCUALink(ctx context.Context, endpoint string, timeout time.Duration, logger *slog.Logger) (*OPCUALink, error) {
	opts := []opcua.Option{
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.SecurityPolicy(ua.SecurityPolicyURINone),
		opcua.AutoReconnect(false),
	}
	if timeout > 0 {
		opts = append(opts, opcua.RequestTimeout(timeout))
	}
	client, err := opcua.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("create opc ua client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}
	return &OPCUALink{
		client:   client,
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Endpoint returns the server URL the link is connected to.
func (l *OPCUALink) Endpoint() string { return l.endpoint }

// Read fetches the value attribute of addr. Bad status codes from the server
// become transient faults; anything else is unexpected.
func (l *OPCUALink) Read(ctx context.Context, addr string) Outcome {
	node, err := l.node(addr)
	if err != nil {
		return Skip(Unexpected(addr, err))
	}

	ctx, cancel := l.requestContext(ctx)
	defer cancel()

	l.mu.Lock()
	value, err := node.Value(ctx)
	l.mu.Unlock()
	if err != nil {
		return Skip(classify(addr, err))
	}
	if value == nil {
		return Skip(Transient(addr, errors.New("empty value")))
	}
	return Ok(value.Value())
}

// Children lists the hierarchical children of addr.
func (l *OPCUALink) Children(ctx context.Context, addr string) ([]Node, error) {
	node, err := l.node(addr)
	if err != nil {
		return nil, Unexpected(addr, err)
	}

	ctx, cancel := l.requestContext(ctx)
	defer cancel()

	l.mu.Lock()
	children, err := node.Children(ctx, id.HierarchicalReferences, ua.NodeClassVariable|ua.NodeClassObject)
	l.mu.Unlock()
	if err != nil {
		return nil, classify(addr, err)
	}

	nodes := make([]Node, 0, len(children))
	for _, child := range children {
		if child == nil || child.ID == nil {
			continue
		}
		nodes = append(nodes, NodeOf(l, child.ID.String()))
	}
	return nodes, nil
}

// DisplayName returns the browse name of addr, then its display text, then
// the address itself when neither attribute is readable.
func (l *OPCUALink) DisplayName(ctx context.Context, addr string) string {
	node, err := l.node(addr)
	if err != nil {
		return addr
	}

	ctx, cancel := l.requestContext(ctx)
	defer cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if name, err := node.BrowseName(ctx); err == nil && name != nil && strings.TrimSpace(name.Name) != "" {
		return name.Name
	}
	if text, err := node.DisplayName(ctx); err == nil && text != nil && strings.TrimSpace(text.Text) != "" {
		return text.Text
	}
	return addr
}

// Close ends the client session.
func (l *OPCUALink) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client == nil {
		return nil
	}
	err := l.client.Close(ctx)
	l.client = nil
	if err != nil {
		return fmt.Errorf("close opc ua session: %w", err)
	}
	if l.logger != nil {
		l.logger.Info("instrument disconnected", logging.String("endpoint", l.endpoint))
	}
	return nil
}

func (l *OPCUALink) node(addr string) (*opcua.Node, error) {
	nodeID, err := ua.ParseNodeID(addr)
	if err != nil {
		return nil, fmt.Errorf("parse node id: %w", err)
	}
	l.mu.Lock()
	client := l.client
	l.mu.Unlock()
	if client == nil {
		return nil, errors.New("link closed")
	}
	return client.Node(nodeID), nil
}

func (l *OPCUALink) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

func classify(addr string, err error) *Fault {
	var status ua.StatusCode
	if errors.As(err, &status) {
		return Transient(addr, err)
	}
	return Unexpected(addr, err)
}
