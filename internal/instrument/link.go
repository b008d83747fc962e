package instrument

import "context"

// Link is a live connection to the instrument. Implementations must be safe
// for concurrent use by both polling loops.
type Link interface {
	Read(ctx context.Context, addr string) Outcome
	Children(ctx context.Context, addr string) ([]Node, error)
	DisplayName(ctx context.Context, addr string) string
	Close(ctx context.Context) error
}

// Node is a handle to one addressable instrument node.
type Node interface {
	Address() string
	Value(ctx context.Context) Outcome
	Children(ctx context.Context) ([]Node, error)
	DisplayName(ctx context.Context) string
}

// NodeOf returns a Node backed by link for addr.
func NodeOf(link Link, addr string) Node {
	return linkNode{link: link, addr: addr}
}

type linkNode struct {
	link Link
	addr string
}

func (n linkNode) Address() string { return n.addr }

func (n linkNode) Value(ctx context.Context) Outcome { return n.link.Read(ctx, n.addr) }

func (n linkNode) Children(ctx context.Context) ([]Node, error) {
	return n.link.Children(ctx, n.addr)
}

func (n linkNode) DisplayName(ctx context.Context) string {
	return n.link.DisplayName(ctx, n.addr)
}
