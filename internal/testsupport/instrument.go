package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reactir/internal/instrument"
)

// Step is one scripted read result for a fake node.
type Step struct {
	Value any
	Err   error
}

// Val scripts a successful read.
func Val(v any) Step { return Step{Value: v} }

// Fail scripts a failed read. Plain errors become transient faults.
func Fail(err error) Step { return Step{Err: err} }

// FakeLink is a scripted in-memory instrument. Each address replays its
// steps in order and the last step repeats forever.
type FakeLink struct {
	mu       sync.Mutex
	scripts  map[string][]Step
	cursor   map[string]int
	reads    map[string]int
	children map[string][]string
	names    map[string]string
	hooks    map[string]func(n int)
	closed   bool
}

// NewFakeLink returns an empty fake instrument.
func NewFakeLink() *FakeLink {
	return &FakeLink{
		scripts:  map[string][]Step{},
		cursor:   map[string]int{},
		reads:    map[string]int{},
		children: map[string][]string{},
		names:    map[string]string{},
		hooks:    map[string]func(int){},
	}
}

// Script replaces the steps for addr.
func (f *FakeLink) Script(addr string, steps ...Step) *FakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[addr] = append([]Step(nil), steps...)
	f.cursor[addr] = 0
	return f
}

// Set makes addr return v from now on.
func (f *FakeLink) Set(addr string, v any) *FakeLink {
	return f.Script(addr, Val(v))
}

// AddChild registers child under parent with a display name.
func (f *FakeLink) AddChild(parent, child, name string) *FakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[parent] = append(f.children[parent], child)
	f.names[child] = name
	return f
}

// SetName sets the display name for addr.
func (f *FakeLink) SetName(addr, name string) *FakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[addr] = name
	return f
}

// OnRead registers fn to run after every read of addr with the 1-based read
// count. fn runs outside the fake's lock.
func (f *FakeLink) OnRead(addr string, fn func(n int)) *FakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[addr] = fn
	return f
}

// Reads returns how many times addr has been read.
func (f *FakeLink) Reads(addr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[addr]
}

// Closed reports whether Close was called.
func (f *FakeLink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeLink) Read(_ context.Context, addr string) instrument.Outcome {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return instrument.Skip(instrument.Unexpected(addr, errors.New("link closed")))
	}
	f.reads[addr]++
	n := f.reads[addr]
	hook := f.hooks[addr]
	steps := f.scripts[addr]
	var step Step
	ok := len(steps) > 0
	if ok {
		idx := f.cursor[addr]
		if idx >= len(steps) {
			idx = len(steps) - 1
		}
		step = steps[idx]
		if f.cursor[addr] < len(steps) {
			f.cursor[addr]++
		}
	}
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if !ok {
		return instrument.Skip(instrument.Unexpected(addr, fmt.Errorf("unknown node %s", addr)))
	}
	if step.Err != nil {
		var fault *instrument.Fault
		if errors.As(step.Err, &fault) {
			return instrument.Skip(step.Err)
		}
		return instrument.Skip(instrument.Transient(addr, step.Err))
	}
	return instrument.Ok(step.Value)
}

func (f *FakeLink) Children(_ context.Context, addr string) ([]instrument.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addrs := f.children[addr]
	nodes := make([]instrument.Node, 0, len(addrs))
	for _, child := range addrs {
		nodes = append(nodes, instrument.NodeOf(f, child))
	}
	return nodes, nil
}

func (f *FakeLink) DisplayName(_ context.Context, addr string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.names[addr]; ok {
		return name
	}
	return addr
}

func (f *FakeLink) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
