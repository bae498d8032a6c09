package storage

import (
	"errors"
	"testing"
)

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("boom") }

func TestCloseIfSupported(t *testing.T) {
	c := &closer{}
	if err := CloseIfSupported(c); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !c.closed {
		t.Fatal("expected closer to be closed")
	}
	if err := CloseIfSupported(struct{}{}); err != nil {
		t.Fatalf("close non-closer: %v", err)
	}
	if err := CloseIfSupported(failingCloser{}); err == nil {
		t.Fatal("expected close error")
	}
}
