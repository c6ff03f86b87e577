// Package ingest turns institution statement exports into canonical
// transactions. One parser per institution, all behind the same interface;
// new institutions are added by registering a parser, not by branching.
package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/mkellner/basis/internal/model"
)

// Parser converts one statement export into canonical transactions.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, accountID int64) ([]model.Transaction, error)
}

var registry = make(map[string]Parser)

// Register adds a parser under an institution tag. Called from parser init
// functions; duplicate tags are a programming error.
func Register(tag string, p Parser) {
	if _, dup := registry[tag]; dup {
		panic(fmt.Sprintf("ingest: duplicate parser registration for %q", tag))
	}
	registry[tag] = p
}

// Lookup returns the parser registered for an institution tag.
func Lookup(tag string) (Parser, error) {
	p, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("unknown institution %q (available: %v)", tag, Available())
	}
	return p, nil
}

// Available returns the registered institution tags in sorted order.
func Available() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
