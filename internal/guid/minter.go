// Package guid mints ARK identifiers for new crate entities.
//
// An identifier has the form
//
//	ark:<NAAN>/<kind>-<slug>-<suffix>
//
// where slug is the entity name lower-cased with whitespace runs collapsed
// to hyphens, and suffix is a UTC timestamp with second resolution
// (YYYYMMDDhhmmss) or, with the uuid strategy, a UUID v7.
package guid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// DefaultNAAN is the naming authority number used when none is configured.
const DefaultNAAN = "59852"

// Suffix strategies.
const (
	StrategyTimestamp = "timestamp"
	StrategyUUID      = "uuid"
)

const timestampLayout = "20060102150405"

// Minter produces identifiers. The zero value is not usable; call New.
type Minter struct {
	naan     string
	strategy string
	now      func() time.Time
}

// Option configures a Minter.
type Option func(*Minter)

// WithNAAN sets the naming authority number.
func WithNAAN(naan string) Option {
	return func(m *Minter) {
		if naan != "" {
			m.naan = naan
		}
	}
}

// WithStrategy selects the suffix strategy (timestamp or uuid).
func WithStrategy(strategy string) Option {
	return func(m *Minter) {
		if strategy != "" {
			m.strategy = strategy
		}
	}
}

// WithClock replaces the clock used for timestamp suffixes.
func WithClock(now func() time.Time) Option {
	return func(m *Minter) {
		m.now = now
	}
}

// New returns a Minter with the default NAAN and the timestamp strategy.
func New(options ...Option) (*Minter, error) {
	m := &Minter{
		naan:     DefaultNAAN,
		strategy: StrategyTimestamp,
		now:      time.Now,
	}
	for _, option := range options {
		option(m)
	}

	if m.strategy != StrategyTimestamp && m.strategy != StrategyUUID {
		return nil, fmt.Errorf("%w: guid strategy %q", types.ErrInvalidValue, m.strategy)
	}
	return m, nil
}

// Mint returns a new identifier for an entity of the given kind and name.
// It fails with a CollisionError if the identifier already exists in graph;
// graph may be nil when there is nothing to collide with.
func (m *Minter) Mint(kind types.Kind, name string, graph *types.Graph) (string, error) {
	suffix, err := m.suffix()
	if err != nil {
		return "", err
	}

	id := fmt.Sprintf("ark:%s/%s-%s-%s", m.naan, kind, Slug(name), suffix)
	if graph != nil && graph.Has(id) {
		return "", &types.CollisionError{ID: id}
	}
	return id, nil
}

func (m *Minter) suffix() (string, error) {
	if m.strategy == StrategyUUID {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generating UUID v7: %w", err)
		}
		return id.String(), nil
	}
	return m.now().UTC().Format(timestampLayout), nil
}

// Slug lower-cases name and collapses each whitespace run to one hyphen.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
