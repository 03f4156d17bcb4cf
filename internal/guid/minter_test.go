package guid

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/crates/pkg/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lower-cases", "Heart", "heart"},
		{"collapses spaces", "Heart Rate", "heart-rate"},
		{"collapses whitespace runs", "Heart \t  Rate\nData", "heart-rate-data"},
		{"trims edges", "  padded  ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestMintTimestamp(t *testing.T) {
	clock := fixedClock(time.Date(2023, 1, 1, 12, 30, 45, 0, time.UTC))
	m, err := New(WithClock(clock))
	require.NoError(t, err)

	id, err := m.Mint(types.KindDataset, "Heart Rate", types.NewGraph())
	require.NoError(t, err)
	assert.Equal(t, "ark:59852/dataset-heart-rate-20230101123045", id)
}

func TestMintUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	m, err := New(WithClock(fixedClock(time.Date(2023, 1, 1, 2, 0, 0, 0, loc))))
	require.NoError(t, err)

	id, err := m.Mint(types.KindSoftware, "tool", nil)
	require.NoError(t, err)
	assert.Equal(t, "ark:59852/software-tool-20230101000000", id)
}

func TestMintCustomNAAN(t *testing.T) {
	m, err := New(WithNAAN("12345"), WithClock(fixedClock(time.Unix(0, 0))))
	require.NoError(t, err)

	id, err := m.Mint(types.KindComputation, "Run", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "ark:12345/computation-run-"))
}

func TestMintCollision(t *testing.T) {
	m, err := New(WithClock(fixedClock(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)

	g := types.NewGraph()
	g.Append(types.NewEntity("ark:59852/dataset-hr-20230101000000", "HR", types.TypeDataset))

	_, err = m.Mint(types.KindDataset, "HR", g)
	require.Error(t, err)

	var collision *types.CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "ark:59852/dataset-hr-20230101000000", collision.ID)
	assert.ErrorIs(t, err, types.ErrCollision)
}

func TestMintUUIDStrategy(t *testing.T) {
	m, err := New(WithStrategy(StrategyUUID))
	require.NoError(t, err)

	id, err := m.Mint(types.KindSchema, "HR Schema", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^ark:59852/schema-hr-schema-[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(WithStrategy("sequential"))
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestMintProperties(t *testing.T) {
	idPattern := regexp.MustCompile(`^ark:59852/dataset-[^\s]*-\d{14}$`)

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z0-9 \t]{0,40}`).Draw(t, "name")
		sec := rapid.Int64Range(0, 4102444800).Draw(t, "sec")

		m, err := New(WithClock(fixedClock(time.Unix(sec, 0))))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		id, err := m.Mint(types.KindDataset, name, nil)
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		if !idPattern.MatchString(id) {
			t.Fatalf("id %q does not match %s", id, idPattern)
		}

		// A graph holding the id must reject a second mint at the same second.
		g := types.NewGraph()
		g.Append(types.NewEntity(id, name, types.TypeDataset))
		if _, err := m.Mint(types.KindDataset, name, g); !errors.Is(err, types.ErrCollision) {
			t.Fatalf("expected collision for %q, got %v", id, err)
		}
	})
}
