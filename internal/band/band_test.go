package band

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBand() Band {
	return Band{
		ID:           1,
		Name:         "Pink Floyd",
		Coordinates:  Coordinates{X: 1.5, Y: 20},
		Participants: 4,
		CreatedAt:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Genre:        GenrePsychedelicRock,
		Label:        Label{Name: "Harvest", Bands: 12, Sales: 1000},
		Owner:        "alice",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Band)
		wantErr bool
	}{
		{name: "valid band", mutate: func(*Band) {}},
		{name: "y at the limit", mutate: func(b *Band) { b.Coordinates.Y = MaxY }},
		{name: "empty label name", mutate: func(b *Band) { b.Label.Name = "" }},
		{name: "blank name", mutate: func(b *Band) { b.Name = "  " }, wantErr: true},
		{name: "infinite x", mutate: func(b *Band) { b.Coordinates.X = float32(math.Inf(1)) }, wantErr: true},
		{name: "negative infinite x", mutate: func(b *Band) { b.Coordinates.X = float32(math.Inf(-1)) }, wantErr: true},
		{name: "y above limit", mutate: func(b *Band) { b.Coordinates.Y = MaxY + 1 }, wantErr: true},
		{name: "no participants", mutate: func(b *Band) { b.Participants = 0 }, wantErr: true},
		{name: "unknown genre", mutate: func(b *Band) { b.Genre = "POLKA" }, wantErr: true},
		{name: "negative label bands", mutate: func(b *Band) { b.Label.Bands = -1 }, wantErr: true},
		{name: "zero sales", mutate: func(b *Band) { b.Label.Sales = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBand()
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalid), "error should wrap ErrInvalid: %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseGenre(t *testing.T) {
	g, err := ParseGenre(" hip_hop ")
	require.NoError(t, err)
	assert.Equal(t, GenreHipHop, g)

	_, err = ParseGenre("jazz")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "PSYCHEDELIC_ROCK, HIP_HOP, SOUL, BLUES, MATH_ROCK", GenreNames())
}

func TestCompare(t *testing.T) {
	small := validBand()
	small.Participants = 2
	big := validBand()
	big.Participants = 5

	assert.Equal(t, -1, Compare(small, big))
	assert.Equal(t, 1, Compare(big, small))

	a, b := validBand(), validBand()
	a.Name, b.Name = "Abba", "Blur"
	assert.Equal(t, -1, Compare(a, b))

	b.Name = a.Name
	b.ID = a.ID + 1
	assert.Equal(t, -1, Compare(a, b))
	assert.Equal(t, 0, Compare(a, a))
}

func TestBandString(t *testing.T) {
	got := validBand().String()
	want := `#1 "Pink Floyd": 4 participants, PSYCHEDELIC_ROCK, at 1.5;20, label "Harvest" (bands 12, sales 1000), owner alice, created 2024-01-15T10:00:00Z`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, Label{Sales: 1}.String(), "<none>")
}
