package band

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanner(lines ...string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func TestBuilderScripted(t *testing.T) {
	in := scanner("Radiohead", "2.5", "-10", "5", "soul", "Parlophone", "3", "900", "next line")
	b, err := NewBuilder(in, nil, false).Build()
	require.NoError(t, err)

	want := Band{
		Name:         "Radiohead",
		Coordinates:  Coordinates{X: 2.5, Y: -10},
		Participants: 5,
		Genre:        GenreSoul,
		Label:        Label{Name: "Parlophone", Bands: 3, Sales: 900},
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, b.Validate())

	// The builder consumes exactly one line per field.
	require.True(t, in.Scan())
	assert.Equal(t, "next line", in.Text())
}

func TestBuilderScriptedFailsOnInvalidValue(t *testing.T) {
	in := scanner("Radiohead", "2.5", "1000")
	_, err := NewBuilder(in, nil, false).Build()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBuilderScriptedRunsOutOfInput(t *testing.T) {
	_, err := NewBuilder(scanner("Radiohead"), nil, false).Build()
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestBuilderInteractiveRetries(t *testing.T) {
	in := scanner("", "Blur", "abc", "1", "2", "0", "4", "jazz", "blues", "", "0", "-5", "10")
	var out bytes.Buffer
	b, err := NewBuilder(in, &out, true).Build()
	require.NoError(t, err)

	assert.Equal(t, "Blur", b.Name)
	assert.Equal(t, int32(4), b.Participants)
	assert.Equal(t, GenreBlues, b.Genre)
	assert.Equal(t, "", b.Label.Name)
	assert.Equal(t, int64(10), b.Label.Sales)
	assert.Contains(t, out.String(), "enter name: ")
	assert.Contains(t, out.String(), "name must not be empty")
	assert.Contains(t, out.String(), "unknown genre")
}
