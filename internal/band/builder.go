package band

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrNoInput is returned by a Builder whose line source ran out before all
// fields were read.
var ErrNoInput = errors.New("unexpected end of input while reading band")

// Builder assembles a Band from successive input lines, one field per line.
//
// In interactive mode every field is prompted for on the output writer and an
// invalid value is reported and asked for again. In scripted mode nothing is
// printed and the first invalid value aborts the build.
type Builder struct {
	in          *bufio.Scanner
	out         io.Writer
	interactive bool
}

// NewBuilder returns a Builder reading from in. out receives prompts and may
// be nil when interactive is false.
func NewBuilder(in *bufio.Scanner, out io.Writer, interactive bool) *Builder {
	if out == nil {
		out = io.Discard
	}
	return &Builder{in: in, out: out, interactive: interactive}
}

// Build reads all fields of a band. ID, CreatedAt and Owner are left zero.
func (bl *Builder) Build() (Band, error) {
	var b Band
	var err error

	if b.Name, err = readField(bl, "name", parseName); err != nil {
		return Band{}, err
	}
	x, err := readField(bl, "coordinate x", parseX)
	if err != nil {
		return Band{}, err
	}
	y, err := readField(bl, fmt.Sprintf("coordinate y (at most %d)", MaxY), parseY)
	if err != nil {
		return Band{}, err
	}
	b.Coordinates = Coordinates{X: x, Y: y}
	if b.Participants, err = readField(bl, "number of participants", parsePositiveInt32); err != nil {
		return Band{}, err
	}
	if b.Genre, err = readField(bl, "genre ("+GenreNames()+")", ParseGenre); err != nil {
		return Band{}, err
	}
	if b.Label.Name, err = readField(bl, "label name (empty for none)", parseOptional); err != nil {
		return Band{}, err
	}
	if b.Label.Bands, err = readField(bl, "label band count", parseNonNegativeInt32); err != nil {
		return Band{}, err
	}
	if b.Label.Sales, err = readField(bl, "label sales", parsePositiveInt64); err != nil {
		return Band{}, err
	}
	return b, nil
}

func readField[T any](bl *Builder, prompt string, parse func(string) (T, error)) (T, error) {
	for {
		if bl.interactive {
			fmt.Fprintf(bl.out, "enter %s: ", prompt)
		}
		var zero T
		if !bl.in.Scan() {
			if err := bl.in.Err(); err != nil {
				return zero, err
			}
			return zero, ErrNoInput
		}
		v, err := parse(bl.in.Text())
		if err == nil {
			return v, nil
		}
		if !bl.interactive {
			return zero, err
		}
		fmt.Fprintln(bl.out, err)
	}
}

func parseName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	return s, nil
}

func parseOptional(s string) (string, error) {
	return strings.TrimSpace(s), nil
}

func parseX(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: x must be a finite number", ErrInvalid)
	}
	return float32(f), nil
}

func parseY(s string) (int64, error) {
	y, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: y must be an integer", ErrInvalid)
	}
	if y > MaxY {
		return 0, fmt.Errorf("%w: y must not exceed %d", ErrInvalid, MaxY)
	}
	return y, nil
}

func parsePositiveInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: expected a positive integer", ErrInvalid)
	}
	return int32(n), nil
}

func parseNonNegativeInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: expected a non-negative integer", ErrInvalid)
	}
	return int32(n), nil
}

func parsePositiveInt64(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: expected a positive integer", ErrInvalid)
	}
	return n, nil
}
