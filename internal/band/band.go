package band

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalid is returned when a band fails validation.
var ErrInvalid = errors.New("invalid band")

// MaxY is the largest allowed value of Coordinates.Y.
const MaxY = 968

// Genre is the musical genre of a band.
type Genre string

const (
	GenrePsychedelicRock Genre = "PSYCHEDELIC_ROCK"
	GenreHipHop          Genre = "HIP_HOP"
	GenreSoul            Genre = "SOUL"
	GenreBlues           Genre = "BLUES"
	GenreMathRock        Genre = "MATH_ROCK"
)

// Genres lists every known genre in declaration order.
var Genres = []Genre{GenrePsychedelicRock, GenreHipHop, GenreSoul, GenreBlues, GenreMathRock}

// ParseGenre converts s to a Genre, ignoring case and surrounding spaces.
func ParseGenre(s string) (Genre, error) {
	g := Genre(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: unknown genre %q (want one of %s)", ErrInvalid, s, GenreNames())
	}
	return g, nil
}

// Valid reports whether g is one of Genres.
func (g Genre) Valid() bool {
	for _, known := range Genres {
		if g == known {
			return true
		}
	}
	return false
}

// GenreNames returns the comma separated list of genre names.
func GenreNames() string {
	names := make([]string, len(Genres))
	for i, g := range Genres {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

// Coordinates locates a band on the map.
type Coordinates struct {
	X float32
	Y int64
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%g;%d", c.X, c.Y)
}

// Label is the record label a band is signed to. Two bands belong to the
// same label when their Label values are equal.
type Label struct {
	Name  string
	Bands int32
	Sales int64
}

func (l Label) String() string {
	name := l.Name
	if name == "" {
		name = "<none>"
	}
	return fmt.Sprintf("label %q (bands %d, sales %d)", name, l.Bands, l.Sales)
}

// Band is a single record of the collection.
//
// ID and CreatedAt are assigned by the server: ID by the persistence layer when
// the band is first stored, CreatedAt at creation time. Neither changes after
// that. Owner is the login of the user that created the band.
type Band struct {
	ID           int64
	Name         string
	Coordinates  Coordinates
	Participants int32
	CreatedAt    time.Time
	Genre        Genre
	Label        Label
	Owner        string
}

// Validate checks the field invariants of b. The returned error wraps
// ErrInvalid and names the first offending field.
func (b Band) Validate() error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalid)
	case math.IsInf(float64(b.Coordinates.X), 0) || math.IsNaN(float64(b.Coordinates.X)):
		return fmt.Errorf("%w: x must be a finite number", ErrInvalid)
	case b.Coordinates.Y > MaxY:
		return fmt.Errorf("%w: y must not exceed %d", ErrInvalid, MaxY)
	case b.Participants <= 0:
		return fmt.Errorf("%w: number of participants must be positive", ErrInvalid)
	case !b.Genre.Valid():
		return fmt.Errorf("%w: unknown genre %q", ErrInvalid, b.Genre)
	case b.Label.Bands < 0:
		return fmt.Errorf("%w: label band count must not be negative", ErrInvalid)
	case b.Label.Sales <= 0:
		return fmt.Errorf("%w: label sales must be positive", ErrInvalid)
	}
	return nil
}

// Compare defines the natural order of bands: by number of participants, then
// by name, then by id. It returns -1, 0 or +1.
func Compare(a, b Band) int {
	switch {
	case a.Participants != b.Participants:
		return cmpInt(int64(a.Participants), int64(b.Participants))
	case a.Name != b.Name:
		return strings.Compare(a.Name, b.Name)
	default:
		return cmpInt(a.ID, b.ID)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (b Band) String() string {
	return fmt.Sprintf("#%d %q: %d participants, %s, at %s, %s, owner %s, created %s",
		b.ID, b.Name, b.Participants, b.Genre, b.Coordinates, b.Label, b.Owner,
		b.CreatedAt.Format(time.RFC3339))
}
