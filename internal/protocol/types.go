package protocol

import (
	"fmt"

	"github.com/dreamware/bandstand/internal/band"
)

// ResultOK is the result text of a Response that carries no other message.
const ResultOK = "ok"

// User identifies the acting user of a request. Two users are the same user
// when both login and password are equal.
type User struct {
	Login    string
	Password string
}

// String returns the login only, so a User can be logged safely.
func (u User) String() string {
	return u.Login
}

// ArgKind is the type of the positional argument of a request.
type ArgKind int

const (
	ArgNone ArgKind = iota
	ArgInt
	ArgString
)

func (k ArgKind) String() string {
	switch k {
	case ArgNone:
		return "none"
	case ArgInt:
		return "integer"
	case ArgString:
		return "string"
	}
	return fmt.Sprintf("ArgKind(%d)", int(k))
}

// Arg is the optional positional argument of a request. Only the field
// matching Kind is meaningful.
type Arg struct {
	Kind ArgKind
	Int  int64
	Str  string
}

// IntArg returns an integer argument.
func IntArg(n int64) Arg { return Arg{Kind: ArgInt, Int: n} }

// StringArg returns a string argument.
func StringArg(s string) Arg { return Arg{Kind: ArgString, Str: s} }

// AsInt returns the integer value of a, and false if a is not an integer.
func (a Arg) AsInt() (int64, bool) {
	return a.Int, a.Kind == ArgInt
}

// AsString returns the string value of a, and false if a is not a string.
func (a Arg) AsString() (string, bool) {
	return a.Str, a.Kind == ArgString
}

func (a Arg) String() string {
	switch a.Kind {
	case ArgInt:
		return fmt.Sprint(a.Int)
	case ArgString:
		return a.Str
	}
	return ""
}

// Request is sent by the client, one per connection. Band is set for
// commands that carry a record and nil otherwise.
type Request struct {
	Command string
	Arg     Arg
	Band    *band.Band
	User    User
}

// Tag classifies a failed Response so that the client can branch on it
// without parsing the result text.
type Tag int

const (
	TagNone Tag = iota
	// TagAuthFailed means the credentials of the request did not verify.
	TagAuthFailed
	// TagLoginTaken means a registration named an existing login.
	TagLoginTaken
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagAuthFailed:
		return "auth_failed"
	case TagLoginTaken:
		return "login_taken"
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// Response is the answer to exactly one Request.
type Response struct {
	Result string
	Tag    Tag
}

// NewResponse returns a Response carrying the success sentinel.
func NewResponse() Response {
	return Response{Result: ResultOK}
}

// Text returns an untagged Response with the given result text.
func Text(result string) Response {
	return Response{Result: result}
}

// Fail returns a Response tagged with tag.
func Fail(tag Tag, result string) Response {
	return Response{Result: result, Tag: tag}
}

// Failed reports whether r carries an error tag.
func (r Response) Failed() bool {
	return r.Tag != TagNone
}
