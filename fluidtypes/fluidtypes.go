// Package fluidtypes provides marker types that carry TypeScript shape
// information Go's type system cannot express directly: unions, tuples,
// literal sets, and a handful of string-backed scalars.
//
// The generator recognizes these types by identity. At runtime they marshal to
// the JSON shape their TypeScript rendering describes.
package fluidtypes

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Null is the JSON null type. It is only meaningful as a union arm.
type Null struct{}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// UnionType is implemented by union containers. Arms returns the arm types in
// declaration order.
type UnionType interface {
	Arms() []reflect.Type
}

// OptionalType is implemented by Optional.
type OptionalType interface {
	Elem() reflect.Type
}

// TupleType is implemented by fixed-length positional containers.
type TupleType interface {
	Elems() []reflect.Type
}

// LiteralSet is implemented by named types restricted to a finite set of
// values. Values must be strings, bools or numbers.
//
//	type Color string
//	func (Color) LiteralValues() []any { return []any{"red", "green"} }
type LiteralSet interface {
	LiteralValues() []any
}

// Optional holds a T that may be absent. It renders as an optional field.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Valid: true} }

func (Optional[T]) Elem() reflect.Type { return reflect.TypeFor[T]() }

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Union2 holds a value of type A or B.
type Union2[A, B any] struct {
	value any
}

// Union2Of builds a union from either arm. It panics if v is neither.
func Union2Of[A, B any](v any) Union2[A, B] {
	switch v.(type) {
	case A, B:
		return Union2[A, B]{value: v}
	}
	panic(fmt.Sprintf("fluidtypes: %T is not an arm of Union2", v))
}

func (Union2[A, B]) Arms() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
}

// Value returns the held arm value, or nil.
func (u Union2[A, B]) Value() any { return u.value }

func (u Union2[A, B]) MarshalJSON() ([]byte, error) { return json.Marshal(u.value) }

// Union3 holds a value of type A, B or C.
type Union3[A, B, C any] struct {
	value any
}

// Union3Of builds a union from any arm. It panics if v is not an arm.
func Union3Of[A, B, C any](v any) Union3[A, B, C] {
	switch v.(type) {
	case A, B, C:
		return Union3[A, B, C]{value: v}
	}
	panic(fmt.Sprintf("fluidtypes: %T is not an arm of Union3", v))
}

func (Union3[A, B, C]) Arms() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()}
}

func (u Union3[A, B, C]) Value() any { return u.value }

func (u Union3[A, B, C]) MarshalJSON() ([]byte, error) { return json.Marshal(u.value) }

// Tuple2 is a two element positional array.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

func (Tuple2[A, B]) Elems() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
}

func (t Tuple2[A, B]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.First, t.Second})
}

// Tuple3 is a three element positional array.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (Tuple3[A, B, C]) Elems() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()}
}

func (t Tuple3[A, B, C]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.First, t.Second, t.Third})
}

// Date is a calendar date without a time zone, encoded as YYYY-MM-DD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the date portion of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(dateLayout, string(b))
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// Path is a filesystem path.
type Path string

// EmailStr is an email address.
type EmailStr string

// PaymentCardNumber is a payment card number.
type PaymentCardNumber string
