// Package ir defines the intermediate representation shared by introspection
// and code generation. A FieldAnnotation describes any field, parameter or
// return type independent of both the Go source and the generated target
// language; nodes group annotations into models and routes.
package ir

import (
	"reflect"
	"slices"
	"sort"
)

// BaseType is a primitive leaf of the type tree.
type BaseType string

const (
	BaseAny     BaseType = "any"
	BaseNull    BaseType = "null"
	BaseString  BaseType = "string"
	BaseNumber  BaseType = "number"
	BaseBoolean BaseType = "boolean"
	BaseUnknown BaseType = "unknown"
)

// ContainerType is a structural wrapper over child annotations.
type ContainerType string

const (
	ContainerArray    ContainerType = "array"    // []T -> T[]
	ContainerUnion    ContainerType = "union"    // A | B
	ContainerTuple    ContainerType = "tuple"    // [A, B]
	ContainerObject   ContainerType = "object"   // map[K]V -> Record<K, V>
	ContainerLiteral  ContainerType = "literal"  // "a" | "b"
	ContainerOptional ContainerType = "optional" // T, or T | null when nested
)

// FieldAnnotation is one node of the recursive type tree.
// At most one of BaseType, Container or CustomType is set.
type FieldAnnotation struct {
	BaseType  BaseType
	Container ContainerType

	// Args are the ordered children of a container.
	// Object containers hold [key, value].
	Args []FieldAnnotation

	// LiteralValues holds the stringified members of a literal container.
	// String members keep IsStringLiteral so they are quoted on output.
	LiteralValues []LiteralValue

	// CustomType names a model or enum node, or the canonical name of an
	// allowlisted external type.
	CustomType string

	// ClassRef points back at the Go type that produced CustomType.
	// It is used to re-run the project membership test at render time.
	ClassRef reflect.Type

	// External marks allowlisted common external types (UUID, DateTime, ...).
	External bool
}

// LiteralValue is a single member of a literal set.
type LiteralValue struct {
	Value           string
	IsStringLiteral bool
}

// Base returns an annotation for a primitive type.
func Base(b BaseType) FieldAnnotation {
	return FieldAnnotation{BaseType: b}
}

// Array wraps elem in an array container.
func Array(elem FieldAnnotation) FieldAnnotation {
	return FieldAnnotation{Container: ContainerArray, Args: []FieldAnnotation{elem}}
}

// Optional wraps inner in an optional container.
func Optional(inner FieldAnnotation) FieldAnnotation {
	return FieldAnnotation{Container: ContainerOptional, Args: []FieldAnnotation{inner}}
}

// Object builds a key/value map container.
func Object(key, value FieldAnnotation) FieldAnnotation {
	return FieldAnnotation{Container: ContainerObject, Args: []FieldAnnotation{key, value}}
}

// Union builds a union over arms, in order.
func Union(arms ...FieldAnnotation) FieldAnnotation {
	return FieldAnnotation{Container: ContainerUnion, Args: arms}
}

// Tuple builds a fixed-length ordered container.
func Tuple(elems ...FieldAnnotation) FieldAnnotation {
	return FieldAnnotation{Container: ContainerTuple, Args: elems}
}

// Literal builds a literal set from already stringified values.
func Literal(values ...LiteralValue) FieldAnnotation {
	return FieldAnnotation{Container: ContainerLiteral, LiteralValues: values}
}

// StringLiterals is a convenience for a literal set of string members.
func StringLiterals(values ...string) FieldAnnotation {
	lv := make([]LiteralValue, len(values))
	for i, v := range values {
		lv[i] = LiteralValue{Value: v, IsStringLiteral: true}
	}
	return Literal(lv...)
}

// Custom references a named model or enum.
func Custom(name string, ref reflect.Type) FieldAnnotation {
	return FieldAnnotation{CustomType: name, ClassRef: ref}
}

// IsSimple reports whether the annotation has neither a container nor a
// custom type.
func (a FieldAnnotation) IsSimple() bool {
	return a.Container == "" && a.CustomType == ""
}

// IsOptional is true only for the optional container. A union that merely
// contains a null arm is not optional.
func (a FieldAnnotation) IsOptional() bool {
	return a.Container == ContainerOptional
}

// IsZero reports whether nothing is set at all.
func (a FieldAnnotation) IsZero() bool {
	return a.BaseType == "" && a.Container == "" && a.CustomType == "" &&
		len(a.Args) == 0 && len(a.LiteralValues) == 0
}

// ReferencedTypes returns every custom type name in the tree, sorted.
// Allowlisted externals are not models and are left out.
func (a FieldAnnotation) ReferencedTypes() []string {
	set := make(map[string]struct{})
	a.collectReferenced(set)
	return sortedKeys(set)
}

func (a FieldAnnotation) collectReferenced(set map[string]struct{}) {
	if a.CustomType != "" && !a.External {
		set[a.CustomType] = struct{}{}
	}
	for _, arg := range a.Args {
		arg.collectReferenced(set)
	}
}

// Walk calls fn for a and every descendant in depth-first order.
func (a FieldAnnotation) Walk(fn func(FieldAnnotation)) {
	fn(a)
	for _, arg := range a.Args {
		arg.Walk(fn)
	}
}

// Equal compares two annotations structurally. ClassRef is compared by
// identity.
func (a FieldAnnotation) Equal(b FieldAnnotation) bool {
	if a.BaseType != b.BaseType || a.Container != b.Container ||
		a.CustomType != b.CustomType || a.ClassRef != b.ClassRef ||
		a.External != b.External {
		return false
	}
	if !slices.Equal(a.LiteralValues, b.LiteralValues) {
		return false
	}
	return slices.EqualFunc(a.Args, b.Args, FieldAnnotation.Equal)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
