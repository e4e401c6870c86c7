// Package dataset defines the labeled multi-dimensional array model
// decoded from self-describing hierarchical containers.
package dataset

import (
	"fmt"
	"reflect"
)

// Dimension is one named axis of a variable.
type Dimension struct {
	Name string
	Len  int
}

// Variable is one named multi-dimensional array with attributes.
// Values holds the decoded buffer as (possibly nested) Go slices; the
// variable owns the buffer.
type Variable struct {
	Name       string
	Dimensions []Dimension
	Attributes map[string]any
	Values     any
}

// Len returns the total element count.
func (v *Variable) Len() int {
	if len(v.Dimensions) == 0 {
		if v.Values == nil {
			return 0
		}
		return 1
	}
	n := 1
	for _, d := range v.Dimensions {
		n *= d.Len
	}
	return n
}

// Float64s flattens the variable's values into a float64 slice. Only
// numeric element types are supported.
func (v *Variable) Float64s() ([]float64, error) {
	out := make([]float64, 0, v.Len())
	if err := flattenInto(reflect.ValueOf(v.Values), &out); err != nil {
		return nil, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	return out, nil
}

func flattenInto(val reflect.Value, out *[]float64) error {
	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			if err := flattenInto(val.Index(i), out); err != nil {
				return err
			}
		}
		return nil
	case reflect.Float32, reflect.Float64:
		*out = append(*out, val.Float())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		*out = append(*out, float64(val.Int()))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		*out = append(*out, float64(val.Uint()))
		return nil
	case reflect.Interface:
		return flattenInto(val.Elem(), out)
	default:
		return fmt.Errorf("non-numeric element type %s", val.Kind())
	}
}

// Group is the decoded view of one named subgroup. It owns its decoded
// buffers and keeps no reference to the handle it was loaded from.
type Group struct {
	Name       string
	Path       string
	Attributes map[string]any
	Variables  []Variable
	Subgroups  []string
}

// Variable finds a variable by name.
func (g *Group) Variable(name string) (*Variable, bool) {
	for i := range g.Variables {
		if g.Variables[i].Name == name {
			return &g.Variables[i], true
		}
	}
	return nil, false
}

// Equal reports whether two groups are structurally identical: same
// names, dimensions, attributes, and decoded values.
func (g *Group) Equal(other *Group) bool {
	if g == nil || other == nil {
		return g == other
	}
	return reflect.DeepEqual(g, other)
}
