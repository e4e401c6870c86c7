// Package nc provides a dataset decoder backed by the pure-Go NetCDF4
// (HDF5-based) container reader. No container parsing is authored here;
// group traversal and array decoding are delegated wholesale to the
// library.
package nc

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/polarpath/earthdata/pkg/dataset"
)

// container is the subset of the library's group interface the adapter
// uses. Tests substitute a fake.
type container interface {
	Close()
	Attributes() api.AttributeMap
	ListVariables() []string
	GetVariable(name string) (*api.Variable, error)
	ListSubgroups() []string
	GetGroup(name string) (container, error)
}

// libGroup adapts the library's group interface to container.
type libGroup struct {
	g api.Group
}

func (l libGroup) Close()                                      { l.g.Close() }
func (l libGroup) Attributes() api.AttributeMap                { return l.g.Attributes() }
func (l libGroup) ListVariables() []string                     { return l.g.ListVariables() }
func (l libGroup) GetVariable(n string) (*api.Variable, error) { return l.g.GetVariable(n) }
func (l libGroup) ListSubgroups() []string                     { return l.g.ListSubgroups() }

func (l libGroup) GetGroup(name string) (container, error) {
	child, err := l.g.GetGroup(name)
	if err != nil {
		return nil, err
	}
	return libGroup{g: child}, nil
}

// openFunc opens a container from a source; swapped in tests.
type openFunc func(src dataset.Source) (container, error)

// Adapter implements dataset.Decoder.
type Adapter struct {
	open openFunc
}

// New creates a new container decoder.
func New() *Adapter {
	return &Adapter{
		open: func(src dataset.Source) (container, error) {
			g, err := netcdf.New(src)
			if err != nil {
				return nil, err
			}
			return libGroup{g: g}, nil
		},
	}
}

// Name returns the decoder name.
func (a *Adapter) Name() string {
	return "netcdf"
}

// Load decodes the subgroup at groupPath from src.
func (a *Adapter) Load(ctx context.Context, src dataset.Source, groupPath string) (*dataset.Group, error) {
	root, err := a.open(src)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	defer root.Close()

	g, name, err := descend(root, groupPath)
	if err != nil {
		return nil, err
	}

	out := &dataset.Group{
		Name:       name,
		Path:       normalizePath(groupPath),
		Attributes: attributesToMap(g.Attributes()),
		Subgroups:  sortedCopy(g.ListSubgroups()),
	}

	names := sortedCopy(g.ListVariables())
	out.Variables = make([]dataset.Variable, 0, len(names))
	for _, vn := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := g.GetVariable(vn)
		if err != nil {
			return nil, fmt.Errorf("decoding variable %s: %w", vn, err)
		}
		out.Variables = append(out.Variables, convertVariable(vn, v))
	}
	return out, nil
}

// Close releases resources.
func (a *Adapter) Close() error {
	return nil
}

// descend walks the group hierarchy segment by segment. Closing the
// root closes the whole hierarchy, so intermediate groups are not
// closed individually.
func descend(root container, groupPath string) (container, string, error) {
	name := "/"
	g := root
	for _, seg := range pathSegments(groupPath) {
		child, err := g.GetGroup(seg)
		if err != nil {
			return nil, "", fmt.Errorf("subgroup %s not found: %w", seg, err)
		}
		g, name = child, seg
	}
	return g, name, nil
}

func pathSegments(groupPath string) []string {
	trimmed := strings.Trim(groupPath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func normalizePath(groupPath string) string {
	return "/" + strings.Trim(groupPath, "/")
}

func convertVariable(name string, v *api.Variable) dataset.Variable {
	return dataset.Variable{
		Name:       name,
		Dimensions: dimensionsOf(v),
		Attributes: attributesToMap(v.Attributes),
		Values:     v.Values,
	}
}

// dimensionsOf pairs the variable's dimension names with the lengths of
// the decoded value's nesting levels.
func dimensionsOf(v *api.Variable) []dataset.Dimension {
	if len(v.Dimensions) == 0 {
		return nil
	}
	dims := make([]dataset.Dimension, len(v.Dimensions))
	val := reflect.ValueOf(v.Values)
	for i, dn := range v.Dimensions {
		length := 0
		if val.IsValid() && (val.Kind() == reflect.Slice || val.Kind() == reflect.Array) {
			length = val.Len()
			if length > 0 {
				val = val.Index(0)
			}
		}
		dims[i] = dataset.Dimension{Name: dn, Len: length}
	}
	return dims
}

func attributesToMap(am api.AttributeMap) map[string]any {
	if am == nil {
		return nil
	}
	keys := am.Keys()
	if len(keys) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, has := am.Get(k); has {
			attrs[k] = v
		}
	}
	return attrs
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// Verify interface compliance.
var _ dataset.Decoder = (*Adapter)(nil)
