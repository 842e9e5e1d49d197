package resource

import (
	"errors"
	"fmt"
	"strings"
)

var errInvalidResource = errors.New("resource: invalid descriptor")

// Field is a declared form field of a resource.
type Field struct {
	Name        string
	Label       string
	Placeholder string
}

// Record is one row of a collection. Values are returned in the order of the
// resource's declared fields.
type Record interface {
	Identifier() (int64, bool)
	Values() []string
}

// Resource describes a REST collection and the shape of its form.
type Resource[R Record] struct {
	Name       string
	Collection string
	Fields     []Field
	// Build turns draft values into a request payload without an identifier.
	Build func(values []string) R
	// Empty is shown when the collection has no records.
	Empty string
}

// ItemPath returns the path of a single record of the collection.
func (r Resource[R]) ItemPath(id int64) string {
	return fmt.Sprintf("%s/%d", r.Collection, id)
}

// FieldIndex resolves a field by wire name or label, case-insensitively.
func (r Resource[R]) FieldIndex(name string) (int, bool) {
	wanted := strings.ToLower(strings.TrimSpace(name))
	for index, field := range r.Fields {
		if strings.ToLower(field.Name) == wanted || strings.ToLower(field.Label) == wanted {
			return index, true
		}
	}
	return 0, false
}

func (r Resource[R]) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name required", errInvalidResource)
	}
	if !strings.HasPrefix(r.Collection, "/") {
		return fmt.Errorf("%w: collection must start with '/'", errInvalidResource)
	}
	if len(r.Fields) == 0 {
		return fmt.Errorf("%w: at least one field required", errInvalidResource)
	}
	if r.Build == nil {
		return fmt.Errorf("%w: build function required", errInvalidResource)
	}
	return nil
}
