package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grpweb/grpweb/internal/resource"
)

// screen is a mounted list-form view over one resource.
type screen interface {
	name() string
	load(ctx context.Context) error
	render(w io.Writer)
	edit(id int64) error
	set(field, value string) error
	fields() []resource.Field
	save(ctx context.Context) error
	remove(ctx context.Context, id int64, confirmer resource.Confirmer) error
	cancel()
	unmount()
}

type headings struct {
	title    string
	create   string
	editing  func(draft []string) string
	loadHint string
}

type resourceScreen[R resource.Record] struct {
	controller *resource.Controller[R]
	headings   headings
}

func newResourceScreen[R resource.Record](controller *resource.Controller[R], headings headings) *resourceScreen[R] {
	return &resourceScreen[R]{controller: controller, headings: headings}
}

func (s *resourceScreen[R]) name() string {
	return s.controller.Resource().Name
}

func (s *resourceScreen[R]) fields() []resource.Field {
	return s.controller.Resource().Fields
}

func (s *resourceScreen[R]) load(ctx context.Context) error {
	return s.controller.LoadList(ctx)
}

func (s *resourceScreen[R]) edit(id int64) error {
	record, ok := s.controller.Find(id)
	if !ok {
		return fmt.Errorf("no %s with id %d", s.name(), id)
	}
	s.controller.SelectForEdit(record)
	return nil
}

func (s *resourceScreen[R]) set(field, value string) error {
	return s.controller.SetField(field, value)
}

func (s *resourceScreen[R]) save(ctx context.Context) error {
	return s.controller.Submit(ctx)
}

func (s *resourceScreen[R]) remove(ctx context.Context, id int64, confirmer resource.Confirmer) error {
	return s.controller.Remove(ctx, id, confirmer)
}

func (s *resourceScreen[R]) cancel() {
	s.controller.CancelEdit()
}

func (s *resourceScreen[R]) unmount() {
	s.controller.Unmount()
}

func (s *resourceScreen[R]) render(w io.Writer) {
	state := s.controller.Snapshot()
	descriptor := s.controller.Resource()

	fmt.Fprintf(w, "== %s ==\n", s.headings.title)
	if state.Editing {
		fmt.Fprintln(w, s.headings.editing(state.Draft))
	} else {
		fmt.Fprintln(w, s.headings.create)
	}
	for index, field := range descriptor.Fields {
		value := state.Draft[index]
		if value == "" {
			value = "<" + field.Placeholder + ">"
		}
		fmt.Fprintf(w, "  %-8s %s\n", field.Label+":", value)
	}
	if state.Err != "" {
		fmt.Fprintf(w, "Error: %s\n", state.Err)
	}

	fmt.Fprintln(w, s.headings.loadHint)
	if state.Loading {
		fmt.Fprintln(w, "  Loading...")
		return
	}
	if len(state.Records) == 0 {
		fmt.Fprintf(w, "  %s\n", descriptor.Empty)
		return
	}
	selected, listed := state.Selected()
	selectedID, _ := selected.Identifier()
	for _, record := range state.Records {
		id, _ := record.Identifier()
		marker := " "
		if listed && selectedID == id {
			marker = "*"
		}
		fmt.Fprintf(w, "%s #%-4d %s\n", marker, id, strings.Join(record.Values(), " | "))
	}
}

var messageHeadings = headings{
	title:  "Messages",
	create: "Create Message",
	editing: func(draft []string) string {
		return "Editing: " + draft[0]
	},
	loadHint: "Messages:",
}

var positionHeadings = headings{
	title:  "Position Dashboard",
	create: "Create New Position",
	editing: func([]string) string {
		return "Edit Position"
	},
	loadHint: "Positions List:",
}
