package commands

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/marshallshelly/modspace/internal/app"
	"github.com/marshallshelly/modspace/pkg/orm"
)

// resourceTable is a fetched resource rendered as text cells.
type resourceTable struct {
	Name    string
	Columns []string
	Rows    [][]string
	// Models holds the fetched models for JSON output.
	Models any
}

type fetcher func(ctx context.Context, em *orm.EntityManager) (*resourceTable, error)

var resources = map[string]fetcher{
	"users":         tabulate[app.User],
	"books":         tabulate[app.Book],
	"catalogs":      tabulate[app.Catalog],
	"students":      tabulate[app.Students],
	"contact-infos": tabulate[app.ContactInfo],
}

func resourceNames() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fetchResource(ctx context.Context, em *orm.EntityManager, name string) (*resourceTable, error) {
	f, ok := resources[name]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q (want one of %s)", name, strings.Join(resourceNames(), ", "))
	}
	t, err := f(ctx, em)
	if err != nil {
		return nil, err
	}
	t.Name = name
	return t, nil
}

// tabulate loads every model of type T and renders one row per model,
// one column per property.
func tabulate[T any](ctx context.Context, em *orm.EntityManager) (*resourceTable, error) {
	repo, err := orm.GetRepository[T](em)
	if err != nil {
		return nil, err
	}
	models, err := repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	props, err := em.Properties(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	t := &resourceTable{Columns: props, Rows: make([][]string, 0, len(models)), Models: models}
	for _, m := range models {
		row := make([]string, len(props))
		for i, p := range props {
			v, err := em.Access(m, p, orm.AccessRead)
			if err != nil {
				return nil, err
			}
			row[i] = cell(em, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// cell renders a property value. Related models are shown by id and
// collections by size.
func cell(em *orm.EntityManager, v any) string {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) || (rv.Kind() == reflect.Slice && rv.IsNil()) {
		return "-"
	}

	if c, ok := v.(interface{ Len() int }); ok {
		return fmt.Sprintf("%d item(s)", c.Len())
	}
	if rv.Kind() == reflect.Slice {
		return fmt.Sprintf("%d item(s)", rv.Len())
	}
	if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct {
		if id, err := em.Access(v, "id", orm.AccessRead); err == nil {
			return fmt.Sprintf("#%v", id)
		}
	}
	return fmt.Sprint(v)
}
