package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/marshallshelly/modspace/pkg/collection"
	"github.com/marshallshelly/modspace/pkg/runtime"
	"github.com/marshallshelly/modspace/pkg/schema"
)

type User struct {
	ID    string `po:"id,primaryKey"`
	Name  string `po:"name,notNull"`
	Email string `po:"email,unique,notNull"`
}

type Product struct {
	ID    int64  `po:"id,primaryKey,autoIncrement"`
	Title string `po:"title,notNull"`
}

type Author struct {
	ID    int                           `po:"id,primaryKey,autoIncrement"`
	Name  string                        `po:"name"`
	Posts *collection.Collection[*Post] `po:"-,oneToMany"`
}

type Post struct {
	ID     int     `po:"id,primaryKey,autoIncrement"`
	Title  string  `po:"title"`
	Author *Author `po:"-,manyToOne,foreignKey(author_id)"`
}

type Account struct {
	Key     int      `po:"key,primaryKey"`
	Profile *Profile `po:"-,oneToOne"`
}

type Profile struct {
	ID      int      `po:"id,primaryKey"`
	Account *Account `po:"-,oneToOne,foreignKey(account_key)"`
}

type Orphaned struct {
	ID     int    `po:"id,primaryKey"`
	Broken *NoKey `po:"-,manyToOne"`
}

type NoKey struct {
	Name string `po:"name"`
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	t.Run("register new model", func(t *testing.T) {
		err := registry.Register(User{})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		if !registry.Has(reflect.TypeOf(User{})) {
			t.Error("expected model to be registered")
		}
	})

	t.Run("register duplicate model", func(t *testing.T) {
		err := registry.Register(User{})
		if err != nil {
			t.Fatalf("First register failed: %v", err)
		}

		// Should not error on duplicate registration
		err = registry.Register(User{})
		if err != nil {
			t.Errorf("Duplicate register failed: %v", err)
		}
	})

	t.Run("register pointer model", func(t *testing.T) {
		err := registry.Register(&User{})
		if err != nil {
			t.Fatalf("Register with pointer failed: %v", err)
		}

		// Should dereference and register the underlying type
		if !registry.Has(reflect.TypeOf(User{})) {
			t.Error("expected model to be registered")
		}
	})

	t.Run("register invalid type", func(t *testing.T) {
		err := registry.Register("not a struct")
		if !errors.Is(err, runtime.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for non-struct type, got %v", err)
		}
	})
}

func TestRegistry_RegisterRelationTarget(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&Post{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !registry.Has(reflect.TypeOf(Author{})) {
		t.Fatal("expected relation target to be registered")
	}

	post, _ := registry.Get(reflect.TypeOf(Post{}))
	author, _ := registry.Get(reflect.TypeOf(Author{}))

	if post.Relation.TargetPrimaryKey != "id" {
		t.Errorf("expected target primary key 'id', got %q", post.Relation.TargetPrimaryKey)
	}
	if author.Relation.Type != schema.OneToMany {
		t.Errorf("expected ONE_TO_MANY, got %s", author.Relation.Type)
	}
	if author.Relation.MappedBy != "author_id" {
		t.Errorf("expected mappedBy 'author_id', got %q", author.Relation.MappedBy)
	}
	if post.Relation.MappedBy != "" {
		t.Errorf("expected empty mappedBy on the foreign key side, got %q", post.Relation.MappedBy)
	}
}

func TestRegistry_OneToOneLinking(t *testing.T) {
	registry := NewRegistry()

	account, err := registry.GetOrRegister(Account{})
	if err != nil {
		t.Fatalf("GetOrRegister failed: %v", err)
	}
	profile, err := registry.Get(reflect.TypeOf(Profile{}))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !account.Relation.Owning() || account.Relation.MappedBy != "account_key" {
		t.Errorf("unexpected owning relation %+v", account.Relation)
	}
	if profile.Relation.Owning() || profile.Relation.TargetPrimaryKey != "key" {
		t.Errorf("unexpected inverse relation %+v", profile.Relation)
	}
}

func TestRegistry_InvalidRelationTarget(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(Orphaned{})
	if !errors.Is(err, runtime.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if registry.Has(reflect.TypeOf(Orphaned{})) {
		t.Error("expected failed registration to be rolled back")
	}
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	tables := make([]*schema.TableMetadata, 16)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], _ = registry.GetOrRegister(&Author{})
		}(i)
	}
	wg.Wait()

	for _, table := range tables[1:] {
		if table != tables[0] {
			t.Fatal("expected every caller to observe the same metadata")
		}
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()

	t.Run("get registered model", func(t *testing.T) {
		if err := registry.Register(User{}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		table, err := registry.Get(reflect.TypeOf(User{}))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if table.Name != "user" {
			t.Errorf("expected table name 'user', got '%s'", table.Name)
		}
	})

	t.Run("get unregistered model", func(t *testing.T) {
		_, err := registry.Get(reflect.TypeOf(Product{}))
		if err == nil {
			t.Error("expected error for unregistered model")
		}
	})

	t.Run("get with pointer type", func(t *testing.T) {
		if err := registry.Register(User{}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		table, err := registry.Get(reflect.TypeOf(&User{}))
		if err != nil {
			t.Fatalf("Get with pointer failed: %v", err)
		}

		if table.Name != "user" {
			t.Errorf("expected table name 'user', got '%s'", table.Name)
		}
	})
}

func TestRegistry_GetByName(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(User{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("get by existing name", func(t *testing.T) {
		table, err := registry.GetByName("user")
		if err != nil {
			t.Fatalf("GetByName failed: %v", err)
		}

		if table.Name != "user" {
			t.Errorf("expected table name 'user', got '%s'", table.Name)
		}
	})

	t.Run("get by non-existing name", func(t *testing.T) {
		_, err := registry.GetByName("nonexistent")
		if err == nil {
			t.Error("expected error for non-existent table")
		}
	})
}

func TestRegistry_GetOrRegister(t *testing.T) {
	registry := NewRegistry()

	t.Run("get or register unregistered model", func(t *testing.T) {
		table, err := registry.GetOrRegister(User{})
		if err != nil {
			t.Fatalf("GetOrRegister failed: %v", err)
		}

		if table.Name != "user" {
			t.Errorf("expected table name 'user', got '%s'", table.Name)
		}

		if !registry.Has(reflect.TypeOf(User{})) {
			t.Error("expected model to be registered")
		}
	})

	t.Run("get or register already registered model", func(t *testing.T) {
		if err := registry.Register(Product{}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		table1, _ := registry.GetOrRegister(Product{})
		table2, _ := registry.GetOrRegister(Product{})

		// Should return the same instance
		if table1 != table2 {
			t.Error("expected same table instance")
		}
	})
}

func TestRegistry_All(t *testing.T) {
	registry := NewRegistry()

	t.Run("empty registry", func(t *testing.T) {
		tables := registry.All()
		if len(tables) != 0 {
			t.Errorf("expected 0 tables, got %d", len(tables))
		}
	})

	t.Run("with registered models", func(t *testing.T) {
		if err := registry.Register(User{}); err != nil {
			t.Fatalf("Register User failed: %v", err)
		}
		if err := registry.Register(Product{}); err != nil {
			t.Fatalf("Register Product failed: %v", err)
		}

		tables := registry.All()
		if len(tables) != 2 {
			t.Errorf("expected 2 tables, got %d", len(tables))
		}
	})
}

func TestRegistry_AllNames(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(User{}); err != nil {
		t.Fatalf("Register User failed: %v", err)
	}
	if err := registry.Register(Product{}); err != nil {
		t.Fatalf("Register Product failed: %v", err)
	}

	names := registry.AllNames()
	if len(names) != 2 {
		t.Errorf("expected 2 table names, got %d", len(names))
	}

	// Check that both names are present
	nameMap := make(map[string]bool)
	for _, name := range names {
		nameMap[name] = true
	}

	if !nameMap["user"] {
		t.Error("expected 'user' table name")
	}

	if !nameMap["product"] {
		t.Error("expected 'product' table name")
	}
}

func TestRegistry_Clear(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(User{}); err != nil {
		t.Fatalf("Register User failed: %v", err)
	}
	if err := registry.Register(Product{}); err != nil {
		t.Fatalf("Register Product failed: %v", err)
	}

	if len(registry.All()) != 2 {
		t.Fatal("expected 2 registered models")
	}

	registry.Clear()

	if len(registry.All()) != 0 {
		t.Error("expected 0 models after clear")
	}

	if registry.Has(reflect.TypeOf(User{})) {
		t.Error("expected user model to be cleared")
	}
}

func TestRegistry_Has(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(User{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !registry.Has(reflect.TypeOf(User{})) {
		t.Error("expected Has to return true for registered model")
	}

	if registry.Has(reflect.TypeOf(Product{})) {
		t.Error("expected Has to return false for unregistered model")
	}
}

func TestRegistry_HasTable(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(User{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !registry.HasTable("user") {
		t.Error("expected HasTable to return true for registered table")
	}

	if registry.HasTable("product") {
		t.Error("expected HasTable to return false for unregistered table")
	}
}

func TestGlobalRegistry(t *testing.T) {
	// Clear global registry first
	Clear()

	t.Run("global register", func(t *testing.T) {
		err := Register(User{})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		table, err := Get(reflect.TypeOf(User{}))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if table.Name != "user" {
			t.Errorf("expected table name 'user', got '%s'", table.Name)
		}
	})

	t.Run("global get by name", func(t *testing.T) {
		table, err := GetByName("user")
		if err != nil {
			t.Fatalf("GetByName failed: %v", err)
		}

		if table.Name != "user" {
			t.Errorf("expected table name 'user', got '%s'", table.Name)
		}
	})

	t.Run("global all", func(t *testing.T) {
		tables := All()
		if len(tables) == 0 {
			t.Error("expected at least one table")
		}
	})

	// Clean up
	Clear()
}
