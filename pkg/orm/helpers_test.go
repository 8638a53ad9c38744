package orm

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/marshallshelly/modspace/pkg/collection"
	"github.com/marshallshelly/modspace/pkg/registry"
	"github.com/marshallshelly/modspace/pkg/runtime"
)

type Member struct {
	ID    int    `po:"id,primaryKey,autoIncrement" json:"id"`
	Name  string `po:"name" json:"name"`
	Email string `po:"email" json:"email"`
}

func (Member) TableName() string { return "members" }

type Catalog struct {
	ID          int                           `po:"id,primaryKey,autoIncrement"`
	CatalogName string                        `po:"catalog_name"`
	Books       *collection.Collection[*Book] `po:"-,oneToMany,orphanRemoval"`
}

func (Catalog) TableName() string { return "catalog" }

type Book struct {
	ID      int      `po:"id,primaryKey,autoIncrement"`
	Title   string   `po:"title"`
	Catalog *Catalog `po:"-,manyToOne,foreignKey(catalog_id)"`
}

func (Book) TableName() string { return "book" }

type Student struct {
	ID          int          `po:"id,primaryKey,autoIncrement"`
	Name        string       `po:"name"`
	ContactInfo *ContactInfo `po:"-,oneToOne"`
}

func (Student) TableName() string { return "students" }

type ContactInfo struct {
	ID      int      `po:"id,primaryKey,autoIncrement"`
	Email   string   `po:"email"`
	Student *Student `po:"-,oneToOne,foreignKey(student_id)"`
}

func (ContactInfo) TableName() string { return "contact_info" }

type Shelf struct {
	ID    int     `po:"id,primaryKey,autoIncrement"`
	Label string  `po:"label"`
	Books []*Book `po:"-,manyToMany,mappedBy(shelf_id)"`
}

func (Shelf) TableName() string { return "shelf" }

const testSchema = `
CREATE TABLE members (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT NOT NULL);
CREATE TABLE catalog (id INTEGER PRIMARY KEY AUTOINCREMENT, catalog_name TEXT NOT NULL);
CREATE TABLE book (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL, catalog_id INTEGER, shelf_id INTEGER);
CREATE TABLE students (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);
CREATE TABLE contact_info (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL, student_id INTEGER);
CREATE TABLE shelf (id INTEGER PRIMARY KEY AUTOINCREMENT, label TEXT NOT NULL);
`

// newMockManager returns an EntityManager on a sqlmock connection that
// matches SQL text exactly.
func newMockManager(t *testing.T, dialect runtime.Dialect, opts ...Option) (*EntityManager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rdb := runtime.NewDB(db, dialect, runtime.WithLogger(zaptest.NewLogger(t)))
	opts = append([]Option{WithRegistry(registry.NewRegistry())}, opts...)
	return NewEntityManager(rdb, opts...), mock
}

// newSQLiteManager returns an EntityManager on a fresh in-memory database
// with the test tables created.
func newSQLiteManager(t *testing.T, opts ...Option) *EntityManager {
	t.Helper()

	rdb, err := runtime.Open(runtime.DriverSQLite, ":memory:", runtime.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	for _, stmt := range strings.Split(testSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err = rdb.SQL().ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}

	opts = append([]Option{WithRegistry(registry.NewRegistry())}, opts...)
	return NewEntityManager(rdb, opts...)
}
