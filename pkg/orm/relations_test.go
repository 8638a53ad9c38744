package orm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marshallshelly/modspace/pkg/collection"
	"github.com/marshallshelly/modspace/pkg/runtime"
	"github.com/marshallshelly/modspace/pkg/schema"
)

func TestRelation_LinkedMetadata(t *testing.T) {
	em, _ := newMockManager(t, runtime.Postgres)

	book, err := em.Registry().GetOrRegister(&Book{})
	require.NoError(t, err)
	catalog, err := em.Registry().Get(book.Relation.TargetType)
	require.NoError(t, err)

	assert.Equal(t, schema.ManyToOne, book.RelationType())
	assert.Equal(t, "catalog_id", book.Relation.ForeignKey)
	assert.Equal(t, "id", book.Relation.TargetPrimaryKey)
	assert.Equal(t, schema.OneToMany, catalog.RelationType())
	assert.Equal(t, "catalog_id", catalog.Relation.MappedBy)

	student, err := em.Registry().GetOrRegister(&Student{})
	require.NoError(t, err)
	assert.True(t, student.Relation.Owning())
	assert.Equal(t, "student_id", student.Relation.MappedBy)
}

func TestOneToOne_PersistIntegrity(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate link rejected", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT COUNT(*) FROM contact_info WHERE student_id = $1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

		err := em.Persist(ctx, &ContactInfo{Email: "a@example.com", Student: &Student{ID: 1}})
		assert.ErrorIs(t, err, runtime.ErrRelationIntegrity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first link inserted with foreign key", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT COUNT(*) FROM contact_info WHERE student_id = $1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectQuery("INSERT INTO contact_info (email, student_id) VALUES ($1, $2) RETURNING id").
			WithArgs("a@example.com", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

		ci := &ContactInfo{Email: "a@example.com", Student: &Student{ID: 1}}
		require.NoError(t, em.Persist(ctx, ci))
		assert.Equal(t, 4, ci.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("save excludes own row", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT COUNT(*) FROM contact_info WHERE student_id = $1 AND id != $2").
			WithArgs(1, 4).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectExec("UPDATE contact_info SET email = $1, student_id = $2 WHERE id = $3").
			WithArgs("b@example.com", 1, 4).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, em.Save(ctx, &ContactInfo{ID: 4, Email: "b@example.com", Student: &Student{ID: 1}}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil student", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)

		err := em.Persist(ctx, &ContactInfo{Email: "a@example.com"})
		assert.ErrorIs(t, err, runtime.ErrNilRelation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsaved student", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)

		err := em.Persist(ctx, &ContactInfo{Email: "a@example.com", Student: &Student{Name: "new"}})
		assert.ErrorIs(t, err, runtime.ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owning side adds nothing", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("INSERT INTO students (name) VALUES ($1) RETURNING id").
			WithArgs("Lin").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		require.NoError(t, em.Persist(ctx, &Student{Name: "Lin"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestManyToOne_Persist(t *testing.T) {
	ctx := context.Background()

	t.Run("injects foreign key", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("INSERT INTO book (title, catalog_id) VALUES ($1, $2) RETURNING id").
			WithArgs("Dune", 3).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

		b := &Book{Title: "Dune", Catalog: &Catalog{ID: 3}}
		require.NoError(t, em.Persist(ctx, b))
		assert.Equal(t, 11, b.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil catalog", func(t *testing.T) {
		em, _ := newMockManager(t, runtime.Postgres)

		assert.ErrorIs(t, em.Persist(ctx, &Book{Title: "Dune"}), runtime.ErrNilRelation)
	})
}

func TestRelation_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("many to one", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM book WHERE id = $1").
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "catalog_id"}).AddRow(int64(10), "Dune", int64(3)))
		mock.ExpectQuery("SELECT t.* FROM catalog t INNER JOIN book o ON o.catalog_id = t.id WHERE o.catalog_id = $1 LIMIT 1").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "catalog_name"}).AddRow(int64(3), "Sci-Fi"))

		repo, err := GetRepository[Book](em)
		require.NoError(t, err)
		b, err := repo.Find(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, b)
		require.NotNil(t, b.Catalog)
		assert.Equal(t, 3, b.Catalog.ID)
		assert.Equal(t, "Sci-Fi", b.Catalog.CatalogName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("many to one with null key", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM book").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "catalog_id"}).
				AddRow(int64(1), "Loose", nil).
				AddRow(int64(2), "Bound", int64(5)))
		mock.ExpectQuery("SELECT t.* FROM catalog t INNER JOIN book o ON o.catalog_id = t.id WHERE o.catalog_id = $1 LIMIT 1").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "catalog_name"}).AddRow(int64(5), "Poetry"))

		repo, err := GetRepository[Book](em)
		require.NoError(t, err)
		books, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Nil(t, books[0].Catalog)
		require.NotNil(t, books[1].Catalog)
		assert.Equal(t, "Poetry", books[1].Catalog.CatalogName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one to many", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM catalog WHERE id = $1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "catalog_name"}).AddRow(int64(1), "Sci-Fi"))
		mock.ExpectQuery("SELECT t.* FROM book t INNER JOIN catalog o ON t.catalog_id = o.id WHERE o.id = $1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "catalog_id"}).
				AddRow(int64(10), "Dune", int64(1)).
				AddRow(int64(11), "Solaris", int64(1)))

		repo, err := GetRepository[Catalog](em)
		require.NoError(t, err)
		c, err := repo.Find(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, c)
		require.NotNil(t, c.Books)
		assert.Equal(t, 2, c.Books.Len())
		titles := make([]string, 0, 2)
		for _, b := range c.Books.All() {
			titles = append(titles, b.Title)
		}
		assert.Equal(t, []string{"Dune", "Solaris"}, titles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one to one owning side", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM students WHERE id = $1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Lin"))
		mock.ExpectQuery("SELECT t.* FROM contact_info t INNER JOIN students o ON t.student_id = o.id WHERE o.id = $1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "student_id"}).AddRow(int64(4), "lin@example.com", int64(1)))

		repo, err := GetRepository[Student](em)
		require.NoError(t, err)
		s, err := repo.Find(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, s.ContactInfo)
		assert.Equal(t, "lin@example.com", s.ContactInfo.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one to one inverse side", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM contact_info WHERE id = $1").
			WithArgs(4).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "student_id"}).AddRow(int64(4), "lin@example.com", int64(1)))
		mock.ExpectQuery("SELECT t.* FROM students t INNER JOIN contact_info o ON t.id = o.student_id WHERE o.id = $1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Lin"))

		repo, err := GetRepository[ContactInfo](em)
		require.NoError(t, err)
		ci, err := repo.Find(ctx, 4)
		require.NoError(t, err)
		require.NotNil(t, ci.Student)
		assert.Equal(t, "Lin", ci.Student.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one to one without a row", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM students WHERE id = $1").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Kai"))
		mock.ExpectQuery("SELECT t.* FROM contact_info t INNER JOIN students o ON t.student_id = o.id WHERE o.id = $1").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "student_id"}))

		repo, err := GetRepository[Student](em)
		require.NoError(t, err)
		s, err := repo.Find(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, s.ContactInfo)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// expectOrphanDeletes queues the child deletes of catalog 1 holding books
// 10 and 11. failFirst makes the first delete fail.
func expectOrphanDeletes(mock sqlmock.Sqlmock, failFirst bool) {
	first := mock.ExpectExec("DELETE FROM book WHERE id = $1 AND catalog_id = $2").WithArgs(10, 1)
	if failFirst {
		first.WillReturnError(errBoom)
	} else {
		first.WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func orphanedCatalog() *Catalog {
	return &Catalog{ID: 1, Books: collection.New(&Book{ID: 10}, &Book{ID: 11})}
}

func TestOneToMany_OrphanRemoval(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes children then parent", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		expectOrphanDeletes(mock, false)
		mock.ExpectExec("DELETE FROM book WHERE id = $1 AND catalog_id = $2").WithArgs(11, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM catalog WHERE id = $1").WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, em.Remove(ctx, orphanedCatalog()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("queries children when none attached", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		mock.ExpectQuery("SELECT * FROM book WHERE catalog_id = $1").WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "catalog_id"}).AddRow(int64(10), "Dune", int64(1)))
		mock.ExpectExec("DELETE FROM book WHERE id = $1 AND catalog_id = $2").WithArgs(10, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM catalog WHERE id = $1").WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, em.Remove(ctx, &Catalog{ID: 1}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stop on error", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres)
		expectOrphanDeletes(mock, true)

		err := em.Remove(ctx, orphanedCatalog())
		assert.ErrorIs(t, err, errBoom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("collect errors", func(t *testing.T) {
		em, mock := newMockManager(t, runtime.Postgres, WithOrphanPolicy(OrphanCollectErrors))
		expectOrphanDeletes(mock, true)
		mock.ExpectExec("DELETE FROM book WHERE id = $1 AND catalog_id = $2").WithArgs(11, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := em.Remove(ctx, orphanedCatalog())
		assert.ErrorIs(t, err, errBoom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("best effort", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		em, mock := newMockManager(t, runtime.Postgres,
			WithOrphanPolicy(OrphanBestEffort), WithLogger(zap.New(core)))
		expectOrphanDeletes(mock, true)
		mock.ExpectExec("DELETE FROM book WHERE id = $1 AND catalog_id = $2").WithArgs(11, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM catalog WHERE id = $1").WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, em.Remove(ctx, orphanedCatalog()))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 1, logs.FilterMessage("orphan removal failed").Len())
	})
}

func TestParseOrphanPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want OrphanPolicy
	}{
		{"", OrphanStopOnError},
		{"stop", OrphanStopOnError},
		{"collect", OrphanCollectErrors},
		{"Best-Effort", OrphanBestEffort},
	}
	for _, tt := range tests {
		got, err := ParseOrphanPolicy(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.NotEmpty(t, got.String())
	}

	_, err := ParseOrphanPolicy("sometimes")
	assert.ErrorIs(t, err, runtime.ErrInvalidArgument)
}
