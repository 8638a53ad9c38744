package app

import (
	"context"
	"fmt"

	"github.com/marshallshelly/modspace/pkg/orm"
)

// UserRepository adds lookups by email to the generic repository.
type UserRepository struct {
	*orm.EntityRepository[User]
}

// FindByEmail returns the user with the given email, or nil.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	users, err := r.FindBy(ctx, "email", email)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

// BookRepository adds lookups by catalog to the generic repository.
type BookRepository struct {
	*orm.EntityRepository[Book]
}

// FindByCatalog returns the books of a catalog.
func (r *BookRepository) FindByCatalog(ctx context.Context, catalogID int) ([]*Book, error) {
	return r.FindBy(ctx, "catalog_id", catalogID)
}

// Register binds the custom repositories to em.
func Register(em *orm.EntityManager) error {
	for _, model := range []any{&User{}, &Catalog{}, &Book{}, &Students{}, &ContactInfo{}} {
		if err := em.Registry().Register(model); err != nil {
			return fmt.Errorf("register %T: %w", model, err)
		}
	}

	orm.RegisterRepository[User](em, "UserRepository", func(base *orm.EntityRepository[User]) orm.Repository[User] {
		return &UserRepository{EntityRepository: base}
	})
	orm.RegisterRepository[Book](em, "BookRepository", func(base *orm.EntityRepository[Book]) orm.Repository[Book] {
		return &BookRepository{EntityRepository: base}
	})
	return nil
}

// Users returns the UserRepository of em. Register must have been called.
func Users(em *orm.EntityManager) (*UserRepository, error) {
	repo, err := orm.GetRepository[User](em)
	if err != nil {
		return nil, err
	}
	users, ok := repo.(*UserRepository)
	if !ok {
		return nil, fmt.Errorf("user repository not registered")
	}
	return users, nil
}

// Books returns the BookRepository of em. Register must have been called.
func Books(em *orm.EntityManager) (*BookRepository, error) {
	repo, err := orm.GetRepository[Book](em)
	if err != nil {
		return nil, err
	}
	books, ok := repo.(*BookRepository)
	if !ok {
		return nil, fmt.Errorf("book repository not registered")
	}
	return books, nil
}
