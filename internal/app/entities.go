// Package app holds the entities served by modspace and their repositories.
package app

import (
	"github.com/marshallshelly/modspace/pkg/collection"
)

// User is a plain entity without relations.
type User struct {
	ID    int    `po:"id,primaryKey,autoIncrement" json:"id"`
	Name  string `po:"name" json:"name"`
	Email string `po:"email" json:"email"`
}

func (User) TableName() string { return "users" }

// Catalog owns many books. Removing a catalog removes its books.
type Catalog struct {
	ID          int                           `po:"id,primaryKey,autoIncrement" json:"id"`
	CatalogName string                        `po:"catalog_name" json:"catalogName"`
	Books       *collection.Collection[*Book] `po:"-,oneToMany,orphanRemoval" json:"books,omitempty"`
}

func (Catalog) TableName() string { return "catalog" }

// AddBook appends book to the catalog and points it back at c.
func (c *Catalog) AddBook(book *Book) {
	if c.Books == nil {
		c.Books = collection.New[*Book]()
	}
	if !c.Books.Contains(book) {
		c.Books.Append(book)
		book.Catalog = c
	}
}

// RemoveBook detaches book from the catalog.
func (c *Catalog) RemoveBook(book *Book) {
	if c.Books == nil || !c.Books.Contains(book) {
		return
	}
	c.Books.Remove(book)
	if book.Catalog == c {
		book.Catalog = nil
	}
}

// Book belongs to one catalog through catalog_id.
type Book struct {
	ID      int      `po:"id,primaryKey,autoIncrement" json:"id"`
	Title   string   `po:"title" json:"title"`
	Catalog *Catalog `po:"-,manyToOne,foreignKey(catalog_id)" json:"catalog,omitempty"`
}

func (Book) TableName() string { return "book" }

// Students is the owning side of the one-to-one link with ContactInfo.
type Students struct {
	ID          int          `po:"id,primaryKey,autoIncrement" json:"id"`
	Name        string       `po:"name" json:"name"`
	ContactInfo *ContactInfo `po:"-,oneToOne" json:"contactInfo,omitempty"`
}

func (Students) TableName() string { return "students" }

// ContactInfo holds the student_id column of the one-to-one link.
type ContactInfo struct {
	ID      int       `po:"id,primaryKey,autoIncrement" json:"id"`
	City    string    `po:"city" json:"city"`
	Phone   string    `po:"phone" json:"phone"`
	Student *Students `po:"-,oneToOne,foreignKey(student_id)" json:"student,omitempty"`
}

func (ContactInfo) TableName() string { return "contact_info" }
