package models

import (
	"bytes"
	"encoding/json"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser is the input for a single insert. The store assigns the ID.
type NewUser struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// Field is an optional value with an explicit presence flag. A JSON null or
// an absent key leaves Set false; any other value, including "", sets it.
type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = v
	f.Set = true
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UserPatch is a sparse update: only fields with Set == true are written.
type UserPatch struct {
	Name  Field[string] `json:"name"`
	Email Field[string] `json:"email"`
}

// Empty reports whether the patch carries no fields at all.
func (p UserPatch) Empty() bool {
	return !p.Name.Set && !p.Email.Set
}

// Apply returns u with the present fields of p written over it.
func (p UserPatch) Apply(u User) User {
	if p.Name.Set {
		u.Name = p.Name.Value
	}
	if p.Email.Set {
		u.Email = p.Email.Value
	}
	return u
}

// Page is one window of a cursor-paginated listing. NextCursor is nil on the
// last page.
type Page struct {
	Items      []User  `json:"items"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// Actor is the authenticated caller on whose behalf an operation runs.
type Actor struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}
