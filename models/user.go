package models

// User represents a row of the `users` table.
// ID is assigned by the database on insert and never changes afterwards.
type User struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// UserPayload is the request body accepted by create and update.
// Both fields are pointers so a missing or null key can be told apart from an empty string.
// An "id" key in the body is ignored.
type UserPayload struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Complete reports whether both name and email were supplied.
func (p UserPayload) Complete() bool {
	return p.Name != nil && p.Email != nil
}
