// Package users implements account creation and the email/password token
// flows: register, login, and refresh-token rotation.
package users

import "context"

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
