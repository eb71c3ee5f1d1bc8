package repository

import (
	"context"
	"strings"

	"github.com/linkupcampus/linkup/internal/airtable"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/pkg/errors"
)

// UserRepository stores accounts in the Users table.
type UserRepository struct {
	client Client
	table  string
}

func NewUserRepository(client Client, table string) *UserRepository {
	return &UserRepository{client: client, table: table}
}

// FindByEmail looks a user up by email, ignoring case. It returns a
// NotFound error when no row matches.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	recs, err := r.client.List(ctx, r.table, airtable.ListOptions{
		FilterByFormula: airtable.FieldEqualsFold(domain.FieldUserEmail, email),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, mapErr(err, "users table")
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound("user not found")
	}
	return toUser(recs[0])
}

// Create inserts a user. The password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	rec, err := r.client.Create(ctx, r.table, map[string]interface{}{
		domain.FieldUserName:         u.Name,
		domain.FieldUserEmail:        strings.TrimSpace(u.Email),
		domain.FieldUserPassword:     u.Password,
		domain.FieldUserType:         string(u.UserType),
		domain.FieldUserIntent:       u.Intent,
		domain.FieldUserBio:          u.Bio,
		domain.FieldUserProfileImage: u.ProfileImage,
	})
	if err != nil {
		return nil, mapErr(err, "users table")
	}
	return toUser(*rec)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.client.Update(ctx, r.table, id, map[string]interface{}{
		domain.FieldUserPassword: hash,
	})
	return mapErr(err, "user")
}

func (r *UserRepository) Probe(ctx context.Context) error {
	_, err := r.client.List(ctx, r.table, airtable.ListOptions{
		PageSize:   1,
		MaxRecords: 1,
		Fields:     []string{domain.FieldUserEmail},
	})
	return mapErr(err, "users table")
}

func toUser(rec airtable.Record) (*domain.User, error) {
	u := &domain.User{}
	if err := decodeFields(rec.Fields, u); err != nil {
		return nil, domain.ErrDependency(errors.Wrapf(err, "decode user %s", rec.ID), "malformed user record")
	}
	u.ID = rec.ID
	u.CreatedTime = rec.Created()
	if t, err := domain.ParseUserType(string(u.UserType)); err == nil {
		u.UserType = t
	}
	return u, nil
}
