package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID            string      `db:"id"`
	Name          null.String `db:"name"`
	Username      null.String `db:"username"`
	Email         null.String `db:"email"`
	Phone         null.String `db:"phone"`
	Company       null.String `db:"company"`
	IsActive      null.Bool   `db:"is_active"`
	EmailVerified bool        `db:"email_verified"`
	Roles         null.String `db:"roles"`
	PasswordHash  null.Bytes  `db:"password_hash"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
	LastLogin     null.Time   `db:"last_login"`
}

func (repo userRepository) row(usr user.User) userRow {
	return userRow{
		ID:            usr.ID,
		Name:          null.NewString(usr.Name, usr.Name != ""),
		Username:      null.NewString(usr.Username, usr.Username != ""),
		Email:         null.NewString(usr.Email, usr.Email != ""),
		Phone:         null.NewString(usr.Phone, usr.Phone != ""),
		Company:       null.NewString(usr.Company, usr.Company != ""),
		IsActive:      null.BoolFromPtr(usr.IsActive),
		EmailVerified: usr.EmailVerified,
		Roles:         null.NewString(strings.Join(usr.Roles, ","), len(usr.Roles) > 0),
		PasswordHash:  null.BytesFrom(usr.PasswordHash),
		CreatedAt:     usr.CreatedAt.UTC(),
		UpdatedAt:     usr.UpdatedAt.UTC(),
		LastLogin:     null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unrow(row userRow) user.User {
	usr := user.User{
		ID:            row.ID,
		Name:          row.Name.String,
		Username:      row.Username.String,
		Email:         row.Email.String,
		Phone:         row.Phone.String,
		Company:       row.Company.String,
		IsActive:      row.IsActive.Ptr(),
		EmailVerified: row.EmailVerified,
		PasswordHash:  row.PasswordHash.Bytes,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		LastLogin:     row.LastLogin.Time,
	}
	if row.Roles.String != "" {
		usr.Roles = strings.Split(row.Roles.String, ",")
	}
	return usr
}

func (repo userRepository) unrowSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unrow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		inQuery, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		query += inQuery
		args = append(args, inArgs...)
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.row(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, username, email, phone, company, is_active, email_verified, roles, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :phone, :company, :is_active, :email_verified, :roles, :password_hash, :created_at, :updated_at, :last_login)`,
		row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val)
		}
		// users with any role that starts with any of the provided roles
		for _, role := range filter.Roles {
			conds = append(conds, "roles LIKE ?")
			args = append(args, "%"+role+"%")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, "created_at DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var conds []string
	var args []interface{}
	if filter.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}
	if filter.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, filter.Email)
	}
	if len(filter.UsernameOrEmail) == 2 {
		conds = append(conds, "(username = ? OR email = ?)")
		args = append(args, filter.UsernameOrEmail[0], filter.UsernameOrEmail[1])
	}
	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	query := fmt.Sprintf(`SELECT * FROM "user" WHERE %s`, strings.Join(conds, " AND "))
	var row userRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	existing, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	if err != nil {
		return user.User{}, err
	}

	// only overwrite provided fields
	if usr.Name != "" {
		existing.Name = usr.Name
	}
	if usr.Username != "" {
		existing.Username = usr.Username
	}
	if usr.Email != "" {
		existing.Email = usr.Email
	}
	if usr.Phone != "" {
		existing.Phone = usr.Phone
	}
	if usr.Company != "" {
		existing.Company = usr.Company
	}
	if usr.IsActive != nil {
		existing.IsActive = usr.IsActive
	}
	if usr.EmailVerified {
		existing.EmailVerified = true
	}
	if len(usr.Roles) > 0 {
		existing.Roles = usr.Roles
	}
	if len(usr.PasswordHash) > 0 {
		existing.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		existing.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		existing.UpdatedAt = usr.UpdatedAt
	}

	row := repo.row(existing)
	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET name = :name, username = :username, email = :email, phone = :phone, company = :company,
		    is_active = :is_active, email_verified = :email_verified, roles = :roles,
		    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return existing, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		if _, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID}); err == nil {
			return repo.UpdateUser(ctx, usr)
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
