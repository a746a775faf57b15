package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO user_profiles (user_id, name, email, avatar_url)
              VALUES ($1, $2, $3, $4) RETURNING user_id, name, email, avatar_url, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, u.UserID, u.Name, u.Email, u.AvatarURL).
		Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT user_id, name, email, avatar_url, stripe_customer_id, created_at, updated_at
               FROM user_profiles WHERE user_id = $1`
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	const q = `SELECT user_id, name, email, avatar_url, stripe_customer_id, created_at, updated_at
               FROM user_profiles WHERE stripe_customer_id = $1`
	var u model.User
	err := r.pool.QueryRow(ctx, q, customerID).
		Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user by stripe customer %s: %w", customerID, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `UPDATE user_profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, q, userID, customerID)
	if err != nil {
		return fmt.Errorf("store stripe customer id for user %s: %w", userID, err)
	}
	return nil
}
