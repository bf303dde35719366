// bootstrap-admin creates the first admin account, or promotes an existing
// account to admin. Run with: go run scripts/bootstrap-admin.go -email ...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/validation"
)

type output struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	Created  bool       `json:"created"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "", "Admin email")
		username    = flag.String("username", "xscan_ops", "Admin username, used when the account is created")
		password    = flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password, used when the account is created")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "-email is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	user, created, err := ensureAdmin(ctx, repo, strings.ToLower(strings.TrimSpace(*email)), *username, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	out := output{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		Created:  created,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.UserID)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func ensureAdmin(ctx context.Context, repo *repository.Repository, email, username, password string) (*model.User, bool, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.IsAdmin() {
			return existing, false, nil
		}
		role := model.RoleAdmin
		promoted, err := repo.UpdateRoleStatus(ctx, existing.ID, &role, nil)
		if err != nil {
			return nil, false, fmt.Errorf("promote user: %w", err)
		}
		return promoted, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	username = validation.NormalizeUsername(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, false, fmt.Errorf("username: %w", err)
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, false, fmt.Errorf("password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  username,
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}
