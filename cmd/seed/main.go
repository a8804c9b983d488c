// seed inserts a development company with an admin and a recruiter. Run with go run ./cmd/seed after migrating.
// Idempotent: skips inserts if the dev admin (admin@vyre.dev) already exists.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	companydomain "vyre/backend/internal/company/domain"
	companyrepo "vyre/backend/internal/company/repository"
	"vyre/backend/internal/config"
	"vyre/backend/internal/db"
	"vyre/backend/internal/security"
	userdomain "vyre/backend/internal/user/domain"
	userrepo "vyre/backend/internal/user/repository"
)

const (
	devCompanyID     = "dev-company-001"
	devCompanyName   = "Vyre Dev Co"
	devAdminID       = "dev-user-001"
	devAdminEmail    = "admin@vyre.dev"
	devRecruiterID   = "dev-user-002"
	devRecruiterMail = "recruiter@vyre.dev"
	devPassword      = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	existing, err := userrepo.NewPostgresRepository(conn).GetByEmail(ctx, devAdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", devAdminEmail)
		os.Exit(0)
	}

	passwordHash, err := security.NewHasher(cfg.BcryptCost).Hash(devPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	company := companydomain.New(devCompanyID, devCompanyName, now)
	company.Industry = "Software"
	company.Size = "11-50"
	company.Location = "Remote"

	err = db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		if err := companyrepo.NewPostgresRepository(tx).Create(ctx, company); err != nil {
			return err
		}
		users := userrepo.NewPostgresRepository(tx)
		for _, u := range []*userdomain.User{
			devUser(devAdminID, devAdminEmail, "Dev", "Admin", userdomain.RoleAdmin, now),
			devUser(devRecruiterID, devRecruiterMail, "Dev", "Recruiter", userdomain.RoleRecruiter, now),
		} {
			if err := users.Create(ctx, u, passwordHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Printf("Seed complete. Log in as %s or %s with password %q.", devAdminEmail, devRecruiterMail, devPassword)
}

func devUser(id, email, first, last string, role userdomain.Role, now time.Time) *userdomain.User {
	return &userdomain.User{
		ID:          id,
		CompanyID:   devCompanyID,
		Email:       email,
		FirstName:   first,
		LastName:    last,
		Role:        role,
		Position:    "Not specified",
		Skills:      []string{},
		Preferences: userdomain.DefaultPreferences(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
