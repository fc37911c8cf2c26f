package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"userdesk.org/internal/auth"
	"userdesk.org/internal/migrate"
	"userdesk.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("USERDESK_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "db/migrations", "Path to SQL migrations")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or USERDESK_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|bootstrap-admin <email> <password>]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *migrationsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "bootstrap-admin":
		err = bootstrapAdmin(ctx, db, flag.Arg(1), flag.Arg(2))
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// bootstrapAdmin creates the first administrator account. The password is
// hashed here rather than shipped in a seed file, so no hash ever lands in
// the repository. Idempotent: an existing account with the email is left
// untouched.
func bootstrapAdmin(ctx context.Context, db *sql.DB, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("usage: migrate bootstrap-admin <email> <password>")
	}

	store := pg.New(db)
	tokens, err := auth.NewTokenService(&auth.TokenConfig{Secret: "bootstrap", TTL: time.Minute})
	if err != nil {
		return err
	}
	svc, err := auth.NewService(store, tokens)
	if err != nil {
		return err
	}

	if _, err := store.GetByEmail(ctx, email); err == nil {
		log.Printf("admin %s already exists", email)
		return nil
	}

	user, err := svc.CreateUser(ctx, auth.CreateUserInput{
		FullName: "Administrator",
		Email:    email,
		Password: password,
		Role:     auth.RoleAdmin,
	})
	if err != nil {
		return err
	}
	log.Printf("created admin %s (%s)", user.Email, user.ID)
	return nil
}
