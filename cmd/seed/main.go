package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/user-accounts-service/config"
	"github.com/oksasatya/user-accounts-service/pkg/helpers"
)

type seedAddress struct {
	street, city, state, zipcode string
}

type seedUser struct {
	guid, username, first, last, email string
	addresses                          []seedAddress
}

var demoUsers = []seedUser{
	{
		guid: "1", username: "bakerBob", first: "bob", last: "baker", email: "baker@bob.com",
		addresses: []seedAddress{{"123 Main St", "Reston", "VA", "20190"}},
	},
	{
		guid: "2", username: "bobBob", first: "bob", last: "bob", email: "bob@bob.com",
		addresses: []seedAddress{{"456 Elm St", "Herndon", "VA", "20170"}},
	},
	{
		guid: "3", username: "janeDoe", first: "jane", last: "doe", email: "jane@doe.com",
		addresses: []seedAddress{
			{"789 Oak St", "Vienna", "VA", "22180"},
			{"12 Side St", "Vienna", "VA", "22181"},
		},
	},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Only seed an empty database
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		log.Fatalf("failed to count users: %v", err)
	}
	if count > 0 {
		fmt.Printf("users table already has %d rows, nothing to do\n", count)
		return
	}

	hash, err := helpers.HashPassword("password123")
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	for _, u := range demoUsers {
		var id string
		err := db.QueryRow(`
			INSERT INTO users (guid, username, first_name, last_name, email, password_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, u.guid, u.username, u.first, u.last, u.email, hash).Scan(&id)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.username, err)
		}
		for i, a := range u.addresses {
			if _, err := db.Exec(`
				INSERT INTO addresses (user_id, street, city, state, zipcode, position)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, id, a.street, a.city, a.state, a.zipcode, i); err != nil {
				log.Fatalf("failed to seed address for %s: %v", u.username, err)
			}
		}
		fmt.Printf("seeded user: guid=%s username=%s addresses=%d\n", u.guid, u.username, len(u.addresses))
	}

	// Print dev tokens so the seeded accounts are usable right away
	verifier := helpers.NewTokenVerifier(cfg.AuthTokenSecret)
	for _, u := range demoUsers {
		token, err := verifier.Sign(u.guid, []string{"user"}, 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to sign dev token: %v", err)
		}
		fmt.Printf("dev token for %s: %s\n", u.username, token)
	}
}
