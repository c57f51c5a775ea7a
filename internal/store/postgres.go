package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/keepmind9/slackbridge/internal/slack"
	"github.com/sirupsen/logrus"
)

//go:embed migrations.sql
var migrations embed.FS

// PostgresStore persists user records in a Postgres table with JSONB
// columns for the platform profile and locally-added fields.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection with the given DSN, verifies it and
// applies the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// Get returns the stored record for the given user ID. Database failures
// are logged and reported as a miss so the caller falls back to a fresh
// platform fetch.
func (s *PostgresStore) Get(userID string) (*slack.User, bool) {
	query := `
		SELECT id, name, real_name, email_address, is_bot, profile, extra
		FROM slack_users
		WHERE id = $1`

	var u slack.User
	var profileJSON, extraJSON []byte
	err := s.db.QueryRow(query, userID).Scan(
		&u.ID, &u.Name, &u.RealName, &u.EmailAddress, &u.IsBot, &profileJSON, &extraJSON,
	)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("user-store-read-failed")
		return nil, false
	}

	if err := json.Unmarshal(profileJSON, &u.Profile); err != nil {
		logger.WithField("user_id", userID).Error("user-profile-decode-failed")
	}
	if err := json.Unmarshal(extraJSON, &u.Extra); err != nil {
		logger.WithField("user_id", userID).Error("user-extra-decode-failed")
	}
	return &u, true
}

// Set stores the given record, replacing any previous one
func (s *PostgresStore) Set(user *slack.User) error {
	profileJSON, err := json.Marshal(user.Profile)
	if err != nil {
		return fmt.Errorf("error encoding user profile: %w", err)
	}
	extraJSON, err := json.Marshal(user.Extra)
	if err != nil {
		return fmt.Errorf("error encoding user extra fields: %w", err)
	}

	query := `
		INSERT INTO slack_users (id, name, real_name, email_address, is_bot, profile, extra, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			real_name = EXCLUDED.real_name,
			email_address = EXCLUDED.email_address,
			is_bot = EXCLUDED.is_bot,
			profile = EXCLUDED.profile,
			extra = EXCLUDED.extra,
			updated_at = NOW()`

	if _, err := s.db.Exec(query, user.ID, user.Name, user.RealName, user.EmailAddress, user.IsBot, profileJSON, extraJSON); err != nil {
		return fmt.Errorf("error storing user %s: %w", user.ID, err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
