package db

import (
	"database/sql"
	"fmt"
	"log"

	"duetfm/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a raw database/sql connection. It coexists with the
// GORM connection: repositories use GORM, windowed aggregate reads go
// through this handle.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createProfilesTable(); err != nil {
		return err
	}
	if err := createSongsTable(); err != nil {
		return err
	}
	if err := createPlaysTable(); err != nil {
		return err
	}
	if err := createFavoritesTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func createProfilesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		display_name VARCHAR(100) NOT NULL,
		avatar_url VARCHAR(767),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_profile_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT uq_profile_user UNIQUE (user_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create profiles table: %w", err)
	}
	return nil
}

func createSongsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		audio_url VARCHAR(767) NOT NULL,
		cover_url VARCHAR(767),
		uploaded_by BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_song_uploader FOREIGN KEY (uploaded_by) REFERENCES profiles(id) ON DELETE CASCADE,
		INDEX idx_songs_uploaded_by (uploaded_by)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	return nil
}

func createPlaysTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS plays (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		song_id BIGINT NOT NULL,
		played_by BIGINT NOT NULL,
		played_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_play_song FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
		CONSTRAINT fk_play_profile FOREIGN KEY (played_by) REFERENCES profiles(id) ON DELETE CASCADE,
		INDEX idx_plays_played_at (played_at),
		INDEX idx_plays_song (song_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create plays table: %w", err)
	}
	return nil
}

func createFavoritesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS favorites (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		song_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_fav_song FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
		CONSTRAINT fk_fav_profile FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE,
		CONSTRAINT uq_song_user UNIQUE (song_id, user_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create favorites table: %w", err)
	}
	return nil
}
