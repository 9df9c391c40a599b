// Package storage implements the PostgreSQL repositories behind the
// conversation and favorability services.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/easeaico/project-aiko/internal/conversation"
	"github.com/easeaico/project-aiko/internal/favorability"
)

// Store holds the DB pool and repositories.
type Store struct {
	db            *gorm.DB
	Users         *UserRepo
	Characters    *CharacterRepo
	Conversations conversation.ConversationRepo
	Messages      conversation.MessageRepo
	Favorability  favorability.Repo
}

// NewStore initializes the PostgreSQL pool and repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:            db,
		Users:         NewUserRepo(db),
		Characters:    NewCharacterRepo(db),
		Conversations: NewConversationRepo(db),
		Messages:      NewMessageRepo(db),
		Favorability:  NewFavorabilityRepo(db),
	}
	return store, nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
