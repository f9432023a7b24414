package service

import (
	"bitwise74/capture-api/internal/model"
	"bitwise74/capture-api/pkg/security"
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Demo account created by SeedDemoUser. Development only
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "userpass"
)

// SeedDemoUser makes sure the demo account exists and returns it. Running it
// again leaves the existing row untouched, password included
func SeedDemoUser(ctx context.Context, db *gorm.DB, a *security.ArgonHash) (*model.User, error) {
	hash, err := a.Hash(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password, %w", err)
	}

	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(&model.User{
			ID:           uuid.NewString(),
			Email:        DemoEmail,
			PasswordHash: hash,
		}).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert demo user, %w", err)
	}

	var user model.User
	if err := db.WithContext(ctx).Where("email = ?", DemoEmail).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch demo user, %w", err)
	}

	return &user, nil
}
