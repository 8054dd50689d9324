package service

import (
	"context"
	"testing"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

func TestExpiredRefreshTokensAreSwept(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &model.User{Username: "ana.lima", Email: "ana.lima@example.com", Password: string(hash), Role: model.RoleAdmin}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	expired := &model.RefreshToken{UserID: user.ID, Token: "expired-token", ExpiresAt: time.Now().Add(-time.Minute)}
	live := &model.RefreshToken{UserID: user.ID, Token: "live-token", ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.Create(expired).Error; err != nil {
		t.Fatalf("create expired token: %v", err)
	}
	if err := db.Create(live).Error; err != nil {
		t.Fatalf("create live token: %v", err)
	}

	if err := repo.DeleteExpiredRefreshTokens(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var remaining []model.RefreshToken
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Token != "live-token" {
		t.Fatalf("sweep must keep only unexpired tokens, got %+v", remaining)
	}
}
