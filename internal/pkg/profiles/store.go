package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/app/repository"
)

const (
	profileKeyPrefix       = "profile:"
	paymentStatusKeyPrefix = "payment:status:"

	profileTTL       = 15 * time.Minute
	paymentStatusTTL = 24 * time.Hour
)

// ErrProfileNotFound marks a webhook that references a profile this platform
// does not know. Terminal: retrying cannot succeed without new data.
var ErrProfileNotFound = errors.New("profiles: profile not found")

// Store is the cached profile/credit store. Reads go through Redis with a DB
// fallback; credit adjustments hit the DB atomically and mirror the new
// balance back into the cache.
type Store struct {
	repo  repository.ProfileRepository
	redis *redis.Client
}

// NewStore creates a profile store.
func NewStore(repo repository.ProfileRepository, client *redis.Client) *Store {
	return &Store{repo: repo, redis: client}
}

// GetRecord returns the profile, preferring the cached copy.
func (s *Store) GetRecord(ctx context.Context, profileID uint) (*models.Profile, error) {
	key := profileKey(profileID)

	if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
		var profile models.Profile
		if uerr := json.Unmarshal([]byte(cached), &profile); uerr == nil {
			return &profile, nil
		}
		// Corrupt cache entry; drop it and fall through to the DB.
		_ = s.redis.Del(ctx, key).Err()
	} else if err != redis.Nil {
		log.Warnf("[ProfileStore] cache read failed for profile %d: %v", profileID, err)
	}

	profile, err := s.repo.GetByID(profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profiles: load profile %d: %w", profileID, err)
	}

	s.backfill(ctx, profile)
	return profile, nil
}

// UpdateRecord writes profile fields and invalidates the cached copy.
func (s *Store) UpdateRecord(ctx context.Context, profileID uint, fields map[string]interface{}) error {
	if err := s.repo.Update(profileID, fields); err != nil {
		return fmt.Errorf("profiles: update profile %d: %w", profileID, err)
	}
	_ = s.redis.Del(ctx, profileKey(profileID)).Err()
	return nil
}

// AdjustCredits applies an atomic balance increment and mirrors the result
// into the cache. Returns the new balance.
func (s *Store) AdjustCredits(ctx context.Context, profileID uint, delta int) (int, error) {
	balance, err := s.repo.AdjustCredits(profileID, delta)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("profiles: adjust credits for profile %d: %w", profileID, err)
	}

	// Refresh the cached record so subsequent reads see the new balance.
	if profile, rerr := s.repo.GetByID(profileID); rerr == nil {
		s.backfill(ctx, profile)
	} else {
		_ = s.redis.Del(ctx, profileKey(profileID)).Err()
	}
	return balance, nil
}

// SetPaymentStatus caches the latest reconciliation outcome for a
// (profile, payment type) pair so the bot can render payment state without a
// DB round trip.
func (s *Store) SetPaymentStatus(ctx context.Context, profileID uint, paymentType, status string) error {
	key := paymentStatusKey(profileID, paymentType)
	if err := s.redis.Set(ctx, key, status, paymentStatusTTL).Err(); err != nil {
		return fmt.Errorf("profiles: cache payment status: %w", err)
	}
	return nil
}

// GetPaymentStatus reads the cached reconciliation outcome, empty when unset.
func (s *Store) GetPaymentStatus(ctx context.Context, profileID uint, paymentType string) (string, error) {
	status, err := s.redis.Get(ctx, paymentStatusKey(profileID, paymentType)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return status, err
}

func (s *Store) backfill(ctx context.Context, profile *models.Profile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, profileKey(profile.ID), raw, profileTTL).Err(); err != nil {
		log.Warnf("[ProfileStore] cache backfill failed for profile %d: %v", profile.ID, err)
	}
}

func profileKey(profileID uint) string {
	return fmt.Sprintf("%s%d", profileKeyPrefix, profileID)
}

func paymentStatusKey(profileID uint, paymentType string) string {
	return fmt.Sprintf("%s%d:%s", paymentStatusKeyPrefix, profileID, paymentType)
}
