package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"profile_hub/internal/audit"
	"profile_hub/internal/auth"
	"profile_hub/internal/cache"
	"profile_hub/internal/observability"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserServiceInterface interface {
	Register(ctx context.Context, input *RegisterInput) (string, error)
	Create(ctx context.Context, input *RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	GetAll(ctx context.Context) ([]*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, input *UpdateInput) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query, location string) ([]*User, error)
	AddScore(ctx context.Context, id string, score float64) (*User, error)
	SetSkillLevel(ctx context.Context, id, skillName string, level int) ([]Skill, error)
	DeleteAll(ctx context.Context, actorID string) (int64, error)
	IsAdmin(ctx context.Context, id string) (bool, error)
}

type UserService struct {
	repo       UserRepositoryInterface
	cache      *cache.UserCache
	audit      audit.PublisherInterface
	jwtSecret  string
	bcryptCost int
}

func NewUserService(repo UserRepositoryInterface, redisClient *redis.Client, publisher audit.PublisherInterface, jwtSecret string, bcryptCost int) UserServiceInterface {
	s := &UserService{
		repo:       repo,
		audit:      publisher,
		jwtSecret:  jwtSecret,
		bcryptCost: bcryptCost,
	}
	if redisClient != nil {
		s.cache = cache.NewUserCache(redisClient)
	}
	return s
}

// Register creates a new account with a hashed password. Email uniqueness
// is checked up front and again enforced by the unique index on insert.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (string, error) {
	return s.createUser(ctx, input, audit.ActionRegistered)
}

// Create is the direct-create path. It runs through the same validation and
// hashing as Register; raw documents are never persisted.
func (s *UserService) Create(ctx context.Context, input *RegisterInput) (string, error) {
	return s.createUser(ctx, input, audit.ActionCreated)
}

func (s *UserService) createUser(ctx context.Context, input *RegisterInput, action string) (string, error) {
	existing, err := s.repo.GetByEmail(ctx, input.Email, false)
	if err == nil && existing != nil {
		return "", ErrEmailTaken
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	hashedPassword, err := auth.GeneratePasswordHash(input.Password, s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Email:      input.Email,
		Password:   hashedPassword,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Location:   input.Location,
		Attributes: input.Attributes,
		Role:       RoleUser,
	}

	oid, err := s.repo.Create(ctx, u)
	if err != nil {
		return "", err
	}

	id := oid.Hex()
	s.publishAudit(&audit.Event{Action: action, UserID: id, ActorID: id})
	return id, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password both surface as ErrInvalidCredentials so callers cannot tell
// which field was wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := auth.ComparePasswordHash([]byte(u.Password), password); err != nil {
		return "", ErrInvalidCredentials
	}

	return auth.GenerateToken(u.ID.Hex(), s.jwtSecret)
}

func (s *UserService) GetAll(ctx context.Context) ([]*User, error) {
	return s.repo.GetAll(ctx)
}

// GetByID resolves one user, read-through cached.
func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if data, err := s.cache.Get(cctx, cache.UserKey(id)); err == nil && data != nil {
			u := &User{}
			if json.Unmarshal(data, u) == nil {
				observability.GlobalMetrics.CacheHitsTotal.WithLabelValues("user").Inc()
				logrus.Debug("cache hit for user ", id)
				return u, nil
			}
		}
		observability.GlobalMetrics.CacheMissesTotal.WithLabelValues("user").Inc()
	}

	u, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := s.cache.Set(cctx, cache.UserKey(id), u); err != nil {
			logrus.WithError(err).Warn("Failed to set cache for user")
		}
	}

	return u, nil
}

func (s *UserService) Search(ctx context.Context, query, location string) ([]*User, error) {
	return s.repo.Search(ctx, query, location)
}

// Update replaces the profile fields of a user. A non-empty password is
// re-hashed before persisting; an empty one leaves the stored hash alone.
func (s *UserService) Update(ctx context.Context, input *UpdateInput) error {
	oid, err := parseID(input.ID)
	if err != nil {
		return err
	}

	fields := bson.M{
		"firstName":  input.FirstName,
		"lastName":   input.LastName,
		"location":   input.Location,
		"attributes": input.Attributes,
	}
	if input.Password != "" {
		hashedPassword, err := auth.GeneratePasswordHash(input.Password, s.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password"] = hashedPassword
	}

	if err := s.repo.Update(ctx, oid, fields); err != nil {
		return err
	}

	s.invalidate(ctx, input.ID)
	s.publishAudit(&audit.Event{Action: audit.ActionUpdated, UserID: input.ID, ActorID: input.ID})
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.publishAudit(&audit.Event{Action: audit.ActionDeleted, UserID: id, ActorID: id})
	return nil
}

// AddScore appends a score and recomputes the ranking as the rounded mean
// of all scores. Read-modify-write: concurrent appends to the same user can
// lose updates, there is no optimistic locking on the document.
func (s *UserService) AddScore(ctx context.Context, id string, score float64) (*User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	u.Scores = append(u.Scores, score)
	u.Ranking = calculateRanking(u.Scores)

	if err := s.repo.SetScores(ctx, oid, u.Scores, u.Ranking); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publishAudit(&audit.Event{
		Action:  audit.ActionScoreAdded,
		UserID:  id,
		ActorID: id,
		Detail:  fmt.Sprintf("score=%g ranking=%d", score, u.Ranking),
	})
	return u, nil
}

// SetSkillLevel updates the named skill's level in place, or appends a new
// entry when the user has no skill with that name.
func (s *UserService) SetSkillLevel(ctx context.Context, id, skillName string, level int) ([]Skill, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range u.Skills {
		if u.Skills[i].Name == skillName {
			u.Skills[i].Level = level
			found = true
			break
		}
	}
	if !found {
		u.Skills = append(u.Skills, Skill{Name: skillName, Level: level})
	}

	if err := s.repo.SetSkills(ctx, oid, u.Skills); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publishAudit(&audit.Event{
		Action:  audit.ActionSkillUpdated,
		UserID:  id,
		ActorID: id,
		Detail:  fmt.Sprintf("skill=%s level=%d", skillName, level),
	})
	return u.Skills, nil
}

// DeleteAll removes every user document. Callers gate this behind the
// admin role check.
func (s *UserService) DeleteAll(ctx context.Context, actorID string) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	s.publishAudit(&audit.Event{
		Action:  audit.ActionPurged,
		ActorID: actorID,
		Detail:  fmt.Sprintf("deleted=%d", deleted),
	})
	return deleted, nil
}

func (s *UserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == RoleAdmin, nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.cache.Invalidate(cctx, cache.UserKey(id)); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate user cache")
	}
}

func (s *UserService) publishAudit(e *audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Publish(e); err != nil {
		logrus.WithError(err).WithField("action", e.Action).Warn("Failed to publish audit event")
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func calculateRanking(scores []float64) int {
	if len(scores) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range scores {
		total += s
	}
	return int(math.Round(total / float64(len(scores))))
}
