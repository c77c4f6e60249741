package user

import (
	"context"
	"testing"

	"profile_hub/internal/audit"
	"profile_hub/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of UserRepositoryInterface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *User) (primitive.ObjectID, error) {
	args := m.Called(u)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string, includePassword bool) (*User, error) {
	args := m.Called(email, includePassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	args := m.Called(id, fields)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, query, location string) ([]*User, error) {
	args := m.Called(query, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*User), args.Error(1)
}

func (m *MockUserRepository) SetScores(ctx context.Context, id primitive.ObjectID, scores []float64, ranking int) error {
	args := m.Called(id, scores, ranking)
	return args.Error(0)
}

func (m *MockUserRepository) SetSkills(ctx context.Context, id primitive.ObjectID, skills []Skill) error {
	args := m.Called(id, skills)
	return args.Error(0)
}

func (m *MockUserRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher is a mock implementation of audit.PublisherInterface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(e *audit.Event) error {
	args := m.Called(e)
	return args.Error(0)
}

const testJWTSecret = "service-test-secret"

func newTestService(repo UserRepositoryInterface, publisher audit.PublisherInterface) UserServiceInterface {
	// MinCost keeps bcrypt fast in tests; no Redis in unit tests
	return NewUserService(repo, nil, publisher, testJWTSecret, bcrypt.MinCost)
}

func TestServiceRegister_HashesPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockPublisher)
	service := newTestService(mockRepo, mockPublisher)

	newID := primitive.NewObjectID()

	mockRepo.On("GetByEmail", "ada@example.com", false).Return(nil, ErrNotFound)
	mockRepo.On("Create", mock.AnythingOfType("*user.User")).Return(newID, nil)
	mockPublisher.On("Publish", mock.MatchedBy(func(e *audit.Event) bool {
		return e.Action == audit.ActionRegistered && e.UserID == newID.Hex()
	})).Return(nil)

	id, err := service.Register(context.Background(), &RegisterInput{
		Email:     "ada@example.com",
		Password:  "longenough",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})

	require.NoError(t, err)
	assert.Equal(t, newID.Hex(), id)

	created := mockRepo.Calls[1].Arguments.Get(0).(*User)
	assert.NotEqual(t, "longenough", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("longenough")))
	assert.Equal(t, RoleUser, created.Role)

	mockRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestServiceRegister_DuplicateEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockPublisher)
	service := newTestService(mockRepo, mockPublisher)

	existing := &User{ID: primitive.NewObjectID(), Email: "ada@example.com"}
	mockRepo.On("GetByEmail", "ada@example.com", false).Return(existing, nil)

	id, err := service.Register(context.Background(), &RegisterInput{
		Email:     "ada@example.com",
		Password:  "longenough",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Empty(t, id)

	// User count unchanged
	mockRepo.AssertNotCalled(t, "Create")
	mockPublisher.AssertNotCalled(t, "Publish")
}

func TestServiceLogin_Success_TokenSubjectIsUserID(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	hash, err := auth.GeneratePasswordHash("longenough", bcrypt.MinCost)
	require.NoError(t, err)

	userID := primitive.NewObjectID()
	stored := &User{ID: userID, Email: "ada@example.com", Password: hash}
	mockRepo.On("GetByEmail", "ada@example.com", true).Return(stored, nil)

	token, err := service.Login(context.Background(), "ada@example.com", "longenough")

	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, userID.Hex(), claims.UserID)

	mockRepo.AssertExpectations(t)
}

func TestServiceLogin_WrongPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	hash, err := auth.GeneratePasswordHash("longenough", bcrypt.MinCost)
	require.NoError(t, err)

	stored := &User{ID: primitive.NewObjectID(), Email: "ada@example.com", Password: hash}
	mockRepo.On("GetByEmail", "ada@example.com", true).Return(stored, nil)

	token, err := service.Login(context.Background(), "ada@example.com", "wrongpassword")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, token)
}

func TestServiceLogin_UnknownEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	mockRepo.On("GetByEmail", "nobody@example.com", true).Return(nil, ErrNotFound)

	token, err := service.Login(context.Background(), "nobody@example.com", "longenough")

	// Same error as a wrong password: callers cannot tell which field was wrong
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, token)
}

func TestServiceAddScore_RankingIsRoundedMean(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockPublisher)
	service := newTestService(mockRepo, mockPublisher)

	userID := primitive.NewObjectID()
	stored := &User{ID: userID, Scores: []float64{80, 90}}

	mockRepo.On("GetByID", userID).Return(stored, nil)
	mockRepo.On("SetScores", userID, []float64{80, 90, 100}, 90).Return(nil)
	mockPublisher.On("Publish", mock.MatchedBy(func(e *audit.Event) bool {
		return e.Action == audit.ActionScoreAdded
	})).Return(nil)

	u, err := service.AddScore(context.Background(), userID.Hex(), 100)

	require.NoError(t, err)
	assert.Equal(t, 90, u.Ranking)
	assert.Equal(t, []float64{80, 90, 100}, u.Scores)

	mockRepo.AssertExpectations(t)
}

func TestServiceAddScore_FirstScore(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	userID := primitive.NewObjectID()
	stored := &User{ID: userID}

	mockRepo.On("GetByID", userID).Return(stored, nil)
	mockRepo.On("SetScores", userID, []float64{73}, 73).Return(nil)

	u, err := service.AddScore(context.Background(), userID.Hex(), 73)

	require.NoError(t, err)
	assert.Equal(t, 73, u.Ranking)

	mockRepo.AssertExpectations(t)
}

func TestServiceSetSkillLevel_UpdatesInPlace(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	userID := primitive.NewObjectID()
	stored := &User{ID: userID, Skills: []Skill{{Name: "go", Level: 2}}}

	mockRepo.On("GetByID", userID).Return(stored, nil)
	mockRepo.On("SetSkills", userID, []Skill{{Name: "go", Level: 5}}).Return(nil)

	skills, err := service.SetSkillLevel(context.Background(), userID.Hex(), "go", 5)

	require.NoError(t, err)
	// Skill count unchanged, level updated in place
	require.Len(t, skills, 1)
	assert.Equal(t, 5, skills[0].Level)

	mockRepo.AssertExpectations(t)
}

func TestServiceSetSkillLevel_AppendsNewSkill(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	userID := primitive.NewObjectID()
	stored := &User{ID: userID, Skills: []Skill{{Name: "go", Level: 2}}}

	mockRepo.On("GetByID", userID).Return(stored, nil)
	mockRepo.On("SetSkills", userID, []Skill{{Name: "go", Level: 2}, {Name: "mongodb", Level: 3}}).Return(nil)

	skills, err := service.SetSkillLevel(context.Background(), userID.Hex(), "mongodb", 3)

	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "mongodb", skills[1].Name)

	mockRepo.AssertExpectations(t)
}

func TestServiceGetByID_InvalidHex(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	u, err := service.GetByID(context.Background(), "not-a-hex-id")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, u)
	mockRepo.AssertNotCalled(t, "GetByID")
}

func TestServiceUpdate_RehashesNewPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockPublisher)
	service := newTestService(mockRepo, mockPublisher)

	userID := primitive.NewObjectID()

	mockRepo.On("Update", userID, mock.MatchedBy(func(fields bson.M) bool {
		hashed, ok := fields["password"].(string)
		if !ok {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte("newpassword1")) == nil
	})).Return(nil)
	mockPublisher.On("Publish", mock.MatchedBy(func(e *audit.Event) bool {
		return e.Action == audit.ActionUpdated
	})).Return(nil)

	err := service.Update(context.Background(), &UpdateInput{
		ID:        userID.Hex(),
		Password:  "newpassword1",
		FirstName: "Ada",
		LastName:  "King",
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestServiceUpdate_EmptyPasswordLeavesHashAlone(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	userID := primitive.NewObjectID()

	mockRepo.On("Update", userID, mock.MatchedBy(func(fields bson.M) bool {
		_, hasPassword := fields["password"]
		return !hasPassword
	})).Return(nil)

	err := service.Update(context.Background(), &UpdateInput{
		ID:        userID.Hex(),
		FirstName: "Ada",
		LastName:  "King",
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestServiceDeleteAll_PublishesAudit(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockPublisher)
	service := newTestService(mockRepo, mockPublisher)

	mockRepo.On("DeleteAll").Return(int64(7), nil)
	mockPublisher.On("Publish", mock.MatchedBy(func(e *audit.Event) bool {
		return e.Action == audit.ActionPurged && e.ActorID == "admin-id"
	})).Return(nil)

	deleted, err := service.DeleteAll(context.Background(), "admin-id")

	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	mockRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestServiceIsAdmin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestService(mockRepo, nil)

	adminID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	mockRepo.On("GetByID", adminID).Return(&User{ID: adminID, Role: RoleAdmin}, nil)
	mockRepo.On("GetByID", userID).Return(&User{ID: userID, Role: RoleUser}, nil)

	isAdmin, err := service.IsAdmin(context.Background(), adminID.Hex())
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = service.IsAdmin(context.Background(), userID.Hex())
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestCalculateRanking(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   int
	}{
		{"empty", nil, 0},
		{"single", []float64{80}, 80},
		{"exact mean", []float64{80, 90, 100}, 90},
		{"rounds up", []float64{80, 91}, 86}, // 85.5 rounds to 86
		{"rounds down", []float64{80, 90, 92}, 87}, // 87.33 rounds to 87
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateRanking(tt.scores))
		})
	}
}
