package user

import (
	"database/sql"
	"errors"
	"net/http"

	"profile_hub/internal/audit"
	"profile_hub/internal/auth"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	userService UserServiceInterface
	auditRepo   audit.RepositoryInterface
	auditDB     *sql.DB
}

func NewUserController(userService UserServiceInterface, auditRepo audit.RepositoryInterface, auditDB *sql.DB) *UserController {
	return &UserController{
		userService: userService,
		auditRepo:   auditRepo,
		auditDB:     auditDB,
	}
}

// Register handles account creation with full validation
func (uc *UserController) Register(c *gin.Context) {
	var req struct {
		FirstName  string            `json:"firstName" binding:"required"`
		LastName   string            `json:"lastName" binding:"required"`
		Email      string            `json:"email" binding:"required,email"`
		Password   string            `json:"password" binding:"required,min=8"`
		Location   string            `json:"location"`
		Attributes map[string]string `json:"attributes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := uc.userService.Register(c.Request.Context(), &RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Location:   req.Location,
		Attributes: req.Attributes,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Email is already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Your account has been created successfully",
	})
}

// Login validates credentials, issues a token and sets it as a cookie.
// Unknown email and wrong password return the same body.
func (uc *UserController) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	token, err := uc.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.SetCookie(auth.TokenCookie, token, int(auth.TokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
	})
}

// FindAll returns every user. The password hash is excluded both by
// projection and by the model's JSON tags.
func (uc *UserController) FindAll(c *gin.Context) {
	users, err := uc.userService.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// FindUser returns one user by id
func (uc *UserController) FindUser(c *gin.Context) {
	u, err := uc.userService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	c.JSON(http.StatusOK, u)
}

// Me resolves the user behind the request's token
func (uc *UserController) Me(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		return
	}

	u, err := uc.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	c.JSON(http.StatusOK, u)
}

// Create is the direct-create endpoint. It runs the same validation and
// hashing pipeline as Register instead of persisting the raw body.
func (uc *UserController) Create(c *gin.Context) {
	var req struct {
		FirstName  string            `json:"firstName" binding:"required"`
		LastName   string            `json:"lastName" binding:"required"`
		Email      string            `json:"email" binding:"required,email"`
		Password   string            `json:"password" binding:"required,min=8"`
		Location   string            `json:"location"`
		Attributes map[string]string `json:"attributes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := uc.userService.Create(c.Request.Context(), &RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Location:   req.Location,
		Attributes: req.Attributes,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Email is already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user_id": id,
	})
}

// Search filters by optional q (free text) and location (case-insensitive)
func (uc *UserController) Search(c *gin.Context) {
	users, err := uc.userService.Search(c.Request.Context(), c.Query("q"), c.Query("location"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// Update replaces a user's profile fields; self only
func (uc *UserController) Update(c *gin.Context) {
	var req struct {
		ID         string            `json:"_id" binding:"required"`
		Password   string            `json:"password"`
		FirstName  string            `json:"firstName" binding:"required"`
		LastName   string            `json:"lastName" binding:"required"`
		Location   string            `json:"location"`
		Attributes map[string]string `json:"attributes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !uc.requireSelf(c, req.ID) {
		return
	}

	err := uc.userService.Update(c.Request.Context(), &UpdateInput{
		ID:         req.ID,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Location:   req.Location,
		Attributes: req.Attributes,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User info was updated"})
}

// Delete removes a user document; self only
func (uc *UserController) Delete(c *gin.Context) {
	id := c.Param("id")

	if !uc.requireSelf(c, id) {
		return
	}

	if err := uc.userService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User was deleted"})
}

// UpdateRanking appends a score and returns the recomputed ranking; self only
func (uc *UserController) UpdateRanking(c *gin.Context) {
	id := c.Param("id")

	if !uc.requireSelf(c, id) {
		return
	}

	// Pointer so that a score of 0 passes the presence check
	var req struct {
		Score *float64 `json:"score" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := uc.userService.AddScore(c.Request.Context(), id, *req.Score)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ranking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User ranking and scores were updated",
		"user": gin.H{
			"ranking": u.Ranking,
			"scores":  u.Scores,
		},
	})
}

// UpdateSkillLevel upserts one skill entry by name; self only
func (uc *UserController) UpdateSkillLevel(c *gin.Context) {
	id := c.Param("id")

	if !uc.requireSelf(c, id) {
		return
	}

	// Pointer so that a level of 0 passes the presence check
	var req struct {
		SkillName string `json:"skillName" binding:"required"`
		Level     *int   `json:"level" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	skills, err := uc.userService.SetSkillLevel(c.Request.Context(), id, req.SkillName, *req.Level)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update skill"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

// DeleteMany removes every user document; admin only
func (uc *UserController) DeleteMany(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		return
	}

	isAdmin, err := uc.userService.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	deleted, err := uc.userService.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users were deleted",
		"deleted": deleted,
	})
}

// AuditTrail returns the audit events recorded for one user; admin only
func (uc *UserController) AuditTrail(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		return
	}

	isAdmin, err := uc.userService.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	events, err := uc.auditRepo.GetByUserID(uc.auditDB, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit trail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// requireSelf enforces that the token subject matches the target user.
func (uc *UserController) requireSelf(c *gin.Context, targetID string) bool {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		return false
	}

	if userID != targetID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own profile"})
		return false
	}

	return true
}
