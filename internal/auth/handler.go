package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"animehub/pkg/database"
	apperrors "animehub/pkg/errors"
)

const (
	minPassword = 8
	maxPassword = 72 // bcrypt ignores anything past this
)

// ViewRecounter refreshes an anime's stored view count.
type ViewRecounter interface {
	AnimeViews(ctx context.Context, animeID string) (int64, bool, error)
}

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	// Views, when set, is told about animes whose viewers were deleted.
	Views ViewRecounter
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

// Middleware is the bearer-token check bound to this handler's repo.
func (h *Handler) Middleware() gin.HandlerFunc {
	return AuthMiddleware(h.Tokens, h.Repo)
}

// RegisterRoutes mounts /auth/*.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/change-password", h.Middleware(), h.changePassword)
	rg.POST("/logout", h.Middleware(), h.logout)
}

// RegisterProtectedRoutes mounts /users/me on a group that already runs the
// auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.me)
}

// RegisterAdminRoutes mounts user administration on an admin-only group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.listUsers)
	rg.GET("/admins", h.listAdmins)
	rg.GET("/users/:id", h.getUser)
	rg.PUT("/users/:id", h.updateUser)
	rg.DELETE("/users/:id", h.deleteUser)
}

func userJSON(u *User) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"role":      u.Role,
		"imageUrl":  u.ImageURL,
		"createdAt": u.CreatedAt,
	}
}

// session signs a token for u and writes it with the user.
func (h *Handler) session(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		apperrors.Respond(c, apperrors.Wrap(apperrors.ErrorTypeInternal, "token failed", err))
		return
	}
	c.JSON(status, gin.H{
		"user":      userJSON(u),
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}

func checkPassword(pw string) error {
	if len(pw) < minPassword || len(pw) > maxPassword {
		return apperrors.BadRequest("password must be 8-72 chars")
	}
	return nil
}

func checkUsername(name string) error {
	if n := utf8.RuneCountInString(name); n < 3 || n > 30 {
		return apperrors.BadRequest("username must be 3-30 chars")
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrorTypeInternal, "hash failed", err)
	}
	return string(hash), nil
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *registerReq) normalize() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if err := checkUsername(r.Username); err != nil {
		return err
	}
	if !strings.Contains(r.Email, "@") || len(r.Email) > 255 {
		return apperrors.BadRequest("invalid email")
	}
	return checkPassword(r.Password)
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("invalid json"))
		return
	}
	if err := req.normalize(); err != nil {
		apperrors.Respond(c, err)
		return
	}

	ctx := c.Request.Context()
	if u, _ := h.Repo.GetByEmail(ctx, req.Email); u != nil {
		apperrors.Respond(c, apperrors.Conflict("email already exists"))
		return
	}
	if u, _ := h.Repo.GetByUsername(ctx, req.Username); u != nil {
		apperrors.Respond(c, apperrors.Conflict("username already exists"))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Repo.CreateUser(ctx, *u); err != nil {
		if database.IsUniqueViolation(err) {
			apperrors.Respond(c, apperrors.Conflict("user already exists"))
			return
		}
		apperrors.Respond(c, err)
		return
	}

	h.session(c, http.StatusCreated, u)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// errBadCredentials covers both an unknown email and a wrong password.
var errBadCredentials = apperrors.Unauthorized("invalid credentials")

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("invalid json"))
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		apperrors.Respond(c, apperrors.BadRequest("email and password required"))
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		apperrors.Respond(c, errBadCredentials)
		return
	}

	h.session(c, http.StatusOK, u)
}

// currentUser loads the caller named by the token claims.
func (h *Handler) currentUser(c *gin.Context) (*User, error) {
	claims := MustGetClaims(c)
	if claims == nil {
		return nil, apperrors.Unauthorized("invalid token")
	}
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.Unauthorized("invalid token")
	}
	return u, nil
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("invalid json"))
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		apperrors.Respond(c, apperrors.BadRequest("old and new password required"))
		return
	}
	if err := checkPassword(req.NewPassword); err != nil {
		apperrors.Respond(c, err)
		return
	}

	u, err := h.currentUser(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)) != nil {
		apperrors.Respond(c, errBadCredentials)
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, hash); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

// logout revokes every token the caller holds, not just this one.
func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		apperrors.Respond(c, apperrors.Unauthorized("invalid token"))
		return
	}
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.currentUser(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(u))
}

func (h *Handler) writeUsers(c *gin.Context, role string) {
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	users, total, err := h.Repo.ListUsers(c.Request.Context(), role, limit, offset)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	items := make([]gin.H, 0, len(users))
	for i := range users {
		items = append(items, userJSON(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	role := strings.ToLower(strings.TrimSpace(c.Query("role")))
	if role != "" && role != RoleUser && role != RoleAdmin {
		apperrors.Respond(c, apperrors.BadRequest("unknown role"))
		return
	}
	h.writeUsers(c, role)
}

func (h *Handler) listAdmins(c *gin.Context) {
	h.writeUsers(c, RoleAdmin)
}

func (h *Handler) getUser(c *gin.Context) {
	u, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if u == nil {
		apperrors.Respond(c, apperrors.NotFound("user not found"))
		return
	}
	c.JSON(http.StatusOK, userJSON(u))
}

type updateUserReq struct {
	Username *string `json:"username"`
	ImageURL *string `json:"imageUrl"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("invalid json"))
		return
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := checkUsername(name); err != nil {
			apperrors.Respond(c, err)
			return
		}
		req.Username = &name
	}
	if req.ImageURL != nil {
		u := strings.TrimSpace(*req.ImageURL)
		req.ImageURL = &u
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.Repo.UpdateProfile(ctx, id, req.Username, req.ImageURL); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			apperrors.Respond(c, apperrors.NotFound("user not found"))
		case database.IsUniqueViolation(err):
			apperrors.Respond(c, apperrors.Conflict("username already exists"))
		default:
			apperrors.Respond(c, err)
		}
		return
	}
	h.getUser(c)
}

func (h *Handler) deleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	viewed, err := h.Repo.DeleteUser(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			apperrors.Respond(c, apperrors.NotFound("user not found"))
			return
		}
		apperrors.Respond(c, err)
		return
	}
	if h.Views != nil {
		for _, animeID := range viewed {
			if _, _, err := h.Views.AnimeViews(ctx, animeID); err != nil {
				_ = c.Error(err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
