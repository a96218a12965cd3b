package handlers

import (
	"net/http"
	"time"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/middleware"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	store  *services.SupabaseStore
	config *config.Config
}

func NewAuthHandler(store *services.SupabaseStore, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		store:  store,
		config: cfg,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RolePatient
	}
	if role != models.RolePatient && role != models.RoleDoctor {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid role",
		})
		return
	}

	existing, err := h.store.ProfileByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to check existing account",
		})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, models.Response{
			Success: false,
			Error:   "Account already exists",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to create account",
		})
		return
	}

	profile, err := h.store.InsertProfile(c.Request.Context(), map[string]interface{}{
		"email":         req.Email,
		"full_name":     req.FullName,
		"role":          role,
		"password_hash": string(hash),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to create account",
		})
		return
	}

	token, err := h.signToken(profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to issue token",
		})
		return
	}

	c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: "Account created",
		Data:    models.LoginResponse{Token: token, User: profile},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	profile, err := h.store.ProfileByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Login failed",
		})
		return
	}
	if profile == nil || bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Error:   "Invalid email or password",
		})
		return
	}

	token, err := h.signToken(profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data:    models.LoginResponse{Token: token, User: profile},
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := c.GetString("user_id")
	profile, err := h.store.ProfileByID(c.Request.Context(), userID)
	if err != nil || profile == nil {
		c.JSON(http.StatusNotFound, models.Response{
			Success: false,
			Error:   "Profile not found",
		})
		return
	}
	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data:    profile,
	})
}

func (h *AuthHandler) signToken(p *models.Profile) (string, error) {
	claims := middleware.Claims{
		UserID:   p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.config.JWTSecret))
}
