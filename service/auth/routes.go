package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/cmd/utils"
)

const tokenLifetime = 24 * time.Hour

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/signup", h.HandleSignup).Methods("POST")
	router.HandleFunc("/auth/login", h.HandleLogin).Methods("POST")
}

type credentialsRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// HandleSignup registers a new user and issues a token for it.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Validation("Invalid JSON input"))
		return
	}

	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" || req.Password == "" {
		utils.WriteError(w, apperrors.Validation("Username and password are required"))
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		UserName:     req.UserName,
		PasswordHash: string(passwordHash),
	}

	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		if apperrors.IsDuplicateKey(err) {
			log.Printf("Registration attempt with duplicate username %q", req.UserName)
			utils.WriteError(w, apperrors.Conflict("Username already exists"))
			return
		}
		utils.WriteError(w, err)
		return
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"token":     token,
		"user_id":   user.ID,
		"user_name": user.UserName,
	})
}

// HandleLogin verifies credentials and issues a token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Validation("Invalid JSON input"))
		return
	}

	var user models.User
	result := h.db.WithContext(r.Context()).Where("user_name = ?", req.UserName).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.WriteError(w, apperrors.Authentication("Invalid credentials"))
			return
		}
		utils.WriteError(w, result.Error)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.WriteError(w, apperrors.Authentication("Invalid credentials"))
		return
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"user_id":   user.ID,
		"user_name": user.UserName,
	})
}

func generateJWT(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}
