package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/usecase"

	"brokerdesk/internal/delivery/http/dto"
)

// documentSlots are the required KYC upload fields, in form-field order.
var documentSlots = []string{"profile_image", "pan_card", "aadhar_front", "aadhar_back"}

// AuthHandler handles registration and session requests
type AuthHandler struct {
	userRepo   domain.UserRepository
	docs       domain.DocumentStore
	notifier   domain.Notifier
	tokens     *middleware.TokenManager
	logger     *slog.Logger
	production bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userRepo domain.UserRepository,
	docs domain.DocumentStore,
	notifier domain.Notifier,
	tokens *middleware.TokenManager,
	logger *slog.Logger,
	production bool,
) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		docs:       docs,
		notifier:   notifier,
		tokens:     tokens,
		logger:     logger,
		production: production,
	}
}

// Register handles KYC registration
// POST /api/v1/user/register (multipart form)
func (h *AuthHandler) Register(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	phone := strings.TrimSpace(c.FormValue("phone"))
	pan := strings.ToUpper(strings.TrimSpace(c.FormValue("pan")))
	aadhar := strings.TrimSpace(c.FormValue("aadhar_no"))

	if name == "" || email == "" || phone == "" || pan == "" || aadhar == "" {
		return BadRequestResponse(c, "name, email, phone, pan and aadhar_no are required")
	}

	files := make(map[string]*multipart.FileHeader, len(documentSlots))
	for _, slot := range documentSlots {
		fh, err := c.FormFile(slot)
		if err != nil {
			return BadRequestResponse(c, fmt.Sprintf("document %s is required", slot))
		}
		files[slot] = fh
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	urls := make(map[string]string, len(documentSlots))
	for slot, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return InternalServerErrorResponse(c, "Failed to read uploaded document", err)
		}
		url, err := h.docs.Put(ctx, slot, fh.Filename, src)
		src.Close()
		if err != nil {
			return InternalServerErrorResponse(c, "Failed to store uploaded document", err)
		}
		urls[slot] = url
	}

	// The credential is generated server-side and withheld until approval;
	// nothing client-supplied is ever accepted as a password.
	credential := usecase.GenerateCredential()
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to hash credential", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:              uuid.New(),
		Name:            name,
		Email:           email,
		Phone:           phone,
		PAN:             pan,
		AadharNo:        aadhar,
		PasswordHash:    string(hash),
		Role:            domain.RoleUser,
		Status:          domain.UserStatusActive,
		IsVerified:      false,
		ProfileImageURL: urls["profile_image"],
		PANCardURL:      urls["pan_card"],
		AadharFrontURL:  urls["aadhar_front"],
		AadharBackURL:   urls["aadhar_back"],
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return BadRequestResponse(c, "An account with these details already exists")
		}
		return InternalServerErrorResponse(c, "Failed to create user", err)
	}

	// Review notice goes out after the response; its failure never
	// invalidates the registration.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		_, err := h.notifier.Send(ctx, domain.Message{
			Recipients: []string{user.Email},
			Subject:    "Your application is under review",
			Body: fmt.Sprintf(
				"Hello %s,\n\nWe received your registration. Your documents are under review; you will get your login credentials once the review completes.",
				user.Name,
			),
		})
		if err != nil {
			h.logger.Warn("registration notice failed", "user_id", user.ID, "error", err)
		}
	}()

	return CreatedResponse(c, toUserOutput(user))
}

// Login handles user login
// POST /api/v1/user/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if req.Email == "" || req.Password == "" {
		return BadRequestResponse(c, "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Unknown email and wrong password surface identically so the endpoint
	// cannot be used to enumerate accounts.
	user, err := h.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UnauthorizedResponse(c, "Invalid credentials")
		}
		return InternalServerErrorResponse(c, "Failed to load user", err)
	}

	// A pending account gets 402 whatever the password; verification gates
	// the credential check, not the other way around.
	if !user.IsVerified {
		return NotVerifiedResponse(c, "Account is pending verification")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		h.logger.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}

	token, err := h.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to generate token", err)
	}

	c.SetCookie(h.sessionCookie(token, 86400))

	return SuccessResponse(c, dto.LoginResponse{
		Role:       user.Role,
		IsVerified: user.IsVerified,
		Email:      user.Email,
	})
}

// Logout handles user logout
// POST /api/v1/user/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", -1))
	return SuccessMessageResponse(c, "Logged out", nil)
}

// ChangePassword handles credential rotation for a logged-in user
// POST /api/v1/user/change-password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "Not authenticated")
	}

	var req dto.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return BadRequestResponse(c, "Old and new passwords are required")
	}
	if req.NewPassword == req.OldPassword {
		return BadRequestResponse(c, "New password must differ from the old one")
	}
	if len(req.NewPassword) < 6 {
		return BadRequestResponse(c, "Password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UnauthorizedResponse(c, "Not authenticated")
		}
		return InternalServerErrorResponse(c, "Failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to hash credential", err)
	}

	if err := h.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return InternalServerErrorResponse(c, "Failed to update password", err)
	}

	return SuccessMessageResponse(c, "Password updated", nil)
}

// sessionCookie builds the session cookie with the environment-dependent
// policy: secure + cross-site in production, lax + insecure in development.
func (h *AuthHandler) sessionCookie(token string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   maxAge,
	}
	if h.production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	} else {
		cookie.Secure = false
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie
}

func toUserOutput(user *domain.User) dto.UserOutput {
	return dto.UserOutput{
		ID:              user.ID.String(),
		Name:            user.Name,
		Email:           user.Email,
		Phone:           user.Phone,
		Role:            user.Role,
		Status:          user.Status,
		IsVerified:      user.IsVerified,
		RejectionReason: user.RejectionReason,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
	}
}
