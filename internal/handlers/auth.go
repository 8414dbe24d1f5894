package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/socialnet/apiserver/config"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/types"
	"go.uber.org/zap"
)

const defaultSessionTTL = 30 * 24 * time.Hour

// AuthHandler provides signup, login and the session middleware.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	sessionTTL  time.Duration
	cookieName  string
	secure      bool
	log         *zap.Logger
	now         func() time.Time
}

// NewAuthHandler constructs an AuthHandler. Cookies are marked Secure only
// in production.
func NewAuthHandler(userService *services.UserService, cfg config.AuthConfig, production bool, log *zap.Logger) *AuthHandler {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "session-token"
	}
	return &AuthHandler{
		userService: userService,
		secret:      []byte(cfg.JWTSecret),
		sessionTTL:  ttl,
		cookieName:  cookieName,
		secure:      production,
		log:         log,
		now:         time.Now,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(RequireAuth).Get("/me", handler.Me)
}

// Authenticate resolves the session token, from the cookie or a Bearer
// header, into the request context. Requests without a valid token continue
// anonymously.
func (h *AuthHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := h.sessionToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), subject)))
	})
}

// RequireAuth rejects requests that Authenticate left anonymous.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if viewerFromContext(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Signup creates a new account. It does not log the user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Signup(r.Context(), services.SignupInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		Message: "User created successfully",
		User:    accountOf(user),
	})
}

// Login verifies credentials and issues a fresh session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to authenticate")
		return
	}

	now := h.now()
	token, err := issueToken(user.ID, h.secret, now, h.sessionTTL)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create session")
		return
	}

	http.SetCookie(w, h.cookie(token, now.Add(h.sessionTTL), int(h.sessionTTL.Seconds())))
	writeJSON(w, http.StatusOK, AccountResponse{
		Message: "Logged in successfully",
		User:    accountOf(user),
	})
}

// Logout expires the session cookie. Issued tokens stay valid until they
// expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.cookie("", time.Unix(0, 0), -1))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	viewerID := viewerFromContext(r.Context())
	profile, err := h.userService.Profile(r.Context(), viewerID, viewerID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, h.log, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{User: profile})
}

func (h *AuthHandler) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) sessionToken(r *http.Request) string {
	if token, err := bearerToken(r); err == nil {
		return token
	}
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Account is the credential-free identity returned by signup and login.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Image    string `json:"image"`
}

type AccountResponse struct {
	Message string  `json:"message"`
	User    Account `json:"user"`
}

func accountOf(user types.User) Account {
	return Account{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		Image:    user.Image,
	}
}

func issueToken(userID string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
