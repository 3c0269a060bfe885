package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims.
const (
	RoleJudge = "judge"
	RoleAdmin = "admin"
)

// Claims are the token claims for judges and administrators. Sub is the
// judge id for judge tokens and "admin" for administrator tokens.
type Claims struct {
	Sub        string `json:"sub"`
	Role       string `json:"role"`
	DivisionID string `json:"division_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 tokens and gates handlers by role.
type AuthService struct {
	hmac      []byte
	adminCode string
	ttl       time.Duration
	deps      Dependencies
}

// NewAuthService creates the token service. adminCode is the access code
// exchanged for an administrator token.
func NewAuthService(secret, adminCode string, ttl time.Duration, deps Dependencies) *AuthService {
	return &AuthService{hmac: []byte(secret), adminCode: adminCode, ttl: ttl, deps: deps}
}

// IssueJWT signs a token for sub with the given role.
func (a *AuthService) IssueJWT(sub, role, divisionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:        sub,
		Role:       role,
		DivisionID: divisionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tiara",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

// Parse verifies a token string and returns its claims.
func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

type loginRequest struct {
	AccessCode string `json:"access_code"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	JudgeID     string `json:"judge_id,omitempty"`
}

// HandleLogin handles POST /login, exchanging an access code for a token.
func (a *AuthService) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.AccessCode) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if req.AccessCode == a.adminCode {
		token, err := a.IssueJWT("admin", RoleAdmin, "")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, Role: RoleAdmin})
		return
	}

	judge, err := a.deps.JudgeByAccessCode(r.Context(), req.AccessCode)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	token, err := a.IssueJWT(judge.ID, RoleJudge, judge.DivisionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, Role: RoleJudge, JudgeID: judge.ID})
}

type ctxKey string

const ctxKeyClaims ctxKey = "claims"

// ClaimsFromContext returns the verified claims attached by the middleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(ctxKeyClaims).(*Claims); ok {
		return c
	}
	return nil
}

// RequireAuth verifies the bearer token and attaches its claims.
func (a *AuthService) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.auth"
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
	}
}

// RequireRole verifies the bearer token and requires an exact role.
// Administrators pass judge-gated routes; admin-gated routes stay strict.
func (a *AuthService) RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return a.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || (claims.Role != role && !(role == RoleJudge && claims.Role == RoleAdmin)) {
			writeError(w, http.StatusForbidden, "forbidden", NewKind("api.auth", ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}
