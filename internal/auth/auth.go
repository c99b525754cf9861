package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid API credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// Test credentials, one per role
var (
	TestDMKey     = "test-dm-key"
	TestDMSecret  = "test-dm-secret"
	TestFMKey     = "test-fm-key"
	TestFMSecret  = "test-fm-secret"
	TestSysKey    = "test-system-key"
	TestSysSecret = "test-system-secret"
)

// Credentials represents the API authentication credentials
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Role       types.Role `json:"role"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure. Role is the closed workflow
// role the credential maps to; the capability table in internal/workflow is
// keyed on it.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string     `json:"client_id"`
	Role     types.Role `json:"role"`
}

type credential struct {
	secret string
	role   types.Role
}

// Service handles authentication and authorization operations
type Service struct {
	jwtSecret []byte
	// In a real implementation, this would be replaced with a database
	apiCredentials map[string]credential
}

// NewService creates a new authentication service with the given JWT secret
func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret:      []byte(jwtSecret),
		apiCredentials: make(map[string]credential),
	}
}

// RegisterAPICredentials stores an API key/secret pair and the role its
// tokens will carry.
func (s *Service) RegisterAPICredentials(apiKey, apiSecret string, role types.Role) {
	s.apiCredentials[apiKey] = credential{secret: apiSecret, role: role}
}

// GenerateToken generates a JWT token for valid API credentials
// The token includes client ID and role with 24-hour expiration
func (s *Service) GenerateToken(creds Credentials) (*TokenResponse, error) {
	cred, ok := s.apiCredentials[creds.APIKey]
	if !ok || cred.secret != creds.APISecret {
		return nil, ErrInvalidCredentials
	}

	expiration := time.Now().Add(24 * time.Hour)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		ClientID: creds.APIKey, // Using API key as client ID for simplicity
		Role:     cred.role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Role:       cred.role,
		Expiration: expiration,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
// Verifies token signature and expiration
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GetClientID extracts the client ID from JWT claims stored in the context
func GetClientID(claims interface{}) string {
	if mapClaims, ok := claims.(jwt.MapClaims); ok {
		if clientID, ok := mapClaims["client_id"].(string); ok {
			return clientID
		}
	}
	return ""
}

// GetRole extracts the workflow role from JWT claims stored in the context
func GetRole(claims interface{}) types.Role {
	if mapClaims, ok := claims.(jwt.MapClaims); ok {
		if role, ok := mapClaims["role"].(string); ok {
			return types.Role(role)
		}
	}
	return ""
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// GenerateTokenHandler handles POST requests to exchange API credentials
// for a JWT token
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		token, err := h.service.GenerateToken(creds)
		if err != nil {
			response.Unauthorized(c, "Invalid API credentials")
			return
		}

		response.Success(c, token)
	}
}
