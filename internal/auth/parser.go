package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tverlinden/sla-service/internal/model"
)

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Parse validates an access token and extracts the Principal.
func (p *Parser) Parse(raw string) (model.Principal, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return model.Principal{}, err
	}
	if !token.Valid {
		return model.Principal{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("invalid subject: %w", err)
	}

	role, err := parseRole(claims.Role)
	if err != nil {
		return model.Principal{}, err
	}

	return model.Principal{
		UserID: userID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

func parseRole(raw string) (model.Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ADMIN":
		return model.RoleAdmin, nil
	case "TECHNICIAN":
		return model.RoleTechnician, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}
