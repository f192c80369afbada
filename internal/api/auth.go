package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

const subjectContextKey = "subject"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// JWTAuth verifies HS256 bearer tokens. Token issuance happens elsewhere.
func JWTAuth(cfg *config.SecurityConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.JWTSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cfg.AuthEnabled {
			return next
		}
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errMissingToken.Error())
			}

			var claims jwt.RegisteredClaims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, errInvalidToken.Error()).SetInternal(err)
			}

			c.Set(subjectContextKey, claims.Subject)
			ctx := context.WithValue(c.Request().Context(), logger.SubjectKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
