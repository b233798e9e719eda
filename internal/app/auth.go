package app

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"interview-scheduler/internal/apperror"
)

const (
	adminAudience = "admin"
	stateAudience = "calendar-oauth-state"

	adminTokenTTL = 12 * time.Hour
	stateTTL      = 10 * time.Minute
)

// AdminAuth accepts either the raw admin secret or an admin JWT signed with
// it. It is checked on every request.
func (a *App) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			a.respondError(c, apperror.Unauthorized())
			return
		}
		tokenStr := parts[1]

		if a.secretMatches(tokenStr) {
			c.Next()
			return
		}

		// JWT path
		if _, err := a.parseToken(tokenStr, adminAudience); err == nil {
			c.Next()
			return
		}

		a.respondError(c, apperror.Unauthorized())
	}
}

// POST /api/admin/login
func (a *App) LoginHandler(c *gin.Context) {
	var req loginReq
	if !a.bindJSON(c, &req) {
		return
	}
	if !a.secretMatches(req.Secret) {
		a.respondError(c, apperror.Unauthorized())
		return
	}

	expires := time.Now().Add(adminTokenTTL)
	token, err := a.signToken(adminAudience, "admin", expires)
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	c.JSON(http.StatusOK, loginResp{Token: token, ExpiresAt: expires.UTC()})
}

func (a *App) secretMatches(candidate string) bool {
	if len(a.AdminSecret) == 0 || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), a.AdminSecret) == 1
}

func (a *App) signToken(audience, subject string, expires time.Time) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.AdminSecret)
}

func (a *App) parseToken(tokenStr, audience string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return a.AdminSecret, nil
	},
		jwt.WithLeeway(5*time.Second),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// signState returns the OAuth state parameter: a short-lived JWT the
// callback can verify without server-side session storage.
func (a *App) signState() (string, error) {
	return a.signToken(stateAudience, "calendar-connect", time.Now().Add(stateTTL))
}

func (a *App) verifyState(state string) bool {
	_, err := a.parseToken(state, stateAudience)
	return err == nil
}
