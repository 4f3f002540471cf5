package middleware

import (
	"net/http"
	"strings"

	"fabrisys/internal/apierror"
	"fabrisys/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ActorKey = "actor"

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	OperatorID     string `json:"operator_id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	LocationID     string `json:"location_id"`
	OrganizationID string `json:"organization_id"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the ActorContext passed to services.
// Capabilities are derived from the role here and nowhere else.
func (c *JWTClaims) Actor() (service.ActorContext, error) {
	opID, err := uuid.Parse(c.OperatorID)
	if err != nil {
		return service.ActorContext{}, err
	}
	locID, err := uuid.Parse(c.LocationID)
	if err != nil {
		return service.ActorContext{}, err
	}
	orgID, err := uuid.Parse(c.OrganizationID)
	if err != nil {
		return service.ActorContext{}, err
	}
	return service.ActorContext{
		OperatorID:     opID,
		LocationID:     locID,
		OrganizationID: orgID,
		Capabilities:   service.CapabilitiesForRole(c.Role),
	}, nil
}

// JWTAuth validates the Bearer token on every protected route and stores the
// derived ActorContext on the context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("malformed token"))
			return
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the ActorContext set by JWTAuth.
func GetActor(c *gin.Context) service.ActorContext {
	actor, _ := c.MustGet(ActorKey).(service.ActorContext)
	return actor
}
