package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
)

const (
	// CallerIdentityKey is the gin context key holding the authenticated
	// caller's participant identity.
	CallerIdentityKey = "caller_identity"
	// SessionAuthKey is the gin context key holding the caller's decryption
	// session credential, forwarded opaquely to the seal backend.
	SessionAuthKey = "session_auth"

	// identityHeader lets local development supply a caller identity when
	// auth is disabled.
	identityHeader = "X-Caller-Identity"
)

// Validator validates JWTs using JWKS and resolves the caller's participant
// identity from a configurable claim.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware authenticates the request and stores the caller identity and
// session credential on the gin context. With auth disabled the identity is
// taken from a plain header instead, which keeps local development and tests
// free of a token issuer.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			if identity := strings.TrimSpace(c.GetHeader(identityHeader)); identity != "" {
				c.Set(CallerIdentityKey, identity)
			}
			v.captureSessionAuth(c)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
			jwt.WithIssuer(v.cfg.AuthIssuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		)
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		identity, _ := claims[v.cfg.IdentityClaim].(string)
		identity = strings.TrimSpace(identity)
		if identity == "" {
			abortUnauthorized(c, "token carries no participant identity")
			return
		}

		c.Set(CallerIdentityKey, identity)
		v.captureSessionAuth(c)
		c.Next()
	}
}

func (v *Validator) captureSessionAuth(c *gin.Context) {
	header := v.cfg.SessionAuthName
	if header == "" {
		return
	}
	if session := strings.TrimSpace(c.GetHeader(header)); session != "" {
		c.Set(SessionAuthKey, session)
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

// CallerIdentity returns the authenticated participant identity for the
// request, or empty when none was established.
func CallerIdentity(c *gin.Context) string {
	identity, _ := c.Get(CallerIdentityKey)
	s, _ := identity.(string)
	return s
}

// SessionAuth returns the caller's decryption session credential, if any.
func SessionAuth(c *gin.Context) string {
	session, _ := c.Get(SessionAuthKey)
	s, _ := session.(string)
	return s
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
