package api

import (
    "crypto/subtle"
    "net/http"
    "strings"

    "convkit/config"
    "github.com/gin-gonic/gin"
)

// AuthMiddleware guards the API with a static bearer key. The key check
// is constant-time so a caller cannot probe it byte by byte.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
    return func(c *gin.Context) {
        if !cfg.AuthEnable {
            c.Next()
            return
        }

        token, ok := bearerToken(c.GetHeader("Authorization"))
        if !ok {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed bearer token"})
            return
        }
        if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.AuthKey)) != 1 {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access key"})
            return
        }

        c.Next()
    }
}

// bearerToken extracts the credential from an "Authorization: Bearer x"
// header, tolerating any casing of the scheme.
func bearerToken(header string) (string, bool) {
    scheme, token, found := strings.Cut(header, " ")
    if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
        return "", false
    }
    return token, true
}
