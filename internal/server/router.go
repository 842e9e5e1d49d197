package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grpweb/grpweb/internal/auth"
	"github.com/grpweb/grpweb/internal/catalog"
	"github.com/grpweb/grpweb/internal/users"
	"go.uber.org/zap"
)

const (
	accountIDContextKey = "grpweb_account_id"
	usernameContextKey  = "grpweb_username"
	requestIDContextKey = "grpweb_request_id"
	headerRequestID     = "X-Request-ID"
)

var (
	errMissingAuthenticator = errors.New("authenticator dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingCatalog       = errors.New("catalog service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (users.Account, error)
}

type TokenManager interface {
	IssueToken(ctx context.Context, identity auth.Identity) (string, int64, error)
	ValidateToken(token string) (auth.AccessClaims, error)
}

type Dependencies struct {
	Accounts       Authenticator
	TokenManager   TokenManager
	Catalog        *catalog.Service
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAuthenticator
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &httpHandler{
		accounts: deps.Accounts,
		tokens:   deps.TokenManager,
		catalog:  deps.Catalog,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins...))
	router.Use(handler.logRequest)

	router.GET("/healthz", handler.handleHealth)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/messages", handler.handleListMessages)
	protected.POST("/messages", handler.handleCreateMessage)
	protected.PUT("/messages/:id", handler.handleUpdateMessage)
	protected.DELETE("/messages/:id", handler.handleDeleteMessage)
	protected.GET("/positions", handler.handleListPositions)
	protected.POST("/positions", handler.handleCreatePosition)
	protected.PUT("/positions/:id", handler.handleUpdatePosition)
	protected.DELETE("/positions/:id", handler.handleDeletePosition)

	return router, nil
}

// corsMiddleware admits the browser and console clients. Without explicit
// origins every origin is allowed.
func corsMiddleware(origins ...string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Authorization", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

type httpHandler struct {
	accounts Authenticator
	tokens   TokenManager
	catalog  *catalog.Service
	logger   *zap.Logger
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorPayload{Error: code, Message: message})
}

func (h *httpHandler) logRequest(c *gin.Context) {
	requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	c.Header(headerRequestID, requestID)

	started := time.Now()
	c.Next()

	h.logger.Debug("request served",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(started)),
		zap.String("request_id", requestID),
	)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginRequestPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Username) == "" || request.Password == "" {
		writeError(c, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.logger.Info("login rejected",
				zap.String("username", strings.TrimSpace(request.Username)),
				zap.String("request_id", c.GetString(requestIDContextKey)))
			writeError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password.")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "login_failed", "")
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), auth.Identity{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
	})
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "token_issue_failed", "")
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		AccessToken: token,
		TokenType:   auth.TokenType,
		ExpiresIn:   expiresIn,
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(c, http.StatusUnauthorized, "unauthorized", errInvalidAuthorization.Error())
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		writeError(c, http.StatusUnauthorized, "unauthorized", errInvalidAuthorization.Error())
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.String("request_id", c.GetString(requestIDContextKey))}
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", fields...)
		} else {
			h.logger.Warn("token validation failed", fields...)
		}
		writeError(c, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	c.Set(accountIDContextKey, claims.AccountID)
	c.Set(usernameContextKey, claims.Username)
	c.Next()
}
