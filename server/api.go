// Package server is a development server for the news API, backed by the
// SQLite store.
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/store"
)

const (
	// maxPageSize caps fetch_limit on the news item lists.
	maxPageSize = 80

	// maxSavedPageSize caps fetch_limit on the saved news list.
	maxSavedPageSize = 30

	// userKey is where the auth middleware leaves the caller.
	userKey = "user"
)

// APIServer serves the news API.
type APIServer struct {
	store    *store.Store
	pageSize int
	logger   *log.Logger
}

// NewAPIServer creates a server over st. pageSize is the default number of
// items per page.
func NewAPIServer(st *store.Store, pageSize int, logger *log.Logger) *APIServer {
	if pageSize <= 0 {
		pageSize = 30
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &APIServer{store: st, pageSize: min(pageSize, maxPageSize), logger: logger}
}

// SetupRouter configures the Gin router with all news API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("", s.authenticate())
	api.GET("/news-items", s.HandleUnreadItems)
	api.GET("/news-items/read", s.HandleReadItems)
	api.POST("/news-items/mark-as-read", s.HandleMarkAsRead)
	api.GET("/saved-news", s.HandleListSaved)
	api.POST("/saved-news", s.HandleSave)
	api.DELETE("/saved-news/:id", s.HandleDeleteSaved)

	return router
}

// errorResponse creates a standardized error response. Clients read detail;
// error adds a machine-readable code.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"detail": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// requestLogger logs every request at debug level.
func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// authenticate resolves the bearer token. Unknown tokens get 401, accounts
// not yet approved get 403.
func (s *APIServer) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "Not authenticated"))
			return
		}

		user, err := s.store.UserByToken(c.Request.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "Token is not valid"))
			return
		}
		if err != nil {
			s.internalError(c, "Failed to look up user", err)
			return
		}
		if !user.Approved {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse("pending_approval", "Approval for usage is not yet given"))
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *store.User {
	return c.MustGet(userKey).(*store.User)
}

func (s *APIServer) internalError(c *gin.Context, message string, err error) {
	s.logger.Error(message, "path", c.Request.URL.Path, "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("internal_error", message))
}

// pageCursor decodes fetch_offset. It returns done when the client sent the
// final page token back.
func pageCursor(c *gin.Context) (cursor *store.Cursor, done bool, err error) {
	token := newsroom.PageToken(c.Query("fetch_offset"))
	if token.IsZero() {
		return nil, false, nil
	}
	if token.Exhausted() {
		return nil, true, nil
	}

	decoded, err := token.Decode()
	if err != nil {
		return nil, false, err
	}
	parsed, err := store.ParseCursor(decoded)
	if err != nil {
		return nil, false, err
	}
	return &parsed, false, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("Invalid " + name + " parameter")
	}
	return n, nil
}

type pageFunc func(c *gin.Context, userID string, after *store.Cursor, limit int) (*store.Page, error)

// HandleUnreadItems handles GET /news-items.
func (s *APIServer) HandleUnreadItems(c *gin.Context) {
	s.handlePage(c, func(c *gin.Context, userID string, after *store.Cursor, limit int) (*store.Page, error) {
		return s.store.UnreadItems(c.Request.Context(), userID, after, limit)
	})
}

// HandleReadItems handles GET /news-items/read.
func (s *APIServer) HandleReadItems(c *gin.Context) {
	s.handlePage(c, func(c *gin.Context, userID string, after *store.Cursor, limit int) (*store.Page, error) {
		return s.store.ReadItems(c.Request.Context(), userID, after, limit)
	})
}

// handlePage serves one token-paged list. The final page carries the DONE
// token and has_more false.
func (s *APIServer) handlePage(c *gin.Context, fetch pageFunc) {
	user := currentUser(c)

	cursor, done, err := pageCursor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid fetch_offset parameter"))
		return
	}

	limit, err := queryInt(c, "fetch_limit", s.pageSize)
	if err != nil || limit == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid fetch_limit parameter"))
		return
	}
	limit = min(limit, maxPageSize)

	page := &store.Page{Items: []newsroom.NewsItem{}}
	if !done {
		if page, err = fetch(c, user.UserID, cursor, limit); err != nil {
			s.internalError(c, "Failed to list news items", err)
			return
		}
	}

	unread, err := s.store.UnreadCount(c.Request.Context(), user.UserID)
	if err != nil {
		s.internalError(c, "Failed to count unread items", err)
		return
	}

	hasMore := page.Next != nil
	response := newsroom.NewsItemsPage{
		Token:               newsroom.DoneToken,
		NewsItems:           page.Items,
		NumberOfUnreadItems: &unread,
		HasMore:             &hasMore,
	}
	if hasMore {
		response.Token = newsroom.EncodeToken(page.Next.String())
	}

	c.JSON(http.StatusOK, response)
}

// HandleMarkAsRead handles POST /news-items/mark-as-read.
func (s *APIServer) HandleMarkAsRead(c *gin.Context) {
	var req newsroom.MarkAsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	if _, err := s.store.MarkAsRead(c.Request.Context(), currentUser(c).UserID, req.NewsItemIDs); err != nil {
		s.internalError(c, "Failed to mark items as read", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleListSaved handles GET /saved-news.
func (s *APIServer) HandleListSaved(c *gin.Context) {
	offset, err := queryInt(c, "fetch_offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", err.Error()))
		return
	}
	limit, err := queryInt(c, "fetch_limit", maxSavedPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", err.Error()))
		return
	}
	limit = min(limit, maxSavedPageSize)

	items, err := s.store.SavedItems(c.Request.Context(), currentUser(c).UserID, offset, limit)
	if err != nil {
		s.internalError(c, "Failed to list saved news", err)
		return
	}

	c.JSON(http.StatusOK, newsroom.SavedNewsPage{Items: items})
}

// HandleSave handles POST /saved-news.
func (s *APIServer) HandleSave(c *gin.Context) {
	var req newsroom.SaveNewsItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewsItemID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "news_item_id is required"))
		return
	}

	savedID, err := s.store.SaveItem(c.Request.Context(), currentUser(c).UserID, req.NewsItemID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "News item with ID "+req.NewsItemID+" not found"))
		return
	}
	if err != nil {
		s.internalError(c, "Failed to save news item", err)
		return
	}

	c.JSON(http.StatusOK, newsroom.SaveNewsItemResponse{SavedNewsItemID: savedID})
}

// HandleDeleteSaved handles DELETE /saved-news/{id}.
func (s *APIServer) HandleDeleteSaved(c *gin.Context) {
	savedID := c.Param("id")

	err := s.store.DeleteSaved(c.Request.Context(), currentUser(c).UserID, savedID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "Saved news item with ID "+savedID+" not found"))
		return
	}
	if err != nil {
		s.internalError(c, "Failed to delete saved news item", err)
		return
	}

	c.Status(http.StatusNoContent)
}
