// Package api exposes the mail store over HTTP: JSON queries, deletion, raw
// source and attachment downloads, and live WebSocket/SSE feeds.
package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailsink/internal/constants"
	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
	"mailsink/internal/notifier"
	"mailsink/internal/query"
	"mailsink/pkg/errors"
)

// Store is the part of mailstore.Store the handlers use.
type Store interface {
	Snapshot() []mailstore.Record
	Observe(fn func(snapshot []mailstore.Record))
	Remove(id uint64) (mailstore.Record, bool)
	Clear() int
	Size() int
	Max() int
}

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.InfowCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

type Options struct {
	SMTPAddr  string
	Whitelist []string
	// WriteTimeout bounds a single live-feed write.
	WriteTimeout time.Duration
	// PingInterval is the WebSocket keepalive period.
	PingInterval time.Duration
}

type Handler struct {
	BaseHandler
	store  Store
	engine *query.Engine
	hub    *notifier.Hub
	opts   Options
}

func NewHandler(store Store, engine *query.Engine, hub *notifier.Hub, opts Options, log logger.Logger) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		store:       store,
		engine:      engine,
		hub:         hub,
		opts:        opts,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	api := router.Group(constants.APIPrefix)
	{
		emails := api.Group("/emails")
		{
			emails.GET("", h.ListEmails)
			emails.DELETE("", h.ClearEmails)
			emails.GET("/:id", h.GetEmail)
			emails.DELETE("/:id", h.DeleteEmail)
			emails.GET("/:id/raw", h.GetRawEmail)
			emails.GET("/:id/attachments/:index", h.GetAttachment)
		}

		api.GET("/info", h.Info)
		api.GET("/ws", h.WebSocket)
		api.GET("/events", h.Events)
	}
}

type ListResponse struct {
	Total  int                `json:"total"`
	Limit  *int               `json:"limit"`
	Offset int                `json:"offset"`
	Emails []mailstore.Record `json:"emails"`
}

type DeleteResponse struct {
	Success bool             `json:"success"`
	Email   mailstore.Record `json:"email"`
}

type ClearResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

type InfoResponse struct {
	Service     string   `json:"service"`
	Max         int      `json:"max"`
	Size        int      `json:"size"`
	SMTPAddr    string   `json:"smtp_addr"`
	Whitelist   []string `json:"whitelist"`
	Subscribers int      `json:"subscribers"`
}

// ListEmails godoc
// @Summary      List captured emails
// @Description  Filter the captured emails by sender, recipient, subject or a CEL expression and return one page, oldest first
// @Tags         emails
// @Produce      json
// @Param        from     query     string  false  "Case-insensitive substring of the sender"
// @Param        to       query     string  false  "Case-insensitive substring of the recipient list"
// @Param        subject  query     string  false  "Case-insensitive substring of the subject"
// @Param        expr     query     string  false  "CEL boolean expression"
// @Param        limit    query     int     false  "Page size; all remaining when omitted"
// @Param        offset   query     int     false  "Page start"
// @Success      200      {object}  ListResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /emails [get]
func (h *Handler) ListEmails(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	criteria := query.Criteria{
		From:       c.Query("from"),
		To:         c.Query("to"),
		Subject:    c.Query("subject"),
		Expression: c.Query("expr"),
	}

	result, err := h.engine.Run(c.Request.Context(), h.store.Snapshot(), criteria, page)
	if err != nil {
		h.HandleError(c, queryError(err))
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
		Emails: result.Emails,
	})
}

// GetEmail godoc
// @Summary      Get an email by ID
// @Tags         emails
// @Produce      json
// @Param        id   path      int  true  "Email ID"
// @Success      200  {object}  mailstore.Record
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /emails/{id} [get]
func (h *Handler) GetEmail(c *gin.Context) {
	rec, err := h.lookup(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetRawEmail godoc
// @Summary      Download the raw message source
// @Description  Only available when the server retains raw payloads
// @Tags         emails
// @Produce      plain
// @Param        id   path      int  true  "Email ID"
// @Success      200  {string}  string
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /emails/{id}/raw [get]
func (h *Handler) GetRawEmail(c *gin.Context) {
	rec, err := h.lookup(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rec.Raw == nil {
		h.HandleError(c, errors.ErrNotFound.WithDetail("message", "raw source not retained"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%d.eml"`, rec.ID))
	c.Data(http.StatusOK, constants.ContentTypeRFC822, rec.Raw)
}

// GetAttachment godoc
// @Summary      Download an attachment
// @Description  Only available when the server retains attachment content
// @Tags         emails
// @Produce      octet-stream
// @Param        id     path      int  true  "Email ID"
// @Param        index  path      int  true  "Zero-based attachment index"
// @Success      200    {string}  string
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Router       /emails/{id}/attachments/{index} [get]
func (h *Handler) GetAttachment(c *gin.Context) {
	rec, err := h.lookup(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		h.HandleError(c, errors.ErrValidation.WithDetail("field", "index").WithCause(err))
		return
	}
	if index >= len(rec.Attachments) {
		h.HandleError(c, errors.ErrNotFound.WithDetail("message", "attachment not found"))
		return
	}

	att := rec.Attachments[index]
	if att.Content == nil {
		h.HandleError(c, errors.ErrNotFound.WithDetail("message", "attachment content not retained"))
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = constants.ContentTypeOctetStream
	}
	if att.Filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
	}
	c.Data(http.StatusOK, contentType, att.Content)
}

// DeleteEmail godoc
// @Summary      Delete an email
// @Tags         emails
// @Produce      json
// @Param        id   path      int  true  "Email ID"
// @Success      200  {object}  DeleteResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /emails/{id} [delete]
func (h *Handler) DeleteEmail(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	rec, ok := h.store.Remove(id)
	if !ok {
		h.HandleError(c, errors.ErrNotFound.WithDetail("id", id))
		return
	}

	h.Logger.InfowCtx(c.Request.Context(), "Email deleted", "email_id", id)
	c.JSON(http.StatusOK, DeleteResponse{Success: true, Email: rec})
}

// ClearEmails godoc
// @Summary      Delete every email
// @Tags         emails
// @Produce      json
// @Success      200  {object}  ClearResponse
// @Router       /emails [delete]
func (h *Handler) ClearEmails(c *gin.Context) {
	n := h.store.Clear()
	h.Logger.InfowCtx(c.Request.Context(), "Emails cleared", "deleted", n)
	c.JSON(http.StatusOK, ClearResponse{Success: true, Deleted: n})
}

// Info godoc
// @Summary      Server information
// @Description  Store capacity and fill level, SMTP address and sender whitelist
// @Tags         info
// @Produce      json
// @Success      200  {object}  InfoResponse
// @Router       /info [get]
func (h *Handler) Info(c *gin.Context) {
	whitelist := h.opts.Whitelist
	if whitelist == nil {
		whitelist = []string{}
	}
	c.JSON(http.StatusOK, InfoResponse{
		Service:     constants.ServiceName,
		Max:         h.store.Max(),
		Size:        h.store.Size(),
		SMTPAddr:    h.opts.SMTPAddr,
		Whitelist:   whitelist,
		Subscribers: h.hub.Len(),
	})
}

func (h *Handler) lookup(c *gin.Context) (mailstore.Record, error) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return mailstore.Record{}, err
	}

	rec, ok := query.Find(h.store.Snapshot(), id)
	if !ok {
		return mailstore.Record{}, errors.ErrNotFound.WithDetail("id", id)
	}
	return rec, nil
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.ErrValidation.WithDetail("field", "id").WithCause(err)
	}
	return id, nil
}

func parsePage(c *gin.Context) (query.Page, error) {
	var page query.Page

	if raw, ok := c.GetQuery("limit"); ok && raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.ErrValidation.WithDetail("field", "limit").WithCause(err)
		}
		page.Limit = &limit
	}

	if raw, ok := c.GetQuery("offset"); ok && raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.ErrValidation.WithDetail("field", "offset").WithCause(err)
		}
		page.Offset = offset
	}

	if err := page.Validate(); err != nil {
		return page, errors.ErrValidation.WithDetail("message", err.Error())
	}
	return page, nil
}

func queryError(err error) error {
	var exprErr *query.InvalidExpressionError
	if stderrors.As(err, &exprErr) {
		return errors.ErrValidation.
			WithDetail("field", "expr").
			WithDetail("message", exprErr.Error())
	}
	return errors.ErrValidation.WithCause(err)
}
