// Package http exposes the invoice and settlement operations as a JSON API.
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paysplit/paysplit"
	"github.com/paysplit/paysplit/extract"
	"github.com/paysplit/paysplit/internal/logger"
)

// Server is the HTTP API over extraction, validation, and settlement.
type Server struct {
	engine    *gin.Engine
	orch      *paysplit.Orchestrator
	ledger    paysplit.Ledger
	extractor *extract.Service
	validator *paysplit.InvoiceValidator
	metrics   *Metrics
	log       zerolog.Logger
}

// NewServer wires the API routes. The extractor may be nil, in which case
// free-text invoice creation returns an input error.
func NewServer(orch *paysplit.Orchestrator, ledger paysplit.Ledger, extractor *extract.Service, validator *paysplit.InvoiceValidator) *Server {
	s := &Server{
		orch:      orch,
		ledger:    ledger,
		extractor: extractor,
		validator: validator,
		metrics:   NewMetrics(),
		log:       logger.WithComponent("http"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := engine.Group("/api")
	api.POST("/invoices", s.handleCreateInvoice)
	api.GET("/invoices/:id", s.handleGetInvoice)
	api.POST("/invoices/:id/authorize", s.handleAuthorize)
	api.POST("/invoices/:id/pay", s.handlePay)

	s.engine = engine
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.log.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", c.Writer.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// createInvoiceRequest accepts either free text for extraction or an
// explicit candidate invoice. Submit records the validated invoice on the
// ledger and returns its id.
type createInvoiceRequest struct {
	Text    string                     `json:"text,omitempty"`
	Invoice *paysplit.CandidateInvoice `json:"invoice,omitempty"`
	Submit  bool                       `json:"submit,omitempty"`
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, paysplit.NewInputError("invalid_request", "body", nil, "request body must be valid JSON"))
		return
	}

	var inv *paysplit.Invoice
	var err error
	switch {
	case req.Text != "":
		if s.extractor == nil {
			s.writeError(c, paysplit.NewInputError("invalid_request", "text", req.Text, "free-text extraction is not configured"))
			return
		}
		inv, err = s.extractor.ExtractInvoice(c.Request.Context(), req.Text)
		outcome := "ok"
		if err != nil {
			outcome = paysplit.CodeOf(err)
		}
		s.metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
	case req.Invoice != nil:
		inv, err = s.validator.Validate(*req.Invoice)
	default:
		err = paysplit.NewInputError("invalid_request", "body", nil, "either text or invoice is required")
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	if req.Submit {
		id, err := s.ledger.CreateInvoice(c.Request.Context(), inv)
		if err != nil {
			s.writeError(c, err)
			return
		}
		inv.ID = id
	}

	c.JSON(http.StatusCreated, inv)
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	inv, err := s.orch.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleAuthorize(c *gin.Context) {
	result, err := s.orch.Authorize(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePay(c *gin.Context) {
	result, err := s.orch.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.metrics.SettlementsTotal.WithLabelValues(paysplit.CodeOf(err)).Inc()
		s.writeError(c, err)
		return
	}
	outcome := "paid"
	if result.AlreadyPaid {
		outcome = "already_paid"
	}
	s.metrics.SettlementsTotal.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, result)
}

// errorBody is the wire shape of a failure.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Code: paysplit.CodeOf(err), Message: err.Error()}
	var typed *paysplit.Error
	if errors.As(err, &typed) {
		body.Message = typed.Message
		body.Field = typed.Field
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": body})
}

func statusFor(err error) int {
	if paysplit.CodeOf(err) == paysplit.CodeInvoiceNotFound {
		return http.StatusNotFound
	}
	switch paysplit.KindOf(err) {
	case paysplit.KindInput:
		return http.StatusBadRequest
	case paysplit.KindUpstream:
		return http.StatusBadGateway
	case paysplit.KindLedger:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
