package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	"github.com/detrash/recy-pipeline/src/utils/task"

	"github.com/gin-gonic/gin"
)

// REST server exposing the report and audit endpoints
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	monitor monitoring.Monitor
	reports *ReportService
	audits  *AuditService
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "rest-server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	self.Router = gin.New()
	self.Router.Use(gin.Recovery())

	v1 := self.Router.Group("v1")
	{
		v1.POST("reports", self.onCreateReport)
		v1.GET("reports/:id", self.onGetReport)
		v1.GET("users/:id/reports", self.onListUserReports)
		v1.POST("audits", self.onCreateAudit)
		v1.GET("audits/:id", self.onGetAudit)
		v1.PUT("audits/:id", self.onValidateAudit)
	}

	self.httpServer = &http.Server{
		Addr:         self.Config.Api.ListenAddress,
		Handler:      self.Router,
		ReadTimeout:  self.Config.Api.ReadTimeout,
		WriteTimeout: self.Config.Api.WriteTimeout,
	}

	return
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

func (self *Server) WithReportService(reports *ReportService) *Server {
	self.reports = reports
	return self
}

func (self *Server) WithAuditService(audits *AuditService) *Server {
	self.audits = audits
	return self
}

func (self *Server) run() (err error) {
	if self.Config.IsDevelopment {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}

// Maps service errors onto HTTP status codes and bumps the error counters
func (self *Server) abort(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		self.monitor.GetReport().Api.Errors.NotFound.Inc()
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrValidation):
		self.monitor.GetReport().Api.Errors.BadRequest.Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		self.monitor.GetReport().Api.Errors.Internal.Inc()
		self.Log.WithError(err).Error("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (self *Server) onCreateReport(c *gin.Context) {
	var request CreateReportRequest
	err := c.ShouldBindJSON(&request)
	if err != nil {
		self.abort(c, invalid("%s", err.Error()))
		return
	}

	report, err := self.reports.CreateReport(c.Request.Context(), &request)
	if err != nil {
		self.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (self *Server) onGetReport(c *gin.Context) {
	report, err := self.reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		self.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (self *Server) onListUserReports(c *gin.Context) {
	reports, err := self.reports.ListReportsByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		self.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (self *Server) onCreateAudit(c *gin.Context) {
	var request CreateAuditRequest
	err := c.ShouldBindJSON(&request)
	if err != nil {
		self.abort(c, invalid("%s", err.Error()))
		return
	}

	audit, err := self.audits.CreateAudit(c.Request.Context(), &request)
	if err != nil {
		self.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, audit)
}

func (self *Server) onGetAudit(c *gin.Context) {
	audit, err := self.audits.GetAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		self.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}

func (self *Server) onValidateAudit(c *gin.Context) {
	var request ValidateAuditRequest
	err := c.ShouldBindJSON(&request)
	if err != nil {
		self.abort(c, invalid("%s", err.Error()))
		return
	}

	audit, err := self.audits.ValidateAudit(c.Request.Context(), c.Param("id"), &request)
	if err != nil {
		self.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
