package intake

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/triage/internal/api/httperr"
	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/service"
)

// Handler serves the patient-facing intake and pipeline endpoints
type Handler struct {
	intakeService   *service.IntakeService
	pipelineService *service.PipelineService
}

// NewHandler creates a new intake handler
func NewHandler(intakeService *service.IntakeService, pipelineService *service.PipelineService) *Handler {
	return &Handler{
		intakeService:   intakeService,
		pipelineService: pipelineService,
	}
}

// RegisterRoutes registers intake routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/session", h.CreateSession)
	r.GET("/session/:id", h.GetSession)
	r.POST("/chat", h.Chat)
	r.POST("/process", h.Process)
	r.GET("/result/:job_id", h.GetResult)
}

// CreateSession starts a new intake session
func (h *Handler) CreateSession(c *gin.Context) {
	resp, err := h.intakeService.Create(c.Request.Context())
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession returns the progress of a session
func (h *Handler) GetSession(c *gin.Context) {
	summary, err := h.intakeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Chat feeds one patient message to the session
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.intakeService.Advance(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Process submits a completed session to the triage pipeline
func (h *Handler) Process(c *gin.Context) {
	var req domain.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := h.pipelineService.Submit(c.Request.Context(), req.SessionID)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusAccepted, domain.ProcessResponse{
		Status: "processing",
		JobID:  jobID,
	})
}

// GetResult returns the state of a pipeline job
func (h *Handler) GetResult(c *gin.Context) {
	job, err := h.pipelineService.Poll(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.ResultResponse{
		Status:    job.Status,
		Stage:     job.Stage,
		Result:    job.Result,
		Error:     job.Error,
		ErrorKind: job.ErrorKind,
	})
}
