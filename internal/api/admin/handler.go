package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/triage/internal/api/httperr"
	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/service"
)

const maxSearchK = 50

// Handler handles reference corpus administration
type Handler struct {
	corpusService *service.CorpusService
	defaultK      int
}

// NewHandler creates a new admin handler
func NewHandler(corpusService *service.CorpusService, defaultK int) *Handler {
	return &Handler{
		corpusService: corpusService,
		defaultK:      defaultK,
	}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	corpus := r.Group("/corpus")
	{
		corpus.GET("/stats", h.GetStats)
		corpus.POST("/seed", h.Seed)
		corpus.POST("/:corpus/entries", h.AddEntry)
		corpus.GET("/:corpus/search", h.Search)
	}
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.corpusService.Stats(c.Request.Context())
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"corpus": stats})
}

// Seed loads the bundled reference texts; ?reset=true replaces existing entries
func (h *Handler) Seed(c *gin.Context) {
	reset, _ := strconv.ParseBool(c.Query("reset"))

	stats, err := h.corpusService.Seed(c.Request.Context(), reset)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"corpus": stats, "reset": reset})
}

func (h *Handler) AddEntry(c *gin.Context) {
	corpus, err := domain.ParseCorpus(c.Param("corpus"))
	if err != nil {
		httperr.Write(c, err)
		return
	}

	var req domain.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.corpusService.AddEntry(c.Request.Context(), corpus, req.Content)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Search previews what the pipeline would retrieve for a query
func (h *Handler) Search(c *gin.Context) {
	corpus, err := domain.ParseCorpus(c.Param("corpus"))
	if err != nil {
		httperr.Write(c, err)
		return
	}

	k := h.defaultK
	if raw := c.Query("k"); raw != "" {
		k, err = strconv.Atoi(raw)
		if err != nil || k < 1 || k > maxSearchK {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer between 1 and 50"})
			return
		}
	}

	entries, err := h.corpusService.Preview(c.Request.Context(), corpus, c.Query("q"), k)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}
