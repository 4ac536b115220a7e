package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"rollcall/internal/attendance"
	"rollcall/internal/backup"
	"rollcall/internal/metrics"
	"rollcall/internal/store"
	"rollcall/internal/version"
)

// Handler binds the attendance operations to HTTP routes for the kiosk UI.
type Handler struct {
	svc     *attendance.Service
	store   *store.Store
	backups *backup.Manager
}

// New creates a handler.
func New(svc *attendance.Service, st *store.Store, backups *backup.Manager) *Handler {
	return &Handler{svc: svc, store: st, backups: backups}
}

// Register mounts all API routes on the given group.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/attendance", h.MarkAttendance)
	api.GET("/attendance", h.ListAttendance)
	api.GET("/members", h.ListMembers)
	api.POST("/members", h.CreateMember)
	api.PATCH("/members/:id", h.UpdateMember)
	api.DELETE("/members/:id", h.DeleteMember)
	api.POST("/data/wipe", h.WipeData)
	api.GET("/backup", h.ExportBackup)
	api.POST("/backup", h.ImportBackup)
	api.GET("/version", h.Version)
}

// Healthz reports liveness and whether the database answers a ping.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": true})
}

type markRequest struct {
	PrefectNumber string `json:"prefect_number" binding:"required"`
	Role          string `json:"role" binding:"required"`
}

// MarkAttendance records one attendance event for today. A repeat mark for
// the same badge on the same day is a 409 naming the badge and date.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.PrefectNumber = strings.TrimSpace(req.PrefectNumber)
	req.Role = strings.TrimSpace(req.Role)

	rec, err := h.svc.MarkAttendance(c.Request.Context(), req.PrefectNumber, req.Role)
	if err != nil {
		var dup *attendance.DuplicateAttendanceError
		if errors.As(err, &dup) {
			metrics.DuplicateMarks.Inc()
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("mark attendance for %s: %v", req.PrefectNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.Marks.WithLabelValues(rec.Status).Inc()
	c.JSON(http.StatusCreated, rec)
}

// ListAttendance returns records for ?date=YYYY-MM-DD, or the full history
// when no date is given.
func (h *Handler) ListAttendance(c *gin.Context) {
	var (
		records []attendance.Record
		err     error
	)
	if date := c.Query("date"); date != "" {
		records, err = h.svc.ListAttendanceByDate(c.Request.Context(), date)
	} else {
		records, err = h.svc.ListAllAttendance(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if members == nil {
		members = []attendance.Member{}
	}
	c.JSON(http.StatusOK, members)
}

type createMemberRequest struct {
	PrefectNumber string  `json:"prefect_number" binding:"required"`
	Role          string  `json:"role" binding:"required"`
	Name          *string `json:"name"`
}

func (h *Handler) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.CreateMember(c.Request.Context(), strings.TrimSpace(req.PrefectNumber), strings.TrimSpace(req.Role), req.Name)
	if err != nil {
		if errors.Is(err, attendance.ErrPrefectNumberTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type updateMemberRequest struct {
	PrefectNumber *string `json:"prefect_number"`
	Role          *string `json:"role"`
	Name          *string `json:"name"`
}

// UpdateMember applies the provided fields only. An unknown id changes
// nothing and still returns 204.
func (h *Handler) UpdateMember(c *gin.Context) {
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.svc.UpdateMember(c.Request.Context(), c.Param("id"), req.PrefectNumber, req.Role, req.Name)
	if err != nil {
		if errors.Is(err, attendance.ErrPrefectNumberTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteMember(c *gin.Context) {
	if err := h.svc.DeleteMember(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) WipeData(c *gin.Context) {
	if err := h.svc.WipeAllData(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportBackup returns the whole store file as a base64 blob.
func (h *Handler) ExportBackup(c *gin.Context) {
	data, err := h.backups.Export(c.Request.Context())
	if err != nil {
		log.Errorf("export backup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

type importBackupRequest struct {
	Data string `json:"data" binding:"required"`
}

// ImportBackup overwrites the store file from a base64 blob.
func (h *Handler) ImportBackup(c *gin.Context) {
	var req importBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.backups.Import(c.Request.Context(), req.Data); err != nil {
		log.Errorf("import backup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Version reports the running version and update availability.
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}
