package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tverlinden/sla-service/internal/document"
	"github.com/tverlinden/sla-service/internal/excel"
	"github.com/tverlinden/sla-service/internal/http/middleware"
	"github.com/tverlinden/sla-service/internal/model"
	"github.com/tverlinden/sla-service/internal/pdf"
	"github.com/tverlinden/sla-service/internal/repository"
	"github.com/tverlinden/sla-service/internal/service"
)

type Handler struct {
	contracts      *service.ContractService
	checklists     *service.ChecklistService
	sessions       *service.SessionManager
	reconciliation *service.ReconciliationService
	pdf            *pdf.Generator
	excel          *excel.Generator
	companyName    string
	log            zerolog.Logger
}

func NewHandler(
	contracts *service.ContractService,
	checklists *service.ChecklistService,
	sessions *service.SessionManager,
	reconciliation *service.ReconciliationService,
	pdfGen *pdf.Generator,
	excelGen *excel.Generator,
	companyName string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		contracts:      contracts,
		checklists:     checklists,
		sessions:       sessions,
		reconciliation: reconciliation,
		pdf:            pdfGen,
		excel:          excelGen,
		companyName:    companyName,
		log:            log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/contracts", h.listContracts)
	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts/:id", h.getContract)
	protected.PUT("/contracts/:id", h.updateContract)
	protected.DELETE("/contracts/:id", h.deleteContract)

	protected.POST("/contracts/:id/checklist/import", h.importChecklist)
	protected.GET("/contracts/:id/checklist", h.listChecklist)
	protected.DELETE("/contracts/:id/checklist", h.wipeChecklist)

	protected.POST("/contracts/:id/execution", h.openExecution)
	protected.PUT("/contracts/:id/execution", h.checkpointExecution)
	protected.POST("/contracts/:id/execution/request-signoff", h.requestSignoff)
	protected.POST("/contracts/:id/execution/finalize", h.finalizeExecution)
	protected.DELETE("/contracts/:id/execution", h.abandonExecution)

	protected.GET("/contracts/:id/workorder.pdf", h.workOrderPDF)

	protected.POST("/contracts/:id/reconciliation", h.commitReconciliation)
	protected.DELETE("/contracts/:id/reconciliation", h.revertReconciliation)
	protected.GET("/reconciliation/export.xlsx", h.exportReconciliation)

	protected.POST("/admin/service-year", h.startServiceYear)
}

type contractRequest struct {
	Category     string             `json:"category" binding:"required"`
	ClientName   string             `json:"client_name" binding:"required"`
	Location     string             `json:"location"`
	City         string             `json:"city"`
	ContactName  string             `json:"contact_name"`
	ContactPhone string             `json:"contact_phone"`
	ContactEmail string             `json:"contact_email"`
	Lat          float64            `json:"lat"`
	Lng          float64            `json:"lng"`
	PlannedMonth int                `json:"planned_month" binding:"required"`
	VONumber     *string            `json:"vo_number"`
	Price        float64            `json:"price"`
	HoursPlanned float64            `json:"hours_planned"`
	Comments     string             `json:"comments"`
	Attachments  []model.Attachment `json:"attachments"`
}

func (r contractRequest) toModel() model.ServiceContract {
	return model.ServiceContract{
		Category:     model.Category(strings.ToUpper(strings.TrimSpace(r.Category))),
		ClientName:   r.ClientName,
		Location:     r.Location,
		City:         r.City,
		ContactName:  r.ContactName,
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
		Lat:          r.Lat,
		Lng:          r.Lng,
		PlannedMonth: r.PlannedMonth,
		VONumber:     r.VONumber,
		Price:        r.Price,
		HoursPlanned: r.HoursPlanned,
		Comments:     r.Comments,
		Attachments:  r.Attachments,
	}
}

func (h *Handler) listContracts(c *gin.Context) {
	var filter repository.ContractFilter
	if raw := c.Query("category"); raw != "" {
		category := model.Category(strings.ToUpper(strings.TrimSpace(raw)))
		if !category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
		filter.Category = &category
	}
	if raw := c.Query("executed"); raw != "" {
		executed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid executed flag"})
			return
		}
		filter.Executed = &executed
	}

	contracts, err := h.contracts.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.contracts.Create(c.Request.Context(), principal, req.toModel())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		contractRequest
		ExpectedUpdate *time.Time `json:"expected_update"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract := req.toModel()
	contract.ID = id
	var expected time.Time
	if req.ExpectedUpdate != nil {
		expected = *req.ExpectedUpdate
	}

	if err := h.contracts.Update(c.Request.Context(), principal, contract, expected); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) deleteContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.contracts.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type importRequest struct {
	Rows [][]string `json:"rows" binding:"required"`
}

func (h *Handler) importChecklist(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imported, err := h.checklists.ImportBulk(c.Request.Context(), principal, id, req.Rows)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

func (h *Handler) listChecklist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	items, err := h.checklists.List(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) wipeChecklist(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	// The wipe is irreversible; the caller must confirm explicitly.
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm=true is required"})
		return
	}
	deleted, err := h.checklists.Wipe(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

type sessionResponse struct {
	Stage      service.SessionStage  `json:"stage"`
	Items      []model.ChecklistItem `json:"items"`
	Comments   string                `json:"comments"`
	Report     string                `json:"report"`
	Unreviewed int                   `json:"unreviewed"`
}

func sessionToResponse(session *service.ExecutionSession) sessionResponse {
	return sessionResponse{
		Stage:      session.Stage(),
		Items:      session.Items(),
		Comments:   session.Comments(),
		Report:     session.Report(),
		Unreviewed: session.UnreviewedCount(),
	}
}

func (h *Handler) openExecution(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	session, err := h.sessions.Open(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session))
}

type checkpointRequest struct {
	Comments *string        `json:"comments"`
	Report   *string        `json:"report"`
	Items    []itemMutation `json:"items"`
}

type itemMutation struct {
	ID            uuid.UUID `json:"id" binding:"required"`
	CheckBattery  *bool     `json:"check_battery"`
	CheckRights   *bool     `json:"check_rights"`
	CheckFirmware *bool     `json:"check_firmware"`
	Remark        *string   `json:"remark"`
}

func (h *Handler) checkpointExecution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	session, found := h.sessions.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no execution session for contract"})
		return
	}

	var req checkpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := applyMutations(session, req); err != nil {
		h.handleError(c, err)
		return
	}
	if err := session.Checkpoint(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session))
}

func applyMutations(session *service.ExecutionSession, req checkpointRequest) error {
	if req.Comments != nil {
		if err := session.SetComments(*req.Comments); err != nil {
			return err
		}
	}
	if req.Report != nil {
		if err := session.SetReport(*req.Report); err != nil {
			return err
		}
	}
	for _, mutation := range req.Items {
		if mutation.CheckBattery != nil {
			if err := session.UpdateCheck(mutation.ID, model.CheckBattery, *mutation.CheckBattery); err != nil {
				return err
			}
		}
		if mutation.CheckRights != nil {
			if err := session.UpdateCheck(mutation.ID, model.CheckRights, *mutation.CheckRights); err != nil {
				return err
			}
		}
		if mutation.CheckFirmware != nil {
			if err := session.UpdateCheck(mutation.ID, model.CheckFirmware, *mutation.CheckFirmware); err != nil {
				return err
			}
		}
		if mutation.Remark != nil {
			if err := session.SetRemark(mutation.ID, *mutation.Remark); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) requestSignoff(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	session, found := h.sessions.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no execution session for contract"})
		return
	}

	var req checkpointRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := applyMutations(session, req); err != nil {
			h.handleError(c, err)
			return
		}
	}

	if err := session.RequestSignoff(); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session))
}

type finalizeRequest struct {
	SignerName   string `json:"signer_name"`
	SignaturePNG string `json:"signature_png"`
}

func (h *Handler) finalizeExecution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	session, found := h.sessions.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no execution session for contract"})
		return
	}

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var signature []byte
	if req.SignaturePNG != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.SignaturePNG)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature encoding"})
			return
		}
		signature = decoded
	}

	doc, err := session.Finalize(c.Request.Context(), req.SignerName, signature)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.sessions.Release(id)
	c.JSON(http.StatusOK, gin.H{"stage": service.StageCompleted, "work_order": doc})
}

func (h *Handler) abandonExecution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	session, found := h.sessions.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no execution session for contract"})
		return
	}
	if err := session.Abandon(); err != nil {
		h.handleError(c, err)
		return
	}
	h.sessions.Release(id)
	c.JSON(http.StatusOK, gin.H{"stage": service.StageAbandoned})
}

func (h *Handler) workOrderPDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !contract.IsExecuted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract is not executed"})
		return
	}

	var items []model.ChecklistItem
	if contract.Category.BodyKind() == model.BodyChecklist {
		items, err = h.checklists.List(c.Request.Context(), id)
		if err != nil {
			h.handleError(c, err)
			return
		}
	}

	doc := document.Generate(h.companyName, contract.ServiceContract, items, time.Now())
	content, err := h.pdf.Generate(doc)
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := "workorder-" + id.String() + ".pdf"
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

type commitRequest struct {
	ActualHours *float64 `json:"actual_hours"`
}

func (h *Handler) commitReconciliation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ActualHours == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actual_hours is required"})
		return
	}

	result, err := h.reconciliation.Commit(c.Request.Context(), principal, id, *req.ActualHours)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result.Class, "note": result.Note})
}

func (h *Handler) revertReconciliation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.reconciliation.Revert(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverted": true})
}

func (h *Handler) exportReconciliation(c *gin.Context) {
	pending, err := h.reconciliation.Pending(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	completed, err := h.reconciliation.Completed(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	content, err := h.excel.Generate(pending, completed)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\"reconciliation.xlsx\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handler) startServiceYear(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm=true is required"})
		return
	}
	reset, err := h.contracts.StartServiceYear(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": reset})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrImport):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStaleWrite), errors.Is(err, service.ErrSessionState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPersistence):
		// Retryable: the caller decides whether to retry, never this layer.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return uuid.Nil, false
	}
	return id, true
}
