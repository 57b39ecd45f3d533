// Package marketplace provides the REST API for the fulfillment engine:
// account registration, campaign creation, tester matching, submission
// settlement, and dashboard reads.
package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/accounts"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/campaign"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/matcher"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/settlement"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/summary"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// AccountsService interface for account operations.
type AccountsService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update accounts.ProfileUpdate) (*models.User, error)
}

// CampaignService interface for creator-side operations.
type CampaignService interface {
	CreateTest(ctx context.Context, in campaign.CreateInput) (*models.Test, error)
	GetTest(ctx context.Context, id string) (*models.Test, error)
	ListForCreator(ctx context.Context, creatorID string) ([]models.Test, error)
	ResultsForTest(ctx context.Context, testID, creatorID string) ([]models.TestResult, error)
}

// MatcherService interface for tester eligibility.
type MatcherService interface {
	AvailableTests(ctx context.Context, testerID string) ([]models.Test, error)
}

// SettlementService interface for submission settlement.
type SettlementService interface {
	Settle(ctx context.Context, in settlement.Input) (*models.TestResult, error)
}

// SummaryService interface for dashboard aggregation.
type SummaryService interface {
	Summarize(ctx context.Context, testID string) (*summary.TestSummary, error)
}

// Handler handles marketplace API requests.
type Handler struct {
	accounts   AccountsService
	campaigns  CampaignService
	matcher    MatcherService
	settlement SettlementService
	summaries  SummaryService
	log        *logger.Logger
}

// NewHandler creates a new marketplace handler.
func NewHandler(
	accountsSvc *accounts.Service,
	campaignSvc *campaign.Service,
	matcherSvc *matcher.Service,
	settlementSvc *settlement.Service,
	summarySvc *summary.Service,
	log *logger.Logger,
) *Handler {
	return &Handler{
		accounts:   accountsSvc,
		campaigns:  campaignSvc,
		matcher:    matcherSvc,
		settlement: settlementSvc,
		summaries:  summarySvc,
		log:        log,
	}
}

// NewHandlerWithInterfaces creates a handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	accountsSvc AccountsService,
	campaignSvc CampaignService,
	matcherSvc MatcherService,
	settlementSvc SettlementService,
	summarySvc SummaryService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		accounts:   accountsSvc,
		campaigns:  campaignSvc,
		matcher:    matcherSvc,
		settlement: settlementSvc,
		summaries:  summarySvc,
		log:        log,
	}
}

// RegisterRoutes mounts the API on a gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/users", h.RegisterUser)
		v1.GET("/users/:id", h.GetUser)
		v1.PATCH("/users/:id", h.UpdateUser)

		v1.POST("/tests", h.CreateTest)
		v1.GET("/tests/:id", h.GetTest)
		v1.GET("/tests/:id/results", h.GetTestResults)
		v1.GET("/tests/:id/summary", h.GetTestSummary)
		v1.POST("/tests/:id/results", h.SubmitResult)

		v1.GET("/creators/:id/tests", h.GetCreatorTests)
		v1.GET("/testers/:id/available-tests", h.GetAvailableTests)
	}
}

type registerRequest struct {
	Email       string            `json:"email" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	Role        models.Role       `json:"role" binding:"required"`
	Interests   []models.Category `json:"interests"`
	CompanyName string            `json:"company_name"`
	Age         *int              `json:"age"`
	Gender      string            `json:"gender"`
}

// RegisterUser creates an account.
// POST /api/v1/users.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), accounts.RegisterInput{
		Email:       req.Email,
		Name:        req.Name,
		Role:        req.Role,
		Interests:   req.Interests,
		CompanyName: req.CompanyName,
		Age:         req.Age,
		Gender:      req.Gender,
	})
	if err != nil {
		h.mapError(c, err, "Failed to register user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUser returns an account.
// GET /api/v1/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err, "Failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	Name        *string            `json:"name"`
	Interests   *[]models.Category `json:"interests"`
	CompanyName *string            `json:"company_name"`
	Age         *int               `json:"age"`
	Gender      *string            `json:"gender"`
}

// UpdateUser applies a partial profile edit.
// PATCH /api/v1/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), c.Param("id"), accounts.ProfileUpdate{
		Name:        req.Name,
		Interests:   req.Interests,
		CompanyName: req.CompanyName,
		Age:         req.Age,
		Gender:      req.Gender,
	})
	if err != nil {
		h.mapError(c, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

type createTestRequest struct {
	CreatorID      string                `json:"creator_id" binding:"required"`
	Category       models.Category       `json:"category" binding:"required"`
	Title          string                `json:"title" binding:"required"`
	ProductURL     string                `json:"product_url" binding:"required"`
	Description    string                `json:"description"`
	Instructions   string                `json:"instructions"`
	PackageSize    int                   `json:"package_size" binding:"required"`
	TargetAudience models.TargetAudience `json:"target_audience"`
}

// CreateTest creates a campaign. The caller confirms payment capture first.
// POST /api/v1/tests.
func (h *Handler) CreateTest(c *gin.Context) {
	var req createTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	test, err := h.campaigns.CreateTest(c.Request.Context(), campaign.CreateInput{
		CreatorID:      req.CreatorID,
		Category:       req.Category,
		Title:          req.Title,
		ProductURL:     req.ProductURL,
		Description:    req.Description,
		Instructions:   req.Instructions,
		PackageSize:    req.PackageSize,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		h.mapError(c, err, "Failed to create test")
		return
	}
	c.JSON(http.StatusCreated, test)
}

// GetTest returns a campaign.
// GET /api/v1/tests/:id.
func (h *Handler) GetTest(c *gin.Context) {
	test, err := h.campaigns.GetTest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err, "Failed to get test")
		return
	}
	c.JSON(http.StatusOK, test)
}

// GetCreatorTests lists a creator's campaigns.
// GET /api/v1/creators/:id/tests.
func (h *Handler) GetCreatorTests(c *gin.Context) {
	tests, err := h.campaigns.ListForCreator(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err, "Failed to list creator tests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests, "total": len(tests)})
}

// GetAvailableTests lists the campaigns a tester may take.
// GET /api/v1/testers/:id/available-tests.
func (h *Handler) GetAvailableTests(c *gin.Context) {
	tests, err := h.matcher.AvailableTests(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err, "Failed to list available tests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests, "total": len(tests)})
}

type submitResultRequest struct {
	TesterID   string         `json:"tester_id" binding:"required"`
	TesterName string         `json:"tester_name" binding:"required"`
	Ratings    models.Ratings `json:"ratings" binding:"required"`
	Feedback   string         `json:"feedback"`
}

// SubmitResult settles a submission.
// POST /api/v1/tests/:id/results.
func (h *Handler) SubmitResult(c *gin.Context) {
	var req submitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.settlement.Settle(c.Request.Context(), settlement.Input{
		TestID:     c.Param("id"),
		TesterID:   req.TesterID,
		TesterName: req.TesterName,
		Ratings:    req.Ratings,
		Feedback:   req.Feedback,
	})
	if err != nil {
		h.mapError(c, err, "Failed to settle submission")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetTestResults lists raw results for the owning creator.
// GET /api/v1/tests/:id/results?creator_id=...
func (h *Handler) GetTestResults(c *gin.Context) {
	creatorID := c.Query("creator_id")
	if creatorID == "" {
		h.errorResponse(c, http.StatusBadRequest, "creator_id query parameter is required")
		return
	}

	results, err := h.campaigns.ResultsForTest(c.Request.Context(), c.Param("id"), creatorID)
	if err != nil {
		h.mapError(c, err, "Failed to list test results")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// GetTestSummary returns per-criterion statistics.
// GET /api/v1/tests/:id/summary.
func (h *Handler) GetTestSummary(c *gin.Context) {
	s, err := h.summaries.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err, "Failed to summarize test")
		return
	}
	c.JSON(http.StatusOK, s)
}

// mapError translates the engine's error taxonomy to HTTP statuses. Every
// error surfaces verbatim enough for the UI to show an actionable message.
func (h *Handler) mapError(c *gin.Context, err error, logMsg string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		h.errorResponse(c, http.StatusBadRequest, ve.Error())
	case errors.Is(err, models.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrDuplicateSubmission):
		h.errorResponse(c, http.StatusConflict, "you already completed this test")
	case errors.Is(err, models.ErrTestNotAvailable):
		h.errorResponse(c, http.StatusConflict, "this test is no longer accepting submissions")
	case errors.Is(err, models.ErrTransientConflict):
		h.errorResponse(c, http.StatusServiceUnavailable, "temporary contention, please retry")
	default:
		h.log.Error().Err(err).Msg(logMsg)
		h.errorResponse(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}
