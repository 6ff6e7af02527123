package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"mentorloop-backend/internal/common"
	"mentorloop-backend/internal/feedback"
	"mentorloop-backend/internal/models"
)

// FeedbackHandler carries the season feedback endpoints.
type FeedbackHandler struct {
	common.ServerState
	Service *feedback.Service
}

func NewFeedbackHandler(state common.ServerState, service *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{
		ServerState: state,
		Service:     service,
	}
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn mints a JWT for an existing user. User provisioning itself
// lives with the external identity collaborator.
func (h *FeedbackHandler) SignIn(c echo.Context) error {
	req := &SignInRequest{}

	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := models.GetUserByEmail(h.DB, req.Email)
	if err != nil || !u.CheckPassword(req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.JwtIssuer.GenerateToken(u.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

type InternFeedbackRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Comment    string `json:"comment" validate:"required,max=2000"`
}

func (h *FeedbackHandler) SubmitInternFeedback(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	req := new(InternFeedbackRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fb, err := h.Service.SubmitInternFeedback(c.Request().Context(), user.ID, req.ReceiverID, req.Comment)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, fb)
}

type MentorFeedbackRequest struct {
	ReceiverID    string `json:"receiver_id" validate:"required"`
	Comment       string `json:"comment" validate:"required,max=2000"`
	CareerSkills  int    `json:"career_skills" validate:"required,min=1,max=5"`
	Communication int    `json:"communication" validate:"required,min=1,max=5"`
	Collaboration int    `json:"collaboration" validate:"required,min=1,max=5"`
}

func (h *FeedbackHandler) SubmitMentorFeedback(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	req := new(MentorFeedbackRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fb, err := h.Service.SubmitMentorFeedback(c.Request().Context(), user.ID, req.ReceiverID, req.Comment,
		req.CareerSkills, req.Communication, req.Collaboration)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, fb)
}

func (h *FeedbackHandler) DeleteFeedback(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}
	if user.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin required")
	}

	if err := h.Service.DeleteFeedback(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type DeleteRequestRequest struct {
	FeedbackID string `json:"feedback_id" validate:"required"`
	Reason     string `json:"reason" validate:"max=1000"`
}

func (h *FeedbackHandler) CreateDeleteRequest(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	req := new(DeleteRequestRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	dr, err := h.Service.CreateDeleteRequest(c.Request().Context(), req.FeedbackID, user.ID, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dr)
}

func (h *FeedbackHandler) ApproveDeleteRequest(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}
	if user.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin required")
	}

	if err := h.Service.ApproveDeleteRequest(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FeedbackHandler) RejectDeleteRequest(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}
	if user.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin required")
	}

	if err := h.Service.RejectDeleteRequest(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchFeedback handles GET /feedback/search. Scoping to the caller's
// role happens in the service.
func (h *FeedbackHandler) SearchFeedback(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	ftype, ok := models.ParseFeedbackType(c.QueryParam("type"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown feedback type")
	}

	page, err := h.Service.Search(c.Request().Context(), user, feedback.SearchParams{
		SeasonID:   c.QueryParam("season_id"),
		Type:       ftype,
		SortDir:    c.QueryParam("sort_dir"),
		MonthIndex: queryInt(c, "month_index", 0),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 0),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// MonthlyAverages handles GET /seasons/:id/averages for the season's
// mentor.
func (h *FeedbackHandler) MonthlyAverages(c echo.Context) error {
	user, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	page, err := h.Service.MonthlyAverages(c.Request().Context(), user.ID, feedback.AverageParams{
		SeasonID:   c.Param("id"),
		MonthIndex: queryInt(c, "month_index", 1),
		SortBy:     c.QueryParam("sort_by"),
		SortDir:    c.QueryParam("sort_dir"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 0),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// SeasonMonthSpans handles GET /seasons/:id/months. With ?progress=true
// the spans are the live-progress view clipped to now.
func (h *FeedbackHandler) SeasonMonthSpans(c echo.Context) error {
	_, isAuthenticated := h.getAuthenticatedUserFromJWT(c)
	if !isAuthenticated {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	season, err := models.GetSeasonByID(h.DB, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if season == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Season not found")
	}

	if c.QueryParam("progress") == "true" {
		return c.JSON(http.StatusOK, season.ProgressSpans(time.Now()))
	}
	spans := season.MonthSpans()
	if spans == nil {
		spans = []models.MonthSpan{}
	}
	return c.JSON(http.StatusOK, spans)
}

// GenerateDebugToken mints a JWT for a given email. Only routed when
// debug endpoints are enabled.
func (h *FeedbackHandler) GenerateDebugToken(c echo.Context) error {
	email := c.QueryParam("email")

	var user models.User
	result := h.DB.Where("email = ?", email).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	token, err := h.JwtIssuer.GenerateToken(user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"email": user.Email,
		"token": token,
	})
}
