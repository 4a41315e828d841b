package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zahraAghaee77/School-Management-API/internal/models"
	"github.com/zahraAghaee77/School-Management-API/internal/service"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
	"github.com/zahraAghaee77/School-Management-API/pkg/response"
)

// SolutionHandler exposes solution endpoints.
type SolutionHandler struct {
	solutions *service.SolutionService
	actors    *ActorResolver
}

// NewSolutionHandler constructs SolutionHandler.
func NewSolutionHandler(solutions *service.SolutionService, actors *ActorResolver) *SolutionHandler {
	return &SolutionHandler{solutions: solutions, actors: actors}
}

// Submit godoc
// @Summary Submit solution
// @Description Submit or resubmit a solution for an open assignment
// @Tags Solutions
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.SubmitSolutionRequest true "Solution payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/solutions [post]
func (h *SolutionHandler) Submit(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.SubmitSolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	solution, err := h.solutions.Submit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, solution)
}

// Update godoc
// @Summary Update solution
// @Description Edit an own solution while the assignment is open
// @Tags Solutions
// @Accept json
// @Produce json
// @Param id path string true "Solution ID"
// @Param payload body models.SubmitSolutionRequest true "Solution payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /solutions/{id} [put]
func (h *SolutionHandler) Update(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.SubmitSolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	solution, err := h.solutions.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solution, nil)
}

// Grade godoc
// @Summary Grade solution
// @Description Grade a solution once the assignment deadline has passed
// @Tags Solutions
// @Accept json
// @Produce json
// @Param id path string true "Solution ID"
// @Param payload body models.GradeSolutionRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /solutions/{id}/grade [post]
func (h *SolutionHandler) Grade(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.GradeSolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	solution, err := h.solutions.Grade(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solution, nil)
}

// Get godoc
// @Summary Get solution detail
// @Tags Solutions
// @Produce json
// @Param id path string true "Solution ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /solutions/{id} [get]
func (h *SolutionHandler) Get(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	solution, err := h.solutions.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solution, nil)
}

// ListByAssignment godoc
// @Summary List assignment solutions
// @Description All submissions of an assignment for its class teacher
// @Tags Solutions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments/{id}/solutions [get]
func (h *SolutionHandler) ListByAssignment(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	solutions, err := h.solutions.ListByAssignment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solutions, nil)
}

// List godoc
// @Summary List solutions
// @Tags Solutions
// @Produce json
// @Param assignmentId query string false "Filter by assignment"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /solutions [get]
func (h *SolutionHandler) List(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.SolutionFilter
	filter.AssignmentID = c.Query("assignmentId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	solutions, pagination, err := h.solutions.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solutions, pagination)
}
