package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zahraAghaee77/School-Management-API/internal/models"
	"github.com/zahraAghaee77/School-Management-API/internal/service"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
	"github.com/zahraAghaee77/School-Management-API/pkg/response"
)

// SchoolHandler exposes school endpoints.
type SchoolHandler struct {
	schools *service.SchoolService
	actors  *ActorResolver
}

// NewSchoolHandler constructs SchoolHandler.
func NewSchoolHandler(schools *service.SchoolService, actors *ActorResolver) *SchoolHandler {
	return &SchoolHandler{schools: schools, actors: actors}
}

// Create godoc
// @Summary Create school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body models.CreateSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	var req models.CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// Update godoc
// @Summary Update school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body models.UpdateSchoolRequest true "School payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [put]
func (h *SchoolHandler) Update(c *gin.Context) {
	var req models.UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Delete godoc
// @Summary Delete school
// @Tags Schools
// @Param id path string true "School ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	if err := h.schools.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get school detail
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	school, err := h.schools.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// List godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.SchoolFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	schools, pagination, err := h.schools.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// Nearby godoc
// @Summary Find nearby schools
// @Description Schools within a radius of a point, ordered by distance
// @Tags Schools
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius query number false "Radius in km"
// @Param limit query int false "Maximum results"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools/nearby [get]
func (h *SchoolHandler) Nearby(c *gin.Context) {
	var req models.NearbySchoolsRequest
	var err error
	if req.Latitude, err = strconv.ParseFloat(c.Query("lat"), 64); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lat must be a number"))
		return
	}
	if req.Longitude, err = strconv.ParseFloat(c.Query("lon"), 64); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lon must be a number"))
		return
	}
	if req.RadiusKM, err = strconv.ParseFloat(c.DefaultQuery("radius", "10"), 64); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "radius must be a number"))
		return
	}
	if req.Limit, err = strconv.Atoi(c.DefaultQuery("limit", "20")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
		return
	}

	schools, err := h.schools.Nearby(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// ListTeachers godoc
// @Summary List school teachers
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{id}/teachers [get]
func (h *SchoolHandler) ListTeachers(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teachers, err := h.schools.ListTeachers(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// ListStudents godoc
// @Summary List school students
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{id}/students [get]
func (h *SchoolHandler) ListStudents(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.schools.ListStudents(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ListClasses godoc
// @Summary List school classes
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{id}/classes [get]
func (h *SchoolHandler) ListClasses(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	classes, err := h.schools.ListClasses(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// ListLessons godoc
// @Summary List school lessons
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{id}/lessons [get]
func (h *SchoolHandler) ListLessons(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	lessons, err := h.schools.ListLessons(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}
