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

// NewsHandler exposes announcement endpoints.
type NewsHandler struct {
	news   *service.NewsService
	actors *ActorResolver
}

// NewNewsHandler constructs NewsHandler.
func NewNewsHandler(news *service.NewsService, actors *ActorResolver) *NewsHandler {
	return &NewsHandler{news: news, actors: actors}
}

// Create godoc
// @Summary Post announcement
// @Description Post an announcement to exactly one of a school or a class
// @Tags News
// @Accept json
// @Produce json
// @Param payload body models.CreateNewsRequest true "News payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /news [post]
func (h *NewsHandler) Create(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.CreateNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	news, err := h.news.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, news)
}

// Update godoc
// @Summary Update announcement
// @Tags News
// @Accept json
// @Produce json
// @Param id path string true "News ID"
// @Param payload body models.UpdateNewsRequest true "News payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /news/{id} [put]
func (h *NewsHandler) Update(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.UpdateNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	news, err := h.news.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, news, nil)
}

// Delete godoc
// @Summary Delete announcement
// @Tags News
// @Param id path string true "News ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /news/{id} [delete]
func (h *NewsHandler) Delete(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.news.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get announcement
// @Tags News
// @Produce json
// @Param id path string true "News ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /news/{id} [get]
func (h *NewsHandler) Get(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	news, err := h.news.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, news, nil)
}

// List godoc
// @Summary List announcements
// @Description The actor's feed, cached per page
// @Tags News
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /news [get]
func (h *NewsHandler) List(c *gin.Context) {
	actor, err := h.actors.Resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.NewsFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	news, pagination, err := h.news.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, news, pagination)
}
