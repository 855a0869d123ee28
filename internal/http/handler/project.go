package handler

import (
	"net/http"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	directory service.DirectoryService
}

func NewProjectHandler(directory service.DirectoryService) *ProjectHandler {
	return &ProjectHandler{directory: directory}
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.directory.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err, "list projects")
		return
	}

	c.JSON(http.StatusOK, dto.ProjectListResponse{Projects: projects})
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.directory.CreateProject(c.Request.Context(), req.ToParams())
	if err != nil {
		respondError(c, err, "create project")
		return
	}

	c.JSON(http.StatusCreated, project)
}
