// internal/handlers/agent/agent_handler.go
package agent

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/response"
	agentUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/agent"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type AgentHandler struct {
	agentService *agentUsecase.AgentService
	logger       *zap.Logger
}

func NewAgentHandler(agentService *agentUsecase.AgentService, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		agentService: agentService,
		logger:       logger,
	}
}

// ListAgents returns every record in store order
func (h *AgentHandler) ListAgents(c *gin.Context) {
	list, err := h.agentService.List(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to list agents", err)
		return
	}
	response.Success(c, http.StatusOK, "agents retrieved", list)
}

// CheckAddress reports whether :address can take a new record
func (h *AgentHandler) CheckAddress(c *gin.Context) {
	availability, err := h.agentService.CheckAddress(c.Request.Context(), c.Param("address"), c.Query("name"))
	if err != nil {
		response.FromError(c, "failed to check address", err)
		return
	}
	response.Success(c, http.StatusOK, "address checked", availability)
}

// CreateAgent handles POST /admin/new and POST /admin/:address/new
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var req agent.CreateAgentRequest
	if err := bindRequest(c, &req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	if social, ok := c.GetPostFormMap("social"); ok {
		req.Social = social
	}
	if extra, ok := c.GetPostFormMap("extra"); ok {
		req.Extra = extra
	}
	if addr := c.Param("address"); addr != "" {
		req.Address = addr
	}

	upload, closeUpload, err := photoUpload(c)
	if err != nil {
		response.ValidationError(c, "invalid photo upload", err)
		return
	}
	defer closeUpload()

	created, err := h.agentService.Create(c.Request.Context(), &req, upload)
	if err != nil {
		response.FromError(c, "failed to create agent", err)
		return
	}
	response.Success(c, http.StatusCreated, "agent created", h.agentService.View(created))
}

// GetAgent returns the record for the edit form
func (h *AgentHandler) GetAgent(c *gin.Context) {
	a, err := h.agentService.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.FromError(c, "agent not found", err)
		return
	}
	response.Success(c, http.StatusOK, "agent retrieved", h.agentService.View(a))
}

// UpdateAgent applies a partial update; fields left out are kept
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	var req agent.UpdateAgentRequest
	if err := bindRequest(c, &req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	if social, ok := c.GetPostFormMap("social"); ok {
		req.Social = social
	}
	if extra, ok := c.GetPostFormMap("extra"); ok {
		req.Extra = extra
	}

	upload, closeUpload, err := photoUpload(c)
	if err != nil {
		response.ValidationError(c, "invalid photo upload", err)
		return
	}
	defer closeUpload()

	updated, err := h.agentService.Update(c.Request.Context(), c.Param("address"), &req, upload)
	if err != nil {
		response.FromError(c, "failed to update agent", err)
		return
	}
	response.Success(c, http.StatusOK, "agent updated", h.agentService.View(updated))
}

// DeleteAgent removes a record where the address scheme allows it
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	addr := c.Param("address")
	if err := h.agentService.Delete(c.Request.Context(), addr); err != nil {
		response.FromError(c, "failed to delete agent", err)
		return
	}
	response.Success(c, http.StatusOK, "agent deleted", gin.H{"address": addr})
}

// bindRequest decodes JSON bodies as JSON and everything else as a form.
// An empty JSON body binds to the zero request.
func bindRequest(c *gin.Context, obj interface{}) error {
	if strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		if err := c.ShouldBindBodyWith(obj, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return binding.Validator.ValidateStruct(obj)
	}
	return c.ShouldBind(obj)
}

// photoUpload opens the optional "photo" file of a multipart request.
func photoUpload(c *gin.Context) (*agent.PhotoUpload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		return nil, noop, nil
	}

	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &agent.PhotoUpload{Filename: fh.Filename, Content: f}, func() { f.Close() }, nil
}
