package http

import (
	"bytes"
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
	"github.com/melih/lighthouse-bridge/internal/core/services"
)

type EnvironmentHandler struct {
	service *services.EnvironmentService
}

func NewEnvironmentHandler(service *services.EnvironmentService) *EnvironmentHandler {
	return &EnvironmentHandler{service: service}
}

// Routes mounts the handler under router.
func (h *EnvironmentHandler) Routes(router fiber.Router) {
	router.Get("/backends", h.ListBackends)
	envs := router.Group("/environments")
	envs.Get("/", h.ListEnvironments)
	envs.Post("/", h.CreateEnvironment)
	envs.Get("/:id", h.GetEnvironment)
	envs.Delete("/:id", h.ShutdownEnvironment)
	envs.Post("/:id/processes", h.RunProcess)
	envs.Post("/:id/resolve", h.ResolvePath)
}

type CreateEnvironmentRequest struct {
	Kind string `json:"kind"`
	domain.Request
	Image   string `json:"image"`
	RepoURL string `json:"repo_url"`
}

type RunProcessRequest struct {
	Command          []string          `json:"command"`
	WorkingDirectory string            `json:"working_directory"`
	Env              map[string]string `json:"env"`
	Stdin            string            `json:"stdin"`
}

type ResolvePathRequest struct {
	domain.UploadRoot
	RelativePath string `json:"relative_path"`
}

type volumeView struct {
	LocalRoot  string `json:"local_root"`
	TargetRoot string `json:"target_root"`
}

type targetBindingView struct {
	domain.TargetPortBinding
	Resolved int `json:"resolved"`
}

type localBindingView struct {
	domain.LocalPortBinding
	Resolved string `json:"resolved"`
}

type environmentView struct {
	ID                 string                `json:"id"`
	Kind               domain.BackendKind    `json:"kind"`
	Platform           domain.TargetPlatform `json:"platform"`
	UploadVolumes      []volumeView          `json:"upload_volumes"`
	DownloadVolumes    []volumeView          `json:"download_volumes"`
	TargetPortBindings []targetBindingView   `json:"target_port_bindings"`
	LocalPortBindings  []localBindingView    `json:"local_port_bindings"`
}

func (h *EnvironmentHandler) ListBackends(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"backends": h.service.Kinds()})
}

func (h *EnvironmentHandler) ListEnvironments(c *fiber.Ctx) error {
	entries := h.service.List()
	views := make([]environmentView, 0, len(entries))
	for _, e := range entries {
		views = append(views, viewOf(e))
	}
	return c.JSON(views)
}

func (h *EnvironmentHandler) CreateEnvironment(c *fiber.Ctx) error {
	var req CreateEnvironmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	kind, err := domain.ParseBackendKind(req.Kind)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	entry, err := h.service.Create(c.Context(), domain.EnvironmentSpec{
		Kind:    kind,
		Request: req.Request,
		Image:   req.Image,
		RepoURL: req.RepoURL,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(viewOf(entry))
}

func (h *EnvironmentHandler) GetEnvironment(c *fiber.Ctx) error {
	entry, err := h.service.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(viewOf(entry))
}

func (h *EnvironmentHandler) ShutdownEnvironment(c *fiber.Ctx) error {
	if err := h.service.Shutdown(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RunProcess runs a command to completion and returns its captured output.
func (h *EnvironmentHandler) RunProcess(c *fiber.Ctx) error {
	var req RunProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req.Command) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Command is required",
		})
	}

	var stdout, stderr bytes.Buffer
	cmd := domain.TargetedCommandLine{
		Command:          req.Command,
		WorkingDirectory: req.WorkingDirectory,
		Env:              req.Env,
		Stdout:           &stdout,
		Stderr:           &stderr,
	}
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}
	pid, code, err := h.service.Run(c.Context(), c.Params("id"), cmd, ports.NopProgress{})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"pid":       pid,
		"exit_code": code,
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
	})
}

// ResolvePath maps a file under one of the environment's upload roots to
// its target path.
func (h *EnvironmentHandler) ResolvePath(c *fiber.Ctx) error {
	var req ResolvePathRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	entry, err := h.service.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	vol, ok := entry.Env.UploadVolumes()[req.UploadRoot]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Upload root is not part of this environment",
		})
	}
	target, err := vol.ResolveTargetPath(req.RelativePath)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"target_path": target})
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var execErr *domain.ExecutionError
	switch {
	case errors.Is(err, services.ErrEnvironmentMissing):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrUnknownBackend), errors.Is(err, domain.ErrUnsupportedBinding):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrPathNotTranslated), errors.As(err, &execErr):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func viewOf(e services.Entry) environmentView {
	v := environmentView{
		ID:                 e.ID,
		Kind:               e.Kind,
		Platform:           e.Env.TargetPlatform(),
		UploadVolumes:      make([]volumeView, 0),
		DownloadVolumes:    make([]volumeView, 0),
		TargetPortBindings: make([]targetBindingView, 0),
		LocalPortBindings:  make([]localBindingView, 0),
	}
	for _, vol := range e.Env.UploadVolumes() {
		v.UploadVolumes = append(v.UploadVolumes, volumeView{LocalRoot: vol.LocalRoot(), TargetRoot: vol.TargetRoot()})
	}
	for _, vol := range e.Env.DownloadVolumes() {
		v.DownloadVolumes = append(v.DownloadVolumes, volumeView{LocalRoot: vol.LocalRoot(), TargetRoot: vol.TargetRoot()})
	}
	for b, port := range e.Env.TargetPortBindings() {
		v.TargetPortBindings = append(v.TargetPortBindings, targetBindingView{TargetPortBinding: b, Resolved: port})
	}
	for b, hp := range e.Env.LocalPortBindings() {
		v.LocalPortBindings = append(v.LocalPortBindings, localBindingView{LocalPortBinding: b, Resolved: hp.String()})
	}
	sort.Slice(v.UploadVolumes, func(i, j int) bool { return v.UploadVolumes[i].LocalRoot < v.UploadVolumes[j].LocalRoot })
	sort.Slice(v.DownloadVolumes, func(i, j int) bool { return v.DownloadVolumes[i].LocalRoot < v.DownloadVolumes[j].LocalRoot })
	sort.Slice(v.TargetPortBindings, func(i, j int) bool { return v.TargetPortBindings[i].Target < v.TargetPortBindings[j].Target })
	sort.Slice(v.LocalPortBindings, func(i, j int) bool { return v.LocalPortBindings[i].Local < v.LocalPortBindings[j].Local })
	return v
}
