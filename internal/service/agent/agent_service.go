// internal/service/agent/agent_service.go
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
	photosvc "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"

	"go.uber.org/zap"
)

type AgentService struct {
	repo   agent.Repository
	scheme address.Scheme
	photos *photosvc.PhotoService
	events agent.EventPublisher
	// cardURL fills AgentView.URL; nil leaves it empty
	cardURL func(address string) string
	logger  *zap.Logger
}

func NewAgentService(repo agent.Repository, scheme address.Scheme, photos *photosvc.PhotoService, logger *zap.Logger) *AgentService {
	return &AgentService{
		repo:   repo,
		scheme: scheme,
		photos: photos,
		logger: logger,
	}
}

// SetPublisher registers the receiver of committed changes.
func (s *AgentService) SetPublisher(p agent.EventPublisher) {
	s.events = p
}

func (s *AgentService) SetCardURL(fn func(address string) string) {
	s.cardURL = fn
}

// View wraps a record with its address and public URL.
func (s *AgentService) View(a *agent.Agent) *agent.AgentView {
	url := ""
	if s.cardURL != nil {
		url = s.cardURL(a.Address)
	}
	return agent.NewAgentView(a, url)
}

func (s *AgentService) List(ctx context.Context) (*agent.AgentListResponse, error) {
	agents, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list agents", zap.Error(err))
		return nil, err
	}
	views := make([]*agent.AgentView, len(agents))
	for i, a := range agents {
		views[i] = s.View(a)
	}
	return &agent.AgentListResponse{
		Agents: views,
		Total:  len(agents),
		Scheme: s.scheme.Name(),
	}, nil
}

func (s *AgentService) Get(ctx context.Context, addr string) (*agent.Agent, error) {
	return s.repo.Get(ctx, addr)
}

// CheckAddress reports whether a new record could be created at requested,
// or at the address derived from name when requested is empty.
func (s *AgentService) CheckAddress(ctx context.Context, requested, name string) (*agent.AddressAvailability, error) {
	addrs, err := s.addresses(ctx)
	if err != nil {
		return nil, err
	}

	addr, err := s.scheme.Assign(name, requested, addrs)
	switch {
	case err == nil:
		return &agent.AddressAvailability{Address: addr, Available: true}, nil
	case errors.Is(err, xerrors.ErrConflict), errors.Is(err, xerrors.ErrInvalidInput):
		if requested == "" {
			requested = address.Slugify(name)
		}
		return &agent.AddressAvailability{Address: requested, Available: false, Reason: err.Error()}, nil
	default:
		return nil, err
	}
}

// Create stores the photo first and the record second, so a committed record
// never points at a missing photo. A photo written for a record that then
// fails to commit is removed again.
func (s *AgentService) Create(ctx context.Context, req *agent.CreateAgentRequest, upload *agent.PhotoUpload) (*agent.Agent, error) {
	a := req.ToAgent()
	if err := a.Validate(); err != nil {
		return nil, xerrors.Invalid("%s", err.Error())
	}

	ref, err := s.storePhoto(ctx, a.Name, upload)
	if err != nil {
		return nil, err
	}
	if ref != "" {
		a.Photo = ref
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		s.discardPhoto(ctx, ref)
		s.logFailure("failed to create agent", a.Address, err)
		return nil, err
	}

	s.logger.Info("agent created",
		zap.String("address", created.Address),
		zap.String("name", created.Name),
		zap.Bool("has_photo", created.Photo != ""),
	)
	s.publish(agent.ChangeCreated, created.Address, created)
	return created, nil
}

func (s *AgentService) Update(ctx context.Context, addr string, req *agent.UpdateAgentRequest, upload *agent.PhotoUpload) (*agent.Agent, error) {
	if req == nil {
		req = &agent.UpdateAgentRequest{}
	}
	if req.IsEmpty() && upload == nil {
		return nil, xerrors.Invalid("nothing to update")
	}

	current, err := s.repo.Get(ctx, addr)
	if err != nil {
		return nil, err
	}

	owner := current.Name
	if req.Name != nil && *req.Name != "" {
		owner = *req.Name
	}
	ref, err := s.storePhoto(ctx, owner, upload)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, addr, func(a *agent.Agent) error {
		req.Apply(a)
		if ref != "" {
			a.Photo = ref
		}
		return nil
	})
	if err != nil {
		s.discardPhoto(ctx, ref)
		s.logFailure("failed to update agent", addr, err)
		return nil, err
	}

	s.logger.Info("agent updated",
		zap.String("address", updated.Address),
		zap.Bool("photo_replaced", ref != ""),
	)
	s.publish(agent.ChangeUpdated, updated.Address, updated)
	return updated, nil
}

// Delete removes the record. Its photo is kept, since other tooling may
// still link to it.
func (s *AgentService) Delete(ctx context.Context, addr string) error {
	if err := s.repo.Delete(ctx, addr); err != nil {
		s.logFailure("failed to delete agent", addr, err)
		return err
	}

	s.logger.Info("agent deleted", zap.String("address", addr))
	s.publish(agent.ChangeDeleted, addr, nil)
	return nil
}

func (s *AgentService) storePhoto(ctx context.Context, owner string, upload *agent.PhotoUpload) (string, error) {
	if upload == nil || upload.Content == nil {
		return "", nil
	}
	if s.photos == nil {
		return "", xerrors.Invalid("photo uploads are not enabled")
	}
	return s.photos.Store(ctx, upload.Content, photosvc.UniqueName(owner, upload.Filename))
}

func (s *AgentService) discardPhoto(ctx context.Context, ref string) {
	if ref == "" || s.photos == nil {
		return
	}
	_ = s.photos.Remove(context.WithoutCancel(ctx), ref)
}

func (s *AgentService) addresses(ctx context.Context) ([]string, error) {
	agents, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load addresses: %w", err)
	}
	out := make([]string, len(agents))
	for i, a := range agents {
		out[i] = a.Address
	}
	return out, nil
}

func (s *AgentService) publish(kind agent.ChangeKind, addr string, a *agent.Agent) {
	if s.events == nil {
		return
	}
	s.events.AgentChanged(agent.ChangeEvent{Kind: kind, Address: addr, Agent: a})
}

// logFailure keeps client mistakes at warn level and storage trouble at error.
func (s *AgentService) logFailure(msg, addr string, err error) {
	fields := []zap.Field{zap.String("address", addr), zap.Error(err)}
	if errors.Is(err, xerrors.ErrStorage) {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Warn(msg, fields...)
}
