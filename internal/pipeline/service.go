package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/pagewright/internal/assets"
	"github.com/dgallion1/pagewright/internal/chatter"
	"github.com/dgallion1/pagewright/internal/config"
	"github.com/dgallion1/pagewright/internal/element"
	"github.com/dgallion1/pagewright/internal/oracle"
	"github.com/dgallion1/pagewright/internal/patch"
	"github.com/dgallion1/pagewright/internal/scope"
)

// ErrUnusableOutput means the oracle answered with nothing the engine could
// turn into a page or an element.
var ErrUnusableOutput = errors.New("oracle output unusable")

// Service runs build and edit requests: one oracle call each, followed by
// isolation, splitting and scoping of the result.
type Service struct {
	oracle       oracle.Generator
	log          *slog.Logger
	defaultModel string
	timeout      time.Duration
	backoff      func(attempt int) time.Duration
}

func NewService(gen oracle.Generator, cfg config.Config, log *slog.Logger) *Service {
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Service{
		oracle:       gen,
		log:          log,
		defaultModel: cfg.DefaultModel,
		timeout:      timeout,
		backoff:      Backoff,
	}
}

func (s *Service) model(key string) string {
	if key == "" {
		return s.defaultModel
	}
	return key
}

// Reconcile turns raw oracle output into a scoped page without calling the
// oracle. An empty containerID gets a fresh one.
func (s *Service) Reconcile(raw, containerID string) (Page, error) {
	if containerID == "" {
		containerID = NewContainerID()
	} else if !ValidContainerID(containerID) {
		return Page{}, fmt.Errorf("%w: container_id %q is not a valid identifier", ErrInvalidRequest, containerID)
	}
	doc, ok := chatter.Isolate(raw)
	if !ok {
		return Page{}, fmt.Errorf("%w: no document root found", ErrUnusableOutput)
	}
	return s.finish(doc, containerID), nil
}

// finish splits doc and scopes its styles to containerID.
func (s *Service) finish(doc, containerID string) Page {
	b, err := assets.Decompose(doc, containerID)
	if err != nil {
		s.log.Warn("document parse failed, passing through", "container_id", containerID, "error", err)
	}
	b.CSS = scope.Scope(b.CSS, containerID)
	return Page{Bundle: b, ContainerID: containerID}
}

// Build generates a new page from a description.
func (s *Service) Build(ctx context.Context, req BuildRequest) (Page, error) {
	if err := req.Validate(); err != nil {
		return Page{}, err
	}
	containerID := req.ContainerID
	if containerID == "" {
		containerID = NewContainerID()
	}
	model := s.model(req.Model)
	log := s.log.With("op", "build", "container_id", containerID, "model", model)

	raw, err := s.generate(ctx, log, oracle.Request{
		Model:  model,
		System: oracle.BuildSystemPrompt,
		User:   oracle.BuildUserPrompt(req.Prompt),
	})
	if err != nil {
		log.Error("oracle call failed", "error", err)
		return Page{}, err
	}

	page, err := s.Reconcile(raw, containerID)
	if err != nil {
		log.Warn("unusable build output", "output_bytes", len(raw))
		return Page{}, err
	}
	log.Info("page built", "html_bytes", len(page.HTML), "css_bytes", len(page.CSS), "js_bytes", len(page.JS))
	return page, nil
}

// PatchResult is a patched page plus a report of the blocks that applied.
type PatchResult struct {
	Page
	Applied int                  `json:"applied"`
	Skipped []patch.SkippedBlock `json:"skipped,omitempty"`
	Rebuilt bool                 `json:"rebuilt,omitempty"`
}

// Patch asks the oracle for search/replace blocks against the page and
// applies them. Blocks that do not match are skipped and reported; a reply
// with no blocks leaves the page as it was. Edits against the placeholder page
// become a fresh build.
func (s *Service) Patch(ctx context.Context, req PatchRequest) (PatchResult, error) {
	if err := req.Validate(); err != nil {
		return PatchResult{}, err
	}
	containerID := req.ContainerID
	if containerID == "" {
		containerID = NewContainerID()
	}
	model := s.model(req.Model)
	log := s.log.With("op", "patch", "container_id", containerID, "model", model)

	if IsDefaultPage(req.HTML) {
		log.Info("placeholder page, building instead")
		page, err := s.Build(ctx, BuildRequest{Prompt: req.Prompt, Model: req.Model, ContainerID: containerID})
		if err != nil {
			return PatchResult{}, err
		}
		return PatchResult{Page: page, Rebuilt: true}, nil
	}

	doc := assets.Assemble(req.Bundle, containerID)
	raw, err := s.generate(ctx, log, oracle.Request{
		Model:  model,
		System: oracle.PatchSystemPrompt,
		User:   oracle.PatchUserPrompt(req.Prompt, doc, req.SelectedElementHTML),
	})
	if err != nil {
		log.Error("oracle call failed", "error", err)
		return PatchResult{}, err
	}

	res := patch.Apply(doc, raw)
	if res.Blocks == 0 {
		log.Warn("no patch blocks in oracle output", "output_bytes", len(raw))
	}
	for _, sk := range res.Skipped {
		log.Warn("patch block did not match", "block", sk.Index, "search", clip(sk.Search, 120))
	}
	if !res.Changed() {
		log.Warn("patch left the page unchanged")
	}
	log.Info("page patched", "blocks", res.Blocks, "applied", res.Applied, "skipped", len(res.Skipped))

	return PatchResult{
		Page:    s.finish(res.Document, containerID),
		Applied: res.Applied,
		Skipped: res.Skipped,
	}, nil
}

// ReplaceElement has the oracle rewrite one element of the page. Targets are
// resolved inside the container element only. The element is tagged with a
// one-shot marker; the marker never survives into the returned page.
//
// In element mode the oracle sees just the element and its reply is spliced
// back at the marker. In document mode the marked page makes the round trip
// and the returned document replaces the page.
func (s *Service) ReplaceElement(ctx context.Context, req ElementReplaceRequest) (Page, error) {
	if err := req.Validate(); err != nil {
		return Page{}, err
	}
	containerID := req.ContainerID
	if containerID == "" {
		containerID = NewContainerID()
	}
	mode := req.Mode
	if mode == "" {
		mode = RewriteElement
	}
	model := s.model(req.Model)
	target := req.Target().In(containerID)
	log := s.log.With("op", "replace_element", "container_id", containerID, "model", model, "target", target.String(), "mode", string(mode))

	doc := assets.Assemble(req.Bundle, containerID)
	h, err := element.Locate(doc, target)
	if err != nil {
		log.Warn("target not located", "error", err)
		return Page{}, err
	}
	original, err := h.OuterHTML()
	if err != nil {
		return Page{}, err
	}
	marked, err := element.Mark(doc, target, element.DefaultMarker)
	if err != nil {
		return Page{}, err
	}

	if mode == RewriteDocument {
		return s.rewriteDocument(ctx, log, model, req.Prompt, marked, containerID)
	}

	singular := element.IsSingular(original)
	raw, err := s.generate(ctx, log, oracle.Request{
		Model:  model,
		System: oracle.RewriteSystemPrompt(singular),
		User:   oracle.RewriteUserPrompt(req.Prompt, original),
	})
	if err != nil {
		log.Error("oracle call failed", "error", err)
		return Page{}, err
	}

	replacement := chatter.FirstElementIn(raw, h.Node.Parent)
	if strings.TrimSpace(replacement) == "" {
		log.Warn("no element in rewrite output", "output_bytes", len(raw))
		return Page{}, fmt.Errorf("%w: no element in rewrite output", ErrUnusableOutput)
	}

	updated, err := element.Replace(marked, element.ByMarker(element.DefaultMarker), replacement)
	if err != nil {
		log.Warn("element replace failed", "error", err)
		return Page{}, err
	}
	log.Info("element replaced", "strategy", string(h.Strategy), "singular", singular)
	return s.finish(updated, containerID), nil
}

// rewriteDocument sends the marked page to the oracle and reconciles the
// document it returns.
func (s *Service) rewriteDocument(ctx context.Context, log *slog.Logger, model, prompt, marked, containerID string) (Page, error) {
	raw, err := s.generate(ctx, log, oracle.Request{
		Model:  model,
		System: oracle.SurgicalEditSystemPrompt,
		User:   oracle.SurgicalEditUserPrompt(prompt, marked),
	})
	if err != nil {
		log.Error("oracle call failed", "error", err)
		return Page{}, err
	}
	updated, ok := chatter.Isolate(raw)
	if !ok {
		log.Warn("no document in surgical edit output", "output_bytes", len(raw))
		return Page{}, fmt.Errorf("%w: no document root found", ErrUnusableOutput)
	}
	updated = element.StripMarker(updated, element.DefaultMarker)
	log.Info("document rewritten", "output_bytes", len(updated))
	return s.finish(updated, containerID), nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
