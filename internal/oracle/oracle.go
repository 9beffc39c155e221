// Package oracle talks to the text-generation backends that write and edit
// pages. Their output is untrusted; callers clean it up with the chatter and
// assets packages.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgallion1/pagewright/internal/config"
)

var (
	ErrUnknownModel        = errors.New("unknown model")
	ErrProviderUnavailable = errors.New("provider not configured")
)

// Request is one system + user prompt pair sent to a model.
type Request struct {
	Model  string
	System string
	User   string
}

// Generator produces raw text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Model is one entry of the model table. Key is what clients send; APIID is
// what the provider expects.
type Model struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Provider config.Provider `json:"provider"`
	APIID    string          `json:"-"`
}

var models = map[string]Model{
	"glm-4.5-air": {
		Key:      "glm-4.5-air",
		Label:    "GLM 4.5 Air",
		Provider: config.ProviderTogether,
		APIID:    "zai-org/GLM-4.5-Air-FP8",
	},
	"gemini-2.5-flash-lite": {
		Key:      "gemini-2.5-flash-lite",
		Label:    "Gemini 2.5 Flash Lite",
		Provider: config.ProviderGoogle,
		APIID:    "gemini-1.5-flash-latest",
	},
	"deepseek-r1": {
		Key:      "deepseek-r1",
		Label:    "DeepSeek R1",
		Provider: config.ProviderTogether,
		APIID:    "deepseek-ai/DeepSeek-R1-0528-tput",
	},
}

// LookupModel resolves a model key.
func LookupModel(key string) (Model, error) {
	m, ok := models[key]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	return m, nil
}

// Models lists the model table ordered by key.
func Models() []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Router resolves the model key of a request and hands it, rewritten to the
// provider's API id, to the backend serving that provider.
type Router struct {
	backends map[config.Provider]Generator
}

func NewRouter() *Router {
	return &Router{backends: make(map[config.Provider]Generator)}
}

// Register installs g as the backend for p.
func (r *Router) Register(p config.Provider, g Generator) {
	r.backends[p] = g
}

// Available reports whether the model's provider has a backend.
func (r *Router) Available(m Model) bool {
	_, ok := r.backends[m.Provider]
	return ok
}

func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	m, err := LookupModel(req.Model)
	if err != nil {
		return "", err
	}
	g, ok := r.backends[m.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %s for model %s", ErrProviderUnavailable, m.Provider, m.Key)
	}
	req.Model = m.APIID
	return g.Generate(ctx, req)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
