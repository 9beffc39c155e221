package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/pagewright/internal/element"
	"github.com/dgallion1/pagewright/internal/oracle"
)

var ErrInvalidRequest = errors.New("invalid request")

const maxPromptRunes = 10000

// Container ids end up in CSS selectors, so they must be plain identifiers.
var containerIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// ValidContainerID reports whether id can be used as a container id.
func ValidContainerID(id string) bool {
	return containerIDPattern.MatchString(id)
}

// BuildRequest asks for a new page.
type BuildRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
}

func (r BuildRequest) Validate() error {
	return validateCommon(r.Prompt, r.Model, r.ContainerID)
}

// PatchRequest asks for a diff-style edit of an existing page, optionally
// focused on one element.
type PatchRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Page
	SelectedElementHTML string `json:"selected_element_html,omitempty"`
}

func (r PatchRequest) Validate() error {
	if err := validateCommon(r.Prompt, r.Model, r.ContainerID); err != nil {
		return err
	}
	if strings.TrimSpace(r.HTML) == "" {
		return fmt.Errorf("%w: html is required", ErrInvalidRequest)
	}
	return nil
}

// RewriteMode chooses what the oracle sees during an element rewrite.
type RewriteMode string

const (
	// RewriteElement sends only the element and splices the reply back in.
	RewriteElement RewriteMode = "element"
	// RewriteDocument sends the whole page with the element marked and takes
	// the returned document as the new page.
	RewriteDocument RewriteMode = "document"
)

// ElementReplaceRequest asks for one element of a page to be rewritten. The
// element is named by a CSS selector or by its markup as the client saw it.
type ElementReplaceRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Page
	Selector            string      `json:"selector,omitempty"`
	SelectedElementHTML string      `json:"selected_element_html,omitempty"`
	Mode                RewriteMode `json:"mode,omitempty"`
}

func (r ElementReplaceRequest) Validate() error {
	if err := validateCommon(r.Prompt, r.Model, r.ContainerID); err != nil {
		return err
	}
	if strings.TrimSpace(r.HTML) == "" {
		return fmt.Errorf("%w: html is required", ErrInvalidRequest)
	}
	hasSel := strings.TrimSpace(r.Selector) != ""
	hasSnap := strings.TrimSpace(r.SelectedElementHTML) != ""
	if hasSel == hasSnap {
		return fmt.Errorf("%w: exactly one of selector or selected_element_html is required", ErrInvalidRequest)
	}
	switch r.Mode {
	case "", RewriteElement, RewriteDocument:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	return nil
}

// Target converts the request's element reference.
func (r ElementReplaceRequest) Target() element.Target {
	if s := strings.TrimSpace(r.Selector); s != "" {
		return element.BySelector(s)
	}
	return element.BySnapshot(r.SelectedElementHTML)
}

func validateCommon(prompt, model, containerID string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(prompt) > maxPromptRunes {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidRequest, maxPromptRunes)
	}
	if model != "" {
		if _, err := oracle.LookupModel(model); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if containerID != "" && !ValidContainerID(containerID) {
		return fmt.Errorf("%w: container_id %q is not a valid identifier", ErrInvalidRequest, containerID)
	}
	return nil
}
