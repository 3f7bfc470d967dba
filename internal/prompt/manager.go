// Package prompt composes system prompts from a base prompt plus
// request-type supplements loaded from a directory, with optional hot
// reload on file changes.
package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"helpdesk/internal/logging"
)

// placeholder marks where request-type instructions slot into the base
// prompt. Must match the marker in base_prompt.txt.
const placeholder = "[PLACEHOLDER: Request-type specific instructions will be inserted here based on classification]"

const fallbackBasePrompt = `You are a helpful Trello ticket management assistant.
Help users find information about existing tickets and create new tickets when needed.
Be conversational, ask clarifying questions, and confirm details before taking actions.`

// RequestTypes are the supported request classifications.
var RequestTypes = []string{"missing_report", "new_report", "it_support", "enhancement_request"}

// Manager loads and composes system prompts.
type Manager struct {
	mu         sync.RWMutex
	dir        string
	basePrompt string
	typed      map[string]string
}

// NewManager loads prompts from dir. A missing base prompt falls back to a
// built-in default; missing supplements are logged and skipped.
func NewManager(dir string) *Manager {
	m := &Manager{dir: dir}
	m.Reload()
	return m
}

// Reload re-reads all prompt files from disk.
func (m *Manager) Reload() {
	base := fallbackBasePrompt
	basePath := filepath.Join(m.dir, "base_prompt.txt")
	if data, err := os.ReadFile(basePath); err == nil {
		base = string(data)
		logging.Prompt("loaded base prompt (%d bytes)", len(data))
	} else {
		logging.PromptWarn("base prompt not found at %s, using fallback", basePath)
	}

	typed := make(map[string]string)
	for _, requestType := range RequestTypes {
		path := filepath.Join(m.dir, requestType+".txt")
		data, err := os.ReadFile(path)
		if err != nil {
			logging.PromptWarn("prompt for %s not found at %s", requestType, path)
			continue
		}
		typed[requestType] = string(data)
		logging.Prompt("loaded %s prompt", requestType)
	}

	m.mu.Lock()
	m.basePrompt = base
	m.typed = typed
	m.mu.Unlock()
}

// SystemPrompt returns the composed prompt for a request type. A known
// type's instructions replace the placeholder (or are appended when the
// base has no placeholder); an empty or unknown type strips the marker.
func (m *Manager) SystemPrompt(requestType string) string {
	m.mu.RLock()
	base := m.basePrompt
	supplement, hasType := m.typed[requestType]
	m.mu.RUnlock()

	if requestType != "" && hasType {
		if strings.Contains(base, placeholder) {
			base = strings.Replace(base, placeholder, supplement, 1)
		} else {
			base += "\n\n" + supplement
		}
	} else {
		base = strings.ReplaceAll(base, placeholder, "")
	}

	return strings.TrimSpace(base)
}

// AvailableRequestTypes lists the request types with loaded supplements.
func (m *Manager) AvailableRequestTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]string, 0, len(m.typed))
	for _, requestType := range RequestTypes {
		if _, ok := m.typed[requestType]; ok {
			types = append(types, requestType)
		}
	}
	return types
}
