package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"helpdesk/internal/logging"
)

const debounceWindow = 200 * time.Millisecond

// Watch reloads prompts when files in the prompts directory change.
// Events are debounced so an editor's save burst triggers one reload.
// Blocks until ctx is canceled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.dir, err)
	}

	logging.Prompt("watching %s for prompt changes", m.dir)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceWindow)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			logging.Prompt("prompt files changed, reloading")
			m.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.PromptWarn("prompt watcher error: %v", err)
		}
	}
}
