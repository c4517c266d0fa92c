package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// LoadCatalogue reads and parses the seed vocabulary file. There is no
// reload path for the catalogue: it is write-once at seeding.
func LoadCatalogue(path string) (*CatalogueFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	var cf CatalogueFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	return &cf, nil
}

// Loader reads the rules YAML file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *RulesFile
	onChange []func(*RulesFile)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	rf, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = rf
	return l, nil
}

// Rules returns the current (latest) rules file.
func (l *Loader) Rules() *RulesFile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the rules file reloads.
func (l *Loader) OnChange(fn func(*RulesFile)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the rules file on
// writes. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rules watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("rules watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					rf, err := l.load()
					if err != nil {
						// Keep serving the previous rules on a bad write.
						continue
					}
					l.swap(rf)
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the rules file.
func (l *Loader) Reload() (*RulesFile, error) {
	rf, err := l.load()
	if err != nil {
		return nil, err
	}
	l.swap(rf)
	return rf, nil
}

func (l *Loader) swap(rf *RulesFile) {
	l.mu.Lock()
	l.current = rf
	callbacks := make([]func(*RulesFile), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(rf)
	}
}

func (l *Loader) load() (*RulesFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", l.path, err)
	}
	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", l.path, err)
	}
	// Apply defaults.
	if rf.Engine.EventWorkers == 0 {
		rf.Engine.EventWorkers = 16
	}
	if rf.Engine.QueueDepth == 0 {
		rf.Engine.QueueDepth = 4096
	}
	if rf.Engine.EventTimeoutMs == 0 {
		rf.Engine.EventTimeoutMs = 5000
	}
	return &rf, nil
}
