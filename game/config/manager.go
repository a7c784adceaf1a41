package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// RegistryFile is the name of the hostile and item table inside the config directory
const RegistryFile = "registry.yaml"

// DefaultChapterID is used when the directory does not name another default
const DefaultChapterID = "chapter1"

var chapterExtensions = []string{".yaml", ".yml", ".json"}

// Manager handles chapter configuration loading and caching
type Manager struct {
	configDir     string
	registry      *engine.Registry
	defaultConfig *engine.ChapterConfig
	configs       map[string]*engine.ChapterConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.ChapterConfig),
	}

	if err := m.loadRegistry(); err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	// Load default config
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// Registry returns the hostile and item tables every chapter is validated against
func (m *Manager) Registry() *engine.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry
}

// LoadConfig loads a chapter by id. Files in the config directory take
// precedence over the built-in chapters of the same id.
func (m *Manager) LoadConfig(name string) (*engine.ChapterConfig, error) {
	name = chapterID(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	config, err := m.readChapter(name)
	if errors.Is(err, ErrConfigNotFound) {
		builtin, ok := engine.DefaultChapters()[name]
		if !ok {
			return nil, ErrConfigNotFound
		}
		config = builtin
	} else if err != nil {
		return nil, err
	}

	// Validate config
	if err := engine.ValidateChapterConfig(config, m.registry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// Cache the config
	m.configs[name] = config
	logrus.WithFields(logrus.Fields{
		"chapter": name,
		"rows":    config.Rows,
		"cols":    config.Cols,
	}).Debug("Loaded chapter config")
	return config, nil
}

func (m *Manager) readChapter(name string) (*engine.ChapterConfig, error) {
	for _, ext := range chapterExtensions {
		configPath := filepath.Join(m.configDir, name+ext)

		data, err := os.ReadFile(configPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config, err := engine.ParseChapterConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if config.ID == "" {
			config.ID = name
		}
		return config, nil
	}
	return nil, ErrConfigNotFound
}

// ListConfigs returns information about all available chapters, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	filenames := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == RegistryFile {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !isChapterExt(ext) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if _, seen := filenames[id]; !seen {
			filenames[id] = entry.Name()
		}
	}
	for id := range engine.DefaultChapters() {
		if _, seen := filenames[id]; !seen {
			filenames[id] = ""
		}
	}

	ids := make([]string, 0, len(filenames))
	for id := range filenames {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var configs []*service.ConfigInfo
	for _, id := range ids {
		// Try to load the config to get details
		config, err := m.LoadConfig(id)
		if err != nil {
			logrus.WithError(err).WithField("chapter", id).Warn("Skipping invalid chapter config")
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:      filenames[id],
			ConfigID:      id, // This is the identifier to use for session creation
			Name:          config.Name,
			Description:   config.Description,
			Rows:          config.Rows,
			Cols:          config.Cols,
			Mines:         config.Mines,
			RequiredItems: config.RequiredItems,
			MaxDecoy:      config.MaxDecoy,
			Ruleset:       config.EffectiveRuleset(),
			Unlocks:       config.Unlocks,
		})
	}

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.ChapterConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache reloads the registry and drops every cached chapter
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	// Clear cache
	m.configs = make(map[string]*engine.ChapterConfig)
	m.mu.Unlock()

	if err := m.loadRegistry(); err != nil {
		return err
	}
	return m.loadDefaultConfig()
}

func (m *Manager) loadRegistry() error {
	path := filepath.Join(m.configDir, RegistryFile)
	reg := engine.DefaultRegistry()

	if _, err := os.Stat(path); err == nil {
		loaded, err := engine.LoadRegistry(path)
		if err != nil {
			return err
		}
		reg = loaded
	}

	m.mu.Lock()
	m.registry = reg
	m.mu.Unlock()
	return nil
}

// loadDefaultConfig loads the default configuration
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultChapterID)
	if err != nil {
		// Try to load the first available config
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			return fmt.Errorf("no usable chapter in %s: %w", m.configDir, err)
		}

		config, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates a chapter and writes it to the config directory as YAML
func (m *Manager) SaveConfig(name string, config *engine.ChapterConfig) error {
	name = chapterID(name)
	if config != nil && config.ID == "" {
		config.ID = name
	}

	// Validate config before saving
	if err := engine.ValidateChapterConfig(config, m.Registry()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	configPath := filepath.Join(m.configDir, name+".yaml")

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	logrus.WithField("chapter", name).Info("Saved chapter config")
	return nil
}

func chapterID(name string) string {
	ext := filepath.Ext(name)
	if isChapterExt(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func isChapterExt(ext string) bool {
	for _, e := range chapterExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
