// Package config provides chapter configuration management for Frontier.
//
// The config package handles:
//   - Loading chapter definitions from YAML files
//   - Loading the hostile and item registry (registry.yaml)
//   - Validation against the registry before anything is cached
//   - Chapter discovery and listing
//
// Configuration Format:
//
// Each chapter is a YAML file named after its id in the configs directory.
// A chapter defines the grid size, mine count, the item and event manifest,
// the decoy stock, the hostile spawn manifest and which chapter it unlocks.
// The built-in chapters (chapter1 to chapter4) are always available; a file
// with the same id overrides the built-in definition.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	chapter, err := manager.LoadConfig("chapter2")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	configs, err := manager.ListConfigs()
package config
