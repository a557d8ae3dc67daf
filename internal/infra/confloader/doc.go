// Package confloader provides configuration loading mechanism.
//
// It layers koanf providers so later sources override earlier ones:
//
//  1. Default values (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variables (RESPKV_SECTION_KEY)
//  4. Command-line flags (WithFlags)
//
// Watcher reports writes to the configuration file so selected settings
// can be reapplied without a restart.
package confloader
