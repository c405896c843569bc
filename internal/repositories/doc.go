// Package repositories implements SQLite persistence for musicvault.
//
// Key Implementations:
//   - [SettingsRepository] : key/value settings, the durable backing of the token store
//   - [SyncRunRepository] : history of refresh passes over the vault
package repositories
