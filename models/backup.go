package models

import "time"

const BackupVersion = "1.0"

// ImportMode selects how a backup is applied.
type ImportMode string

const (
	// ImportMerge adds the file's records under fresh ids.
	ImportMerge ImportMode = "merge"
	// ImportReplace clears all local state before storing the file's records.
	ImportReplace ImportMode = "replace"
)

// Settings are dashboard preferences carried along in backups.
type Settings struct {
	Theme    string                 `json:"theme,omitempty"`
	Language string                 `json:"language,omitempty"`
	Values   map[string]interface{} `json:"values,omitempty"`
}

// Backup is the export file format of the dashboard.
type Backup struct {
	Version      string                 `json:"version"`
	ExportDate   time.Time              `json:"exportDate"`
	Connections  []Connection           `json:"connections"`
	Switches     []SwitchPanel          `json:"switches"`
	ButtonPanels []ButtonPanel          `json:"buttonPanels"`
	UriLaunchers []UriLauncherPanel     `json:"uriLaunchers"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
	Theme        string                 `json:"theme,omitempty"`
	Language     string                 `json:"language,omitempty"`
}

// ImportResult counts what an import stored.
type ImportResult struct {
	Mode         ImportMode `json:"mode"`
	Connections  int        `json:"connections"`
	Switches     int        `json:"switches"`
	ButtonPanels int        `json:"buttonPanels"`
	UriLaunchers int        `json:"uriLaunchers"`
	Skipped      int        `json:"skipped"`
}
