package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// ConnectRequest stores credentials for an LMS and tests them.
type ConnectRequest struct {
	BaseURL  string `json:"base_url" validate:"omitempty,url"`
	Token    string `json:"token" validate:"required,max=2048"`
	AutoSync *bool  `json:"auto_sync"`
}

// AutoSyncRequest toggles automatic sync for a source.
type AutoSyncRequest struct {
	AutoSync *bool `json:"auto_sync" validate:"required"`
}

// ConnectionResponse describes a source connection with its token redacted.
type ConnectionResponse struct {
	Source       string     `json:"source"`
	BaseURL      string     `json:"base_url"`
	HasToken     bool       `json:"has_token"`
	Connected    bool       `json:"connected"`
	AutoSync     bool       `json:"auto_sync"`
	LastTestedAt *time.Time `json:"last_tested_at"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

// ConnectionTestResponse reports the outcome of a connection probe.
type ConnectionTestResponse struct {
	Source    string `json:"source"`
	Connected bool   `json:"connected"`
}

// NewConnectionResponse converts a model into a DTO.
func NewConnectionResponse(model models.SourceConnection) ConnectionResponse {
	return ConnectionResponse{
		Source:       string(model.Source),
		BaseURL:      model.BaseURL,
		HasToken:     strings.TrimSpace(model.Token) != "",
		Connected:    model.Connected,
		AutoSync:     model.AutoSync,
		LastTestedAt: model.LastTestedAt,
		LastSyncedAt: model.LastSyncedAt,
	}
}

// NewConnectionResponseSlice converts a slice of models into DTOs.
func NewConnectionResponseSlice(connections []models.SourceConnection) []ConnectionResponse {
	responses := make([]ConnectionResponse, 0, len(connections))
	for _, connection := range connections {
		responses = append(responses, NewConnectionResponse(connection))
	}
	return responses
}

// ConnectResponse is returned after storing credentials; Sync is set when the
// connection test passed and the initial pass ran.
type ConnectResponse struct {
	Connection ConnectionResponse `json:"connection"`
	Sync       *SyncResult        `json:"sync,omitempty"`
}
