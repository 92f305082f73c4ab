// Package api — configuration management endpoints.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/jantolip/consensus/internal/config"
)

// configMu serialises writes to the config file.
var configMu sync.Mutex

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // path to the active config file
}

// handleGetConfig returns the current (running) configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
		},
	})
}

// handleUpdateConfig merges the provided partial configuration into the
// running config, persists it to disk, and returns the updated config.
// Changes to screener or holdings settings take effect on the next run;
// changing the listen address requires a restart.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if incoming.Pipeline.SimilarityThreshold < 0 || incoming.Pipeline.SimilarityThreshold > 100 {
		writeError(w, http.StatusBadRequest, "similarity_threshold must be between 0 and 100")
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	// Merge non-zero values from incoming into running config.
	mergeConfig(s.cfg, &incoming)

	// Persist to disk.
	cfgPath := config.ConfigFilePath()
	if err := config.SaveToFile(s.cfg, cfgPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: cfgPath,
		},
	})
}

// mergeConfig copies non-zero/non-empty values from src into dst.
func mergeConfig(dst, src *config.Config) {
	// Screener
	if src.Screener.BaseURL != "" {
		dst.Screener.BaseURL = src.Screener.BaseURL
	}
	if src.Screener.UniverseID != "" {
		dst.Screener.UniverseID = src.Screener.UniverseID
	}
	if src.Screener.CurrencyID != "" {
		dst.Screener.CurrencyID = src.Screener.CurrencyID
	}
	if src.Screener.LanguageID != "" {
		dst.Screener.LanguageID = src.Screener.LanguageID
	}
	if src.Screener.SortOrder != "" {
		dst.Screener.SortOrder = src.Screener.SortOrder
	}
	if src.Screener.PageSize != 0 {
		dst.Screener.PageSize = src.Screener.PageSize
	}
	if src.Screener.Pages != 0 {
		dst.Screener.Pages = src.Screener.Pages
	}
	if src.Screener.CategoryContains != "" {
		dst.Screener.CategoryContains = src.Screener.CategoryContains
	}

	// Holdings
	if src.Holdings.BaseURL != "" {
		dst.Holdings.BaseURL = src.Holdings.BaseURL
	}
	if src.Holdings.FallbackPageURL != "" {
		dst.Holdings.FallbackPageURL = src.Holdings.FallbackPageURL
	}
	if src.Holdings.Country != "" {
		dst.Holdings.Country = src.Holdings.Country
	}
	if src.Holdings.TopN != 0 {
		dst.Holdings.TopN = src.Holdings.TopN
	}

	// Pipeline
	if src.Pipeline.MinAppearances != 0 {
		dst.Pipeline.MinAppearances = src.Pipeline.MinAppearances
	}
	if src.Pipeline.SimilarityThreshold != 0 {
		dst.Pipeline.SimilarityThreshold = src.Pipeline.SimilarityThreshold
	}
	if len(src.Pipeline.ExcludedTickers) > 0 {
		dst.Pipeline.ExcludedTickers = src.Pipeline.ExcludedTickers
	}

	// HTTP
	if src.HTTP.UserAgent != "" {
		dst.HTTP.UserAgent = src.HTTP.UserAgent
	}
	if src.HTTP.AcceptLanguage != "" {
		dst.HTTP.AcceptLanguage = src.HTTP.AcceptLanguage
	}
	if src.HTTP.TimeoutSec != 0 {
		dst.HTTP.TimeoutSec = src.HTTP.TimeoutSec
	}

	// Cache
	if src.Cache.TTLSec != 0 {
		dst.Cache.TTLSec = src.Cache.TTLSec
	}

	// API
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = src.API.CORSOrigins
	}

	// News
	if src.News.Limit != 0 {
		dst.News.Limit = src.News.Limit
	}

	// Logging
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
