// Package types holds the JSON payloads of the HTTP API.
package types

// ChatRequest asks the assistant a question.
type ChatRequest struct {
	// Required query text.
	// example: What is the weather like?
	Query string `json:"query" example:"What is the weather like?"`
	// Optional labeled context lines prepended to the prompt.
	Context map[string]string `json:"context,omitempty"`
}

// ChatResponse is the assistant's answer.
type ChatResponse struct {
	// Generated answer text.
	// example: It looks sunny outside.
	Response string `json:"response" example:"It looks sunny outside."`
	// Model that produced the answer.
	// example: gemma-2-2b-it-Q4_K_M
	Model string `json:"model" example:"gemma-2-2b-it-Q4_K_M"`
	// Unique id of this request.
	RequestID string `json:"request_id"`
	// Conversation session id, stable for the daemon's lifetime.
	SessionID string `json:"session_id"`
	// Wall time spent answering, in milliseconds.
	// example: 1250
	DurationMS int64 `json:"duration_ms" example:"1250"`
	// Blocked-action keywords found in the answer, if any.
	DangerKeywords []string `json:"danger_keywords,omitempty"`
	// True when the answer needs explicit user confirmation before acting.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`
}

// SearchRequest asks for a web search.
type SearchRequest struct {
	// Required query text.
	// example: golang lifecycle management
	Query string `json:"query" example:"golang lifecycle management"`
	// Maximum results to return; 0 uses the configured default.
	// example: 5
	MaxResults int `json:"max_results,omitempty" example:"5"`
	// Serve from the result cache when a fresh entry exists. Defaults true.
	UseCache *bool `json:"use_cache,omitempty"`
}

// SearchResult is one web hit.
type SearchResult struct {
	Title   string `json:"title" example:"The Go Programming Language"`
	URL     string `json:"url" example:"https://go.dev/"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source" example:"duckduckgo"`
}

// SearchResponse is returned by POST /search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	// True when the results came from the cache.
	FromCache bool `json:"from_cache"`
	// Age of the cached entry in seconds, when FromCache is set.
	CacheAgeSeconds int64 `json:"cache_age_seconds,omitempty"`
	DurationMS      int64 `json:"duration_ms"`
}

// VisionRequest asks for image analysis.
type VisionRequest struct {
	// Path of the image to analyze; empty captures the screen first.
	ImagePath string `json:"image_path,omitempty"`
	// Question steering the caption model.
	// example: Describe what is on the screen.
	Question string `json:"question,omitempty" example:"Describe what is on the screen."`
	// Also run object detection.
	Detect bool `json:"detect,omitempty"`
}

// Detection is one object found in an image.
type Detection struct {
	Label      string  `json:"label" example:"window"`
	Confidence float64 `json:"confidence" example:"0.92"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// VisionResponse is returned by POST /vision/analyze.
type VisionResponse struct {
	ImagePath  string      `json:"image_path"`
	Text       string      `json:"text"`
	Caption    string      `json:"caption,omitempty"`
	Detections []Detection `json:"detections,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	DurationMS int64       `json:"duration_ms"`
}

// AutomationRequest is one desktop action.
type AutomationRequest struct {
	// Action to perform: move|click|type|key|screenshot.
	// example: click
	Action string `json:"action" example:"click"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	// Mouse button: left|middle|right. Defaults to left.
	Button string `json:"button,omitempty" example:"left"`
	Text   string `json:"text,omitempty"`
	Key    string `json:"key,omitempty" example:"Return"`
	// Acknowledges a blocked-keyword hold.
	Confirmed bool `json:"confirmed,omitempty"`
}

// AutomationResponse is returned by POST /automation/execute.
type AutomationResponse struct {
	Action         string `json:"action"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
}

// ComponentStatus summarizes one managed component for /status.
type ComponentStatus struct {
	// Component name.
	// example: chat_model
	Name string `json:"name" example:"chat_model"`
	// Lifecycle state: not_loaded|loading|loaded|unloading|error.
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Seconds since the component was last used; 0 when never used.
	// example: 12
	IdleSeconds int64 `json:"idle_seconds" example:"12"`
	// Number of acquisitions since registration.
	// example: 40
	AccessCount uint64 `json:"access_count" example:"40"`
	// Advisory resident memory estimate in MB.
	// example: 1600
	EstMemoryMB int `json:"est_memory_mb" example:"1600"`
}

// SystemInfo summarizes the host for /status.
type SystemInfo struct {
	Platform          string  `json:"platform" example:"linux 6.8"`
	CPUCount          int     `json:"cpu_count" example:"8"`
	CPUPercent        float64 `json:"cpu_percent" example:"12.5"`
	MemoryTotalMB     uint64  `json:"memory_total_mb" example:"16384"`
	MemoryAvailableMB uint64  `json:"memory_available_mb" example:"9216"`
	MemoryUsedPercent float64 `json:"memory_used_percent" example:"42.5"`
	DiskTotalGB       float64 `json:"disk_total_gb"`
	DiskFreeGB        float64 `json:"disk_free_gb"`
	DiskUsedPercent   float64 `json:"disk_used_percent"`
}

// CacheStats summarizes the search result cache.
type CacheStats struct {
	TotalEntries int `json:"total_entries"`
	LastHour     int `json:"last_hour"`
	LastDay      int `json:"last_day"`
	Older        int `json:"older"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Managed components, sorted by name.
	Components []ComponentStatus `json:"components"`
	// Count of components currently resident.
	// example: 2
	ResidentCount int `json:"resident_count" example:"2"`
	// Sum of resident memory estimates in MB.
	// example: 1650
	ResidentEstMB int `json:"resident_est_mb" example:"1650"`
	// Host snapshot; omitted when probing failed.
	System *SystemInfo `json:"system,omitempty"`
	// Search cache shape; omitted when search is disabled.
	SearchCache *CacheStats `json:"search_cache,omitempty"`
	// Uptime of the daemon in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ComponentsResponse wraps the component list for GET /components.
type ComponentsResponse struct {
	Components []ComponentStatus `json:"components"`
}

// EvictResponse is returned by POST /components/{name}/evict.
type EvictResponse struct {
	// Component that was asked to unload.
	// example: chat_model
	Component string `json:"component" example:"chat_model"`
	// Resulting state.
	// example: not_loaded
	State string `json:"state" example:"not_loaded"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
