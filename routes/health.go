package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"wifski/encoder"
	"wifski/failures"
	"wifski/job"
	"wifski/logger"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	GoVersion    string    `json:"go_version"`
	Uptime       string    `json:"uptime"`
	StartTime    string    `json:"start_time"`
	FFmpeg       bool      `json:"ffmpeg"`
	Workers      int       `json:"workers"`
	InFlight     int       `json:"in_flight"`
	Waiting      int       `json:"waiting"`
	ActiveJobs   int       `json:"active_jobs"`
	FailureStore string    `json:"failure_store"`
	Sources      []string  `json:"sources"`
}

// Global start time for uptime calculation
var startTime = time.Now()

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports pipeline capacity and dependency status. It answers
// 503 when ffmpeg cannot be found, since every conversion would fail.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Health check request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for health endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pool := s.Processor.Pool()
	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Version:    Version(),
		GoVersion:  runtime.Version(),
		Uptime:     formatUptime(time.Since(startTime)),
		StartTime:  startTime.Format("2006-01-02 15:04:05 MST"),
		FFmpeg:     encoder.Available(s.FFmpegPath) == nil,
		Workers:    pool.Size(),
		InFlight:   pool.InFlight(),
		Waiting:    pool.Waiting(),
		ActiveJobs: len(job.ActiveJobs()),
		Sources:    []string{},
	}
	if s.Fetcher != nil {
		response.Sources = s.Fetcher.Enabled()
	}

	switch {
	case !failures.Enabled():
		response.FailureStore = "disabled"
	case failures.CheckHealth() != nil:
		response.FailureStore = "unhealthy"
		response.Status = "degraded"
	default:
		response.FailureStore = "ok"
	}

	code := http.StatusOK
	if !response.FFmpeg {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	logger.Debugf("Health check response: status=%s, version=%s", response.Status, response.Version)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode health response: %v", err)
	}
}
