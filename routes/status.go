package routes

import (
	"encoding/json"
	"net/http"

	"wifski/job"
	"wifski/logger"
)

// StatusHandler is the liveness probe clients have always polled.
func StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ActiveJobsHandler lists the conversions currently queued or running
func ActiveJobsHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Active jobs request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := job.ActiveJobs()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	}); err != nil {
		logger.Errorf("Failed to encode jobs response: %v", err)
	}
}
