package routes

import (
	"fmt"
	"net/http"

	"wifski/job"
	"wifski/logger"
)

// CancelJobHandler cancels an in-flight conversion by request id
func CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Cancel job request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodDelete {
		logger.Warnf("Invalid method for cancel endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	logger.Infof("Attempting to cancel job: %s", id)
	if err := job.CancelJob(id); err != nil {
		logger.Warnf("Failed to cancel job %s: %v", id, err)
		http.Error(w, fmt.Sprintf("Job not found: %v", err), http.StatusNotFound)
		return
	}

	logger.Infof("Job cancelled: %s", id)
	w.WriteHeader(http.StatusNoContent)
}
