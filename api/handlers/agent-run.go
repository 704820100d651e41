package handlers

import (
	"net/http"

	services "github.com/EO-DataHub/eodhp-agent-runner/api/services"
)

// RunAgent godoc
// @Summary Run an Azure AI agent
// @Description Create a thread with the given input, run the agent on it and poll until the run finishes or the timeout passes. The thread's messages are returned in creation order. A run that finishes as failed still returns 200.
// @Tags agents
// @Accept json
// @Produce json
// @Param body body services.RunBody true "Run options; every field is optional"
// @Success 200 {object} services.RunResult
// @Success 204 "CORS preflight"
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /RunAgent [post]
func RunAgent(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.RunAgentService(svc, w, r)
	}
}
