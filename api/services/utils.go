package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/EO-DataHub/eodhp-agent-runner/models"
)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}) {

	w.Header().Set("Content-Type", "application/json")

	// We don't want to cache API responses so the client receives most curent data
	w.Header().Set("Cache-Control", "max-age=0")

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return // **Return immediately to avoid multiple WriteHeader calls**
		}
	}
}

// WriteError writes the JSON error body. details is omitted when empty.
func WriteError(w http.ResponseWriter, statusCode int, msg string, details string) {
	WriteResponse(w, statusCode, models.ErrorResponse{Error: msg, Details: details})
}

// errorDetails shortens Azure response errors, whose Error() spans several
// lines, to the failed step, status and error code.
func errorDetails(err error) string {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err.Error()
	}

	code := respErr.ErrorCode
	if code == "" {
		code = http.StatusText(respErr.StatusCode)
	}
	details := fmt.Sprintf("agent service returned %d %s", respErr.StatusCode, code)

	var stepErr *runStepError
	if errors.As(err, &stepErr) {
		return fmt.Sprintf("failed to %s: %s", stepErr.Step, details)
	}
	return details
}
