// Package settings reads and checks the files the Azure Functions host needs
// to start the custom handler: local.settings.json, host.json and the
// function's function.json.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

const (
	// RuntimeSelectorKey selects the language worker used by the host.
	RuntimeSelectorKey = "FUNCTIONS_WORKER_RUNTIME"
	// StorageKey is the connection string of the host's storage account.
	StorageKey = "AzureWebJobsStorage"
	// CustomHandlerRuntime is the runtime selector value for custom handlers.
	CustomHandlerRuntime = "custom"
	// PortKey is set by the host to the port the handler must listen on.
	PortKey = "FUNCTIONS_CUSTOMHANDLER_PORT"
)

// LocalSettings mirrors local.settings.json.
type LocalSettings struct {
	IsEncrypted bool              `json:"IsEncrypted"`
	Values      map[string]string `json:"Values"`
	Host        struct {
		LocalHttpPort int    `json:"LocalHttpPort"`
		CORS          string `json:"CORS"`
	} `json:"Host"`
	ConnectionStrings map[string]string `json:"ConnectionStrings"`
}

// LoadLocalSettings reads local.settings.json from path.
func LoadLocalSettings(path string) (*LocalSettings, error) {
	var s LocalSettings
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Apply exports the values into the process environment without
// overriding variables that are already set, as `func start` does.
func (s *LocalSettings) Apply() error {
	for k, v := range s.Values {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return nil
}

// Validate reports settings that stop the host from starting the handler.
func (s *LocalSettings) Validate() error {
	var errs []error

	if s.IsEncrypted {
		errs = append(errs, errors.New("local settings are encrypted; decrypt them with `func settings decrypt`"))
	}

	switch selector := s.Values[RuntimeSelectorKey]; {
	case selector == "":
		errs = append(errs, fmt.Errorf("%s is missing; set it to %q", RuntimeSelectorKey, CustomHandlerRuntime))
	case !strings.EqualFold(selector, CustomHandlerRuntime):
		errs = append(errs, fmt.Errorf("%s is %q; custom handlers require %q", RuntimeSelectorKey, selector, CustomHandlerRuntime))
	}

	if s.Values[StorageKey] == "" {
		errs = append(errs, fmt.Errorf("%s is missing; use \"UseDevelopmentStorage=true\" with Azurite for local runs", StorageKey))
	}

	return errors.Join(errs...)
}

// Host mirrors the parts of host.json the custom handler depends on.
type Host struct {
	Version         string `json:"version"`
	ExtensionBundle struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	} `json:"extensionBundle"`
	CustomHandler struct {
		Description struct {
			DefaultExecutablePath string   `json:"defaultExecutablePath"`
			WorkingDirectory      string   `json:"workingDirectory"`
			Arguments             []string `json:"arguments"`
		} `json:"description"`
		EnableForwardingHttpRequest bool `json:"enableForwardingHttpRequest"`
	} `json:"customHandler"`
}

// LoadHost reads host.json from path.
func LoadHost(path string) (*Host, error) {
	var h Host
	if err := readJSON(path, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *Host) Validate() error {
	var errs []error

	if h.Version != "2.0" {
		errs = append(errs, fmt.Errorf("host.json version is %q, want \"2.0\"", h.Version))
	}
	if h.ExtensionBundle.ID == "" {
		errs = append(errs, errors.New("host.json extensionBundle.id is missing"))
	}
	if h.CustomHandler.Description.DefaultExecutablePath == "" {
		errs = append(errs, errors.New("host.json customHandler.description.defaultExecutablePath is missing"))
	}
	if !h.CustomHandler.EnableForwardingHttpRequest {
		errs = append(errs, errors.New("host.json customHandler.enableForwardingHttpRequest must be true"))
	}

	return errors.Join(errs...)
}

// Binding is one entry of function.json's bindings.
type Binding struct {
	Type      string   `json:"type"`
	Direction string   `json:"direction"`
	Name      string   `json:"name"`
	AuthLevel string   `json:"authLevel,omitempty"`
	Methods   []string `json:"methods,omitempty"`
	Route     string   `json:"route,omitempty"`
}

// Function mirrors function.json.
type Function struct {
	Bindings []Binding `json:"bindings"`
	Disabled bool      `json:"disabled"`
}

// LoadFunction reads function.json from path.
func LoadFunction(path string) (*Function, error) {
	var f Function
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

var authLevels = []string{"anonymous", "function", "admin"}

func (f *Function) Validate() error {
	var errs []error

	var triggers []Binding
	hasOutput := false
	for _, b := range f.Bindings {
		switch {
		case b.Type == "httpTrigger" && b.Direction == "in":
			triggers = append(triggers, b)
		case b.Type == "http" && b.Direction == "out":
			hasOutput = true
		}
	}

	if len(triggers) != 1 {
		errs = append(errs, fmt.Errorf("function.json must have exactly one httpTrigger input binding, found %d", len(triggers)))
	} else {
		trigger := triggers[0]
		if !slices.Contains(authLevels, strings.ToLower(trigger.AuthLevel)) {
			errs = append(errs, fmt.Errorf("httpTrigger authLevel %q is not one of %s", trigger.AuthLevel, strings.Join(authLevels, ", ")))
		}
		for _, m := range []string{"post", "options"} {
			if !slices.ContainsFunc(trigger.Methods, func(s string) bool { return strings.EqualFold(s, m) }) {
				errs = append(errs, fmt.Errorf("httpTrigger methods must include %q", m))
			}
		}
	}
	if !hasOutput {
		errs = append(errs, errors.New("function.json has no http output binding"))
	}
	if f.Disabled {
		errs = append(errs, errors.New("function is disabled"))
	}

	return errors.Join(errs...)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
