package appconfig

import (
	"bytes"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// Config holds all configuration details
type Config struct {
	Host     string         `yaml:"host"`
	BasePath string         `yaml:"basePath"`
	DocsPath string         `yaml:"docsPath"`
	Function FunctionConfig `yaml:"function"`
	CORS     CORSConfig     `yaml:"cors"`
	Agents   AgentsConfig   `yaml:"agents"`
	Run      RunConfig      `yaml:"run"`
	Database DatabaseConfig `yaml:"database"`
	Pulsar   PulsarConfig   `yaml:"pulsar"`
}

// FunctionConfig names the HTTP-triggered function served by the custom handler
type FunctionConfig struct {
	Name string `yaml:"name"`
}

// CORSConfig defines the origins allowed to call the function
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowedOrigins"`
}

// AgentsConfig defines the Azure AI Agent Service connection details
type AgentsConfig struct {
	Endpoint                string `yaml:"endpoint"`
	AgentID                 string `yaml:"agentId"`
	APIVersion              string `yaml:"apiVersion"`
	Scope                   string `yaml:"scope"`
	Cloud                   string `yaml:"cloud"`
	AuthorityHost           string `yaml:"authorityHost"`
	TenantID                string `yaml:"tenantId"`
	ManagedIdentityClientID string `yaml:"managedIdentityClientId"`
}

// RunConfig defines defaults and limits applied to each agent run
type RunConfig struct {
	DefaultInput      string `yaml:"defaultInput"`
	PollIntervalMs    int    `yaml:"pollIntervalMs"`
	TimeoutMs         int    `yaml:"timeoutMs"`
	MinPollIntervalMs int    `yaml:"minPollIntervalMs"`
	MaxTimeoutMs      int    `yaml:"maxTimeoutMs"`
	CancelOnTimeout   bool   `yaml:"cancelOnTimeout"`
}

// DatabaseConfig defines the optional audit database connection details
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source"`
}

// PulsarConfig defines the optional messaging system connection details
type PulsarConfig struct {
	URL           string `yaml:"url"`
	TopicProducer string `yaml:"topicProducer"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		BasePath: "/api",
		DocsPath: "/docs",
		Function: FunctionConfig{Name: "RunAgent"},
		CORS:     CORSConfig{AllowedOrigins: "*"},
		Agents: AgentsConfig{
			APIVersion: "v1",
			Scope:      "https://ai.azure.com/.default",
		},
		Run: RunConfig{
			DefaultInput:      "Hi",
			PollIntervalMs:    1000,
			TimeoutMs:         60000,
			MinPollIntervalMs: 100,
			MaxTimeoutMs:      220000,
		},
		Database: DatabaseConfig{Driver: "postgres"},
	}
}

// LoadConfig loads and parses the configuration from a given file path.
// An empty path yields the defaults. In both cases empty fields are then
// filled from the well-known app settings of the function.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		// Parse the template file
		tmpl, err := template.New("config").Option("missingkey=zero").ParseFiles(path)
		if err != nil {
			log.Error().Err(err).Msg("error parsing config file template")
			return nil, err
		}

		// Execute the template with environment variables
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, baseName(path), loadEnvVars()); err != nil {
			log.Error().Err(err).Msg("error executing config file template")
			return nil, err
		}

		// Load and unmarshal the YAML over the defaults
		if err := yaml.Unmarshal(buf.Bytes(), config); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal config YAML")
			return nil, err
		}
	}

	config.applyEnv()
	return config, nil
}

// applyEnv fills empty fields from the process environment
func (c *Config) applyEnv() {
	setIfEmpty(&c.Agents.Endpoint, "AZURE_AI_ENDPOINT")
	setIfEmpty(&c.Agents.AgentID, "AZURE_AI_AGENT_ID")
	setIfEmpty(&c.Agents.AuthorityHost, "AZURE_AUTHORITY_HOST")
	setIfEmpty(&c.Agents.Cloud, "AZURE_ENVIRONMENT")
	setIfEmpty(&c.CORS.AllowedOrigins, "ALLOWED_ORIGINS")
	setIfEmpty(&c.Database.Source, "DATABASE_URL")
	setIfEmpty(&c.Pulsar.URL, "PULSAR_URL")
	setIfEmpty(&c.Pulsar.TopicProducer, "PULSAR_TOPIC")

	// ALLOWED_ORIGINS set in the environment wins over the built-in wildcard
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" && c.CORS.AllowedOrigins == "*" {
		c.CORS.AllowedOrigins = v
	}
}

// FunctionPath returns the route the host forwards the function's requests to
func (c *Config) FunctionPath() string {
	return strings.TrimRight(c.BasePath, "/") + "/" + c.Function.Name
}

func setIfEmpty(field *string, env string) {
	if *field != "" {
		return
	}
	*field = os.Getenv(env)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
