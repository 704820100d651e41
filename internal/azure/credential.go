// Package azure creates the Entra ID token credential used to call the
// Azure AI Agent Service.
package azure

import (
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/appconfig"
)

// environmentToCloud maps environment names to their corresponding cloud configurations.
var environmentToCloud = map[string]cloud.Configuration{
	"public":       cloud.AzurePublic,
	"usgovernment": cloud.AzureGovernment,
	"china":        cloud.AzureChina,
}

// NewCredential creates a DefaultAzureCredential for the configured cloud.
// It works with a service principal, a managed identity, workload identity
// or a local az login. A configured user-assigned identity is tried first.
func NewCredential(cfg appconfig.AgentsConfig) (azcore.TokenCredential, error) {
	clientOpts := azcore.ClientOptions{
		Cloud: ResolveCloud(cfg),
	}

	def, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: clientOpts,
		TenantID:      cfg.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create default credential: %w", err)
	}

	if cfg.ManagedIdentityClientID == "" {
		return def, nil
	}

	mi, err := azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
		ClientOptions: clientOpts,
		ID:            azidentity.ClientID(cfg.ManagedIdentityClientID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create managed identity credential: %w", err)
	}

	return azidentity.NewChainedTokenCredential([]azcore.TokenCredential{mi, def}, nil)
}

// ResolveCloud picks the cloud from the config, then ARM_ENVIRONMENT or
// AZURE_ENVIRONMENT. An explicit authority host overrides the cloud's.
func ResolveCloud(cfg appconfig.AgentsConfig) cloud.Configuration {
	cld := cloud.AzurePublic

	env := cfg.Cloud
	if env == "" {
		env = getFirstSetEnvVar("ARM_ENVIRONMENT", "AZURE_ENVIRONMENT")
	}
	if c, ok := environmentToCloud[strings.ToLower(env)]; ok {
		cld = c
	}

	host := cfg.AuthorityHost
	if host == "" {
		host = os.Getenv("AZURE_AUTHORITY_HOST")
	}
	if host != "" {
		cld.ActiveDirectoryAuthorityHost = host
	}

	return cld
}

func getFirstSetEnvVar(vars ...string) string {
	for _, v := range vars {
		if val := os.Getenv(v); val != "" {
			return val
		}
	}

	return ""
}
