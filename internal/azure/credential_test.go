package azure

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/appconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCloud_DefaultsToPublic(t *testing.T) {
	t.Setenv("ARM_ENVIRONMENT", "")
	t.Setenv("AZURE_ENVIRONMENT", "")
	t.Setenv("AZURE_AUTHORITY_HOST", "")

	cld := ResolveCloud(appconfig.AgentsConfig{})
	assert.Equal(t, cloud.AzurePublic.ActiveDirectoryAuthorityHost, cld.ActiveDirectoryAuthorityHost)
}

func TestResolveCloud_FromConfig(t *testing.T) {
	t.Setenv("AZURE_AUTHORITY_HOST", "")

	cld := ResolveCloud(appconfig.AgentsConfig{Cloud: "USGovernment"})
	assert.Equal(t, cloud.AzureGovernment.ActiveDirectoryAuthorityHost, cld.ActiveDirectoryAuthorityHost)
}

func TestResolveCloud_FromEnvironment(t *testing.T) {
	t.Setenv("ARM_ENVIRONMENT", "")
	t.Setenv("AZURE_ENVIRONMENT", "china")
	t.Setenv("AZURE_AUTHORITY_HOST", "")

	cld := ResolveCloud(appconfig.AgentsConfig{})
	assert.Equal(t, cloud.AzureChina.ActiveDirectoryAuthorityHost, cld.ActiveDirectoryAuthorityHost)
}

func TestResolveCloud_AuthorityHostOverride(t *testing.T) {
	t.Setenv("AZURE_AUTHORITY_HOST", "https://login.example.net/")

	cld := ResolveCloud(appconfig.AgentsConfig{Cloud: "public"})
	assert.Equal(t, "https://login.example.net/", cld.ActiveDirectoryAuthorityHost)

	cld = ResolveCloud(appconfig.AgentsConfig{AuthorityHost: "https://login.config.net/"})
	assert.Equal(t, "https://login.config.net/", cld.ActiveDirectoryAuthorityHost)
}

func TestNewCredential(t *testing.T) {
	cred, err := NewCredential(appconfig.AgentsConfig{})
	require.NoError(t, err)
	assert.IsType(t, &azidentity.DefaultAzureCredential{}, cred)

	cred, err = NewCredential(appconfig.AgentsConfig{ManagedIdentityClientID: "00000000-0000-0000-0000-000000000001"})
	require.NoError(t, err)
	assert.IsType(t, &azidentity.ChainedTokenCredential{}, cred)
}
