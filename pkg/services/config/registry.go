package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	dbxconfig "github.com/databricks/databricks-sdk-go/config"
	"gopkg.in/ini.v1"
)

// AzureProfile holds the identity context for one Azure tenant profile as
// read from ~/.azure/config.
type AzureProfile struct {
	Name           string
	SubscriptionID string
	TenantID       string
	Environment    string
}

// Registry exposes the operator's configured cloud profiles: Azure tenants
// from the az CLI config and Databricks workspaces from ~/.databrickscfg.
type Registry interface {
	AzureProfiles(ctx context.Context) ([]AzureProfile, error)
	AzureProfile(ctx context.Context, name string) (*AzureProfile, error)
	WorkspaceProfiles(ctx context.Context) ([]string, error)
	WorkspaceConfig(ctx context.Context, profile string) (*dbxconfig.Config, error)
}

type fileRegistry struct {
	azure      *ini.File
	databricks *ini.File
}

// NewRegistry loads both profile files. A missing Databricks config is not
// fatal: Azure-only audits still run.
func NewRegistry(azurePath, databricksPath string) (Registry, error) {
	if azurePath == "" || databricksPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("unable to get home directory: %w", err)
		}
		if azurePath == "" {
			azurePath = filepath.Join(home, ".azure", "config")
		}
		if databricksPath == "" {
			databricksPath = filepath.Join(home, ".databrickscfg")
		}
	}

	azure, err := ini.Load(azurePath)
	if err != nil {
		return nil, fmt.Errorf("unable to load Azure config file: %w", err)
	}

	reg := &fileRegistry{azure: azure}
	if databricks, err := ini.Load(databricksPath); err == nil {
		reg.databricks = databricks
	}
	return reg, nil
}

func (r *fileRegistry) AzureProfiles(_ context.Context) ([]AzureProfile, error) {
	var profiles []AzureProfile
	for _, section := range r.azure.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, AzureProfile{
			Name:           section.Name(),
			SubscriptionID: section.Key("subscription").String(),
			TenantID:       section.Key("tenant").String(),
			Environment:    section.Key("environment").String(),
		})
	}
	return profiles, nil
}

func (r *fileRegistry) AzureProfile(ctx context.Context, name string) (*AzureProfile, error) {
	profiles, err := r.AzureProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("azure profile %s not found", name)
}

func (r *fileRegistry) WorkspaceProfiles(_ context.Context) ([]string, error) {
	if r.databricks == nil {
		return nil, nil
	}
	var profiles []string
	for _, section := range r.databricks.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (r *fileRegistry) WorkspaceConfig(_ context.Context, profile string) (*dbxconfig.Config, error) {
	if r.databricks == nil {
		return nil, fmt.Errorf("no databricks config loaded")
	}
	section := r.databricks.Section(profile)
	if section == nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("profile %s not found", profile)
	}
	return &dbxconfig.Config{
		Host:  section.Key("host").String(),
		Token: section.Key("token").String(),
	}, nil
}
