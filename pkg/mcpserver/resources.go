package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/patterns"
)

const (
	versionURI  = "bountyscout://version"
	progressURI = "bountyscout://progress"
	findingsURI = "bountyscout://findings"
)

func (s *Server) registerResources() {
	s.addJSONResource(versionURI, "bountyscout Version", "Server version, rule-set version and tool inventory.", func() any {
		return map[string]any{
			"name":        defaults.ToolName,
			"version":     defaults.Version,
			"rules":       patterns.Version,
			"catalog_api": defaults.CatalogBaseURL,
			"tools":       []string{"start_scan", "get_progress", "list_programs", "export_report"},
		}
	})
	s.addJSONResource(progressURI, "Scan Progress", "Current scan progress snapshot.", func() any {
		return s.scanner.Progress()
	})
	s.addJSONResource(findingsURI, "Latest Findings", "Scope targets of the latest scan that met the reflected/stored or DOM verdict.", func() any {
		return s.hook.Findings()
	})
}

func (s *Server) addJSONResource(uri, name, description string, value func() any) {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         uri,
			Name:        name,
			Description: description,
			MIMEType:    defaults.ContentTypeJSON,
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			data, err := jsonutil.MarshalIndent(value(), "  ")
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{URI: uri, MIMEType: defaults.ContentTypeJSON, Text: string(data)},
				},
			}, nil
		},
	)
}
