package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/registry"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
}

func (s *stubTool) Definition() mcp.Tool {
	return mcp.NewTool(s.name, mcp.WithDescription("stub"))
}

func (s *stubTool) Execute(_ context.Context, _ *logrus.Logger, _ *sync.Map, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

type stubToolWithHelp struct {
	stubTool
}

func (s *stubToolWithHelp) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{WhenToUse: "testing"}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestInitSetsSharedResources(t *testing.T) {
	registry.Init(testLogger())
	assert.NotNil(t, registry.GetLogger())
	assert.NotNil(t, registry.GetCache())
}

func TestRegisterAndGetTool(t *testing.T) {
	registry.Init(testLogger())
	registry.Register(&stubTool{name: "stub_search"})

	tool, ok := registry.GetTool("stub_search")
	require.True(t, ok)
	assert.Equal(t, "stub_search", tool.Definition().Name)
}

func TestDisabledToolNotRegistered(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "stub_disabled")
	registry.Init(testLogger())
	registry.Register(&stubTool{name: "stub_disabled"})

	_, ok := registry.GetTool("stub_disabled")
	assert.False(t, ok)
	assert.False(t, registry.ShouldRegisterTool("stub_disabled"))
}

func TestUploadRequiresEnablement(t *testing.T) {
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
	registry.Init(testLogger())
	assert.False(t, registry.ShouldRegisterTool("sharepoint_upload"))

	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "sharepoint_upload")
	assert.True(t, registry.ShouldRegisterTool("sharepoint_upload"))
}

func TestEnablementNormalisesNames(t *testing.T) {
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", " SharePoint-Upload ")
	registry.Init(testLogger())
	assert.True(t, registry.ShouldRegisterTool("sharepoint_upload"))
}

func TestEnableAllKeyword(t *testing.T) {
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "all")
	registry.Init(testLogger())
	assert.True(t, registry.ShouldRegisterTool("sharepoint_upload"))
}

func TestDefaultToolsEnabledWithoutEnv(t *testing.T) {
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
	registry.Init(testLogger())
	assert.True(t, registry.ShouldRegisterTool("sharepoint_search"))
	assert.True(t, registry.ShouldRegisterTool("sharepoint_excel"))
	assert.True(t, registry.ShouldRegisterTool("sharepoint_download"))
}

func TestGetToolNamesWithExtendedHelp(t *testing.T) {
	registry.Init(testLogger())
	registry.Register(&stubTool{name: "stub_plain"})
	registry.Register(&stubToolWithHelp{stubTool{name: "stub_helpful"}})

	names := registry.GetToolNamesWithExtendedHelp()
	assert.Contains(t, names, "stub_helpful")
	assert.NotContains(t, names, "stub_plain")
}
