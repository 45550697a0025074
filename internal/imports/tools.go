package imports

import (
	// Tool packages register themselves with the registry via init()
	_ "github.com/ncdcdev/sharepoint-docs-mcp/internal/tools/excel"
	_ "github.com/ncdcdev/sharepoint-docs-mcp/internal/tools/sharepointfiles"
	_ "github.com/ncdcdev/sharepoint-docs-mcp/internal/tools/sharepointsearch"
	_ "github.com/ncdcdev/sharepoint-docs-mcp/internal/tools/toolhelp"
)
