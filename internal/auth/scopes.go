package auth

// Known OAuth scopes used by the API surface.
const (
	ScopeTrendsRead         = "trends:read"
	ScopeSyncRun            = "sync:run"
	ScopeImportWrite        = "import:write"
	ScopeIntegrationsManage = "integrations:manage"
)
