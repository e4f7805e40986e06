package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryRouting,
		Message:  "Malformed route pattern",
		Detail:   "A route path could not be compiled. Parameters are written :name or :name(expr), and parentheses must balance.",
		DocURL:   "https://navstack.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryRouting,
		Message:  "Duplicate route name",
		Detail:   "Route names must be unique across the whole table, ignoring case.",
		DocURL:   "https://navstack.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryRouting,
		Message:  "Route has no page",
		Detail:   "Every route needs a page builder: a page, a redirect, or a guarded page.",
		DocURL:   "https://navstack.dev/docs/errors/E102",
	},
	"E103": {
		Category: CategoryRouting,
		Message:  "Parameter bound twice",
		Detail:   "A nested route reuses a parameter name already bound by one of its ancestors.",
		DocURL:   "https://navstack.dev/docs/errors/E103",
	},
	"E104": {
		Category: CategoryRouting,
		Message:  "No route matches location",
		Detail:   "No chain of routes consumes the whole location. A route that matches only a prefix does not count.",
		DocURL:   "https://navstack.dev/docs/errors/E104",
	},
	"E105": {
		Category: CategoryRouting,
		Message:  "Redirect loop",
		Detail:   "Resolution followed more redirects than the configured bound.",
		DocURL:   "https://navstack.dev/docs/errors/E105",
	},
	"E106": {
		Category: CategoryRouting,
		Message:  "Page builder failed",
		Detail:   "A page builder returned an error or panicked. Sibling routes are not tried.",
		DocURL:   "https://navstack.dev/docs/errors/E106",
	},
	"E107": {
		Category: CategoryRouting,
		Message:  "Route name lookup failed",
		Detail:   "The route name is unknown, or a required parameter is missing or cannot appear in a path segment.",
		DocURL:   "https://navstack.dev/docs/errors/E107",
	},
	"E108": {
		Category: CategoryRouting,
		Message:  "Invalid location",
		Detail:   "Locations must be absolute paths without a scheme or host, e.g. /family/f1?tab=members.",
		DocURL:   "https://navstack.dev/docs/errors/E108",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Route table not found",
		Detail:   "Could not find navstack.json or navstack.yaml in the current directory or any parent.",
		DocURL:   "https://navstack.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid route table syntax",
		Detail:   "The route table file contains invalid JSON or YAML.",
		DocURL:   "https://navstack.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is missing or out of range.",
		DocURL:   "https://navstack.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Remote route table unavailable",
		Detail:   "The route table could not be fetched from object storage.",
		DocURL:   "https://navstack.dev/docs/errors/E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Watching the route table failed",
		Detail:   "File change notifications could not be set up for the route table.",
		DocURL:   "https://navstack.dev/docs/errors/E124",
	},

	// ============================================
	// Guard Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryGuard,
		Message:  "Invalid guard expression",
		Detail:   "A route guard does not compile, or does not evaluate to a boolean.",
		DocURL:   "https://navstack.dev/docs/errors/E130",
	},
	"E131": {
		Category: CategoryGuard,
		Message:  "Guard evaluation failed",
		Detail:   "A route guard raised an error while evaluating, e.g. a missing state key.",
		DocURL:   "https://navstack.dev/docs/errors/E131",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Route table check failed",
		Detail:   "One or more routes failed to compile.",
		DocURL:   "https://navstack.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Invalid state",
		Detail:   "The --state flag must be a JSON object.",
		DocURL:   "https://navstack.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The navigation server stopped with an error.",
		DocURL:   "https://navstack.dev/docs/errors/E142",
	},
	"E143": {
		Category: CategoryCLI,
		Message:  "Invalid parameter",
		Detail:   "Parameters are given as name=value.",
		DocURL:   "https://navstack.dev/docs/errors/E143",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
