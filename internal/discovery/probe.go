package discovery

// Method is the HTTP method a probe uses.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// Probe is a single representative request used to test a capability.
type Probe struct {
	Endpoint string
	Method   Method
	Payload  any // request body for POST/PUT; nil sends {}
	Label    string
}

// Outcome records what happened when a probe ran.
type Outcome struct {
	Endpoint   string `json:"endpoint"`
	Method     Method `json:"method"`
	Succeeded  bool   `json:"succeeded"`
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error,omitempty"`
}

// DefaultProbes returns the fixed probe battery in execution order.
// Delete is deliberately absent: no probe risks destroying real data.
func DefaultProbes() []Probe {
	return []Probe{
		{Endpoint: "/users/me", Method: MethodGet, Label: "Read current user"},
		{Endpoint: "/users", Method: MethodGet, Label: "List users"},

		{Endpoint: "/features", Method: MethodGet, Label: "Read features"},
		{Endpoint: "/features", Method: MethodPost, Label: "Create features",
			Payload: map[string]any{"name": "Permission Test Feature", "description": "Test"}},

		{Endpoint: "/products", Method: MethodGet, Label: "Read products"},
		{Endpoint: "/products", Method: MethodPost, Label: "Create products",
			Payload: map[string]any{"name": "Permission Test Product", "type": "product"}},

		{Endpoint: "/notes", Method: MethodGet, Label: "Read notes"},
		{Endpoint: "/notes", Method: MethodPost, Label: "Create notes",
			Payload: map[string]any{"content": "Permission test note"}},

		{Endpoint: "/companies", Method: MethodGet, Label: "Read companies"},

		{Endpoint: "/objectives", Method: MethodGet, Label: "Read objectives"},
		{Endpoint: "/objectives", Method: MethodPost, Label: "Create objectives",
			Payload: map[string]any{"name": "Test Objective", "type": "company"}},

		{Endpoint: "/releases", Method: MethodGet, Label: "Read releases"},
		{Endpoint: "/releases", Method: MethodPost, Label: "Create releases",
			Payload: map[string]any{"name": "Test Release"}},

		{Endpoint: "/custom_fields", Method: MethodGet, Label: "Read custom fields"},
		{Endpoint: "/custom_fields", Method: MethodPost, Label: "Create custom fields",
			Payload: map[string]any{"name": "Test Field", "type": "text"}},

		{Endpoint: "/webhooks", Method: MethodGet, Label: "Read webhooks"},
		{Endpoint: "/webhooks", Method: MethodPost, Label: "Create webhooks",
			Payload: map[string]any{"url": "https://example.com/webhook", "events": []string{"feature.created"}}},

		{Endpoint: "/search?q=test", Method: MethodGet, Label: "Search functionality"},

		// Typically admin-only.
		{Endpoint: "/analytics/features", Method: MethodGet, Label: "Feature analytics"},
		{Endpoint: "/analytics/users", Method: MethodGet, Label: "User analytics"},
	}
}
