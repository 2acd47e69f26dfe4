package provider

// Provider is a selectable model vendor exposed to the client.
type Provider struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Models []Model `json:"-"`
}

// Model is one selectable model of a provider.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultProvider is listed when no provider is configured.
func DefaultProvider() Provider {
	return Provider{ID: "ark", Name: "Volcengine Ark"}
}

// DefaultModels is returned when a provider has no configured models.
func DefaultModels() []Model {
	return []Model{
		{ID: "doubao-seed-1-6", Name: "Doubao Seed 1.6"},
		{ID: "doubao-1-5-pro-32k", Name: "Doubao 1.5 Pro 32k"},
	}
}
