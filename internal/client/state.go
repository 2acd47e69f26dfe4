package client

import "github.com/zhouzirui/opencode-chat/internal/model/provider"

// LinkStatus is the server/link availability state.
type LinkStatus int

const (
	Stopped LinkStatus = iota
	Starting
	Running
	Stopping
)

func (s LinkStatus) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// SessionState tracks the backend session this client is talking in.
type SessionState struct {
	ID           string
	MessageCount int
}

// Active reports whether a session id is held.
func (s SessionState) Active() bool {
	return s.ID != ""
}

// Selection is the chosen provider and model plus the lists they were
// chosen from.
type Selection struct {
	Providers  []provider.Provider
	Models     []provider.Model
	ProviderID string
	ModelID    string
}

// Complete reports whether both a provider and a model are chosen.
func (s Selection) Complete() bool {
	return s.ProviderID != "" && s.ModelID != ""
}

func hasProvider(list []provider.Provider, id string) bool {
	for _, p := range list {
		if p.ID == id {
			return true
		}
	}
	return false
}

func hasModel(list []provider.Model, id string) bool {
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}
