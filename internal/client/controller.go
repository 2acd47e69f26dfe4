package client

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	"github.com/zhouzirui/opencode-chat/internal/model/provider"
	"github.com/zhouzirui/opencode-chat/internal/transport"
)

var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrNoSession         = errors.New("no active session")
	ErrSelectionRequired = transport.ErrSelectionRequired
)

const (
	NoticeSessionStarted   = "New session started. Ready for input."
	NoticeSelectionMissing = "Please select a provider and model"
	NoticeConnectFailed    = "WebSocket connection failed"
)

// API is the request/response surface the controller needs from the backend.
type API interface {
	StartServer(ctx context.Context) (transport.ServerStatus, error)
	StopServer(ctx context.Context) (transport.ServerStatus, error)
	Status(ctx context.Context) (transport.ServerStatus, error)
	NewSession(ctx context.Context) (string, error)
	Providers(ctx context.Context) ([]provider.Provider, error)
	Models(ctx context.Context, providerID string) ([]provider.Model, error)
}

// View renders controller state. It is called on the scheduler's owner
// goroutine.
type View interface {
	OnEntry(Entry)
	OnReset(Entry)
	OnStatus(LinkStatus)
	OnSelection(Selection)
}

type nopView struct{}

func (nopView) OnEntry(Entry)         {}
func (nopView) OnReset(Entry)         {}
func (nopView) OnStatus(LinkStatus)   {}
func (nopView) OnSelection(Selection) {}

// Controller binds user intents to backend calls. Every method must be
// called on the scheduler's owner goroutine; results are posted back there.
type Controller struct {
	sched Scheduler
	api   API
	tr    *transport.Transport
	prefs Prefs
	view  View

	status    LinkStatus
	session   SessionState
	selection Selection
	log       Log

	link transport.Link
	// epoch advances whenever the link is attached or dropped. Replies
	// carry the epoch they were sent in.
	epoch uint64
}

// NewController wires a controller. A nil view discards rendering.
func NewController(sched Scheduler, api API, tr *transport.Transport, prefs Prefs, view View) *Controller {
	if view == nil {
		view = nopView{}
	}
	if prefs == nil {
		prefs = NewMemoryPrefs()
	}
	return &Controller{
		sched: sched,
		api:   api,
		tr:    tr,
		prefs: prefs,
		view:  view,
	}
}

func (c *Controller) Status() LinkStatus    { return c.status }
func (c *Controller) Session() SessionState { return c.session }
func (c *Controller) Selection() Selection  { return c.selection }
func (c *Controller) Entries() []Entry      { return c.log.Entries() }
func (c *Controller) LinkConnected() bool   { return c.link != nil && c.link.Connected() }

// CheckStatus asks the backend whether it is already running and, if so,
// attaches to it.
func (c *Controller) CheckStatus() {
	if c.status != Stopped {
		return
	}

	var status transport.ServerStatus
	var err error
	c.sched.Await(func() {
		status, err = c.api.Status(context.Background())
	}, func() {
		if err != nil {
			log.Printf("[client] check server status: %v", err)
			return
		}
		if status.Running && c.status == Stopped {
			c.setStatus(Starting)
			c.connect()
		}
	})
}

// StartServer starts the backend engine and attaches to it.
func (c *Controller) StartServer() {
	if c.status != Stopped {
		return
	}
	c.setStatus(Starting)

	var status transport.ServerStatus
	var err error
	c.sched.Await(func() {
		status, err = c.api.StartServer(context.Background())
	}, func() {
		switch {
		case err != nil:
			c.appendEntry(KindError, "Error starting server: "+err.Error())
			c.setStatus(Stopped)
		case !status.Success:
			c.appendEntry(KindError, "Failed to start server")
			c.setStatus(Stopped)
		default:
			c.appendEntry(KindSystem, "Server started successfully")
			c.connect()
		}
	})
}

// StopServer stops the backend engine and drops the link and session.
func (c *Controller) StopServer() {
	if c.status != Running {
		return
	}
	c.setStatus(Stopping)

	var status transport.ServerStatus
	var err error
	c.sched.Await(func() {
		status, err = c.api.StopServer(context.Background())
	}, func() {
		switch {
		case err != nil:
			c.appendEntry(KindError, "Error stopping server: "+err.Error())
			c.setStatus(Running)
		case !status.Success:
			c.appendEntry(KindError, "Failed to stop server")
			c.setStatus(Running)
		default:
			c.leaveRunning()
			c.appendEntry(KindSystem, "Server stopped")
		}
	})
}

// Disconnect drops the persistent link and the session without stopping
// the backend.
func (c *Controller) Disconnect() {
	if c.status != Running {
		return
	}
	c.leaveRunning()
	c.appendEntry(KindSystem, "Disconnected")
}

func (c *Controller) connect() {
	var link transport.Link
	var err error
	c.sched.Await(func() {
		link, err = c.tr.Connect(context.Background())
	}, func() {
		if err != nil {
			log.Printf("[client] connect: %v", err)
			c.appendEntry(KindError, NoticeConnectFailed)
			c.setStatus(Stopped)
			return
		}
		if c.status != Starting {
			c.tr.Release(link)
			return
		}

		c.epoch++
		c.link = link
		c.pump(link, c.epoch)
		c.setStatus(Running)

		c.NewSession()
		c.LoadProviders()
	})
}

// pump forwards link events to the owner goroutine in arrival order.
func (c *Controller) pump(link transport.Link, epoch uint64) {
	events := link.Events()
	c.sched.Go(func() {
		for ev := range events {
			ev := ev
			c.sched.Post(func() {
				c.handleLinkEvent(link, epoch, ev)
			})
		}
	})
}

func (c *Controller) handleLinkEvent(link transport.Link, epoch uint64, ev transport.Event) {
	if epoch != c.epoch {
		return
	}

	if ev.Response != nil {
		c.handleResponse(epoch, *ev.Response)
	}
	if ev.Err != nil {
		c.appendEntry(KindError, "Connection error: "+ev.Err.Error())
	}
	if ev.Lost {
		c.tr.Release(link)
		c.link = nil
		c.epoch++
		c.appendEntry(KindSystem, "Connection lost, messages will be sent over HTTP")
	}
}

func (c *Controller) leaveRunning() {
	c.tr.Disconnect()
	c.link = nil
	c.epoch++
	c.session = SessionState{}
	c.setStatus(Stopped)
}

// NewSession asks the backend for a fresh session and resets the log.
func (c *Controller) NewSession() {
	epoch := c.epoch

	var id string
	var err error
	c.sched.Await(func() {
		id, err = c.api.NewSession(context.Background())
	}, func() {
		if epoch != c.epoch {
			return
		}
		if err != nil {
			var appErr *transport.ApplicationError
			if errors.As(err, &appErr) {
				c.appendEntry(KindError, "Failed to create session: "+appErr.Message)
			} else {
				c.appendEntry(KindError, "Error creating session: "+err.Error())
			}
			return
		}

		c.session = SessionState{ID: id}
		c.view.OnReset(c.log.Reset(NoticeSessionStarted))
		c.appendEntry(KindSystem, "New session created: "+id)
	})
}

// LoadProviders fetches the provider list and restores or auto-selects one.
func (c *Controller) LoadProviders() {
	var providers []provider.Provider
	var err error
	c.sched.Await(func() {
		providers, err = c.api.Providers(context.Background())
	}, func() {
		if err != nil {
			c.appendEntry(KindError, "Error loading providers: "+err.Error())
			return
		}

		c.selection.Providers = providers
		last := c.prefs.Get(KeyLastProvider)
		switch {
		case last != "" && hasProvider(providers, last):
			c.SelectProvider(last)
		case len(providers) == 1:
			c.SelectProvider(providers[0].ID)
		default:
			c.selection.ProviderID = ""
			c.selection.ModelID = ""
			c.selection.Models = nil
			c.view.OnSelection(c.selection)
		}
	})
}

// SelectProvider chooses a provider, remembers it and loads its models.
// An empty id clears the model list.
func (c *Controller) SelectProvider(id string) {
	c.selection.ProviderID = id
	c.selection.ModelID = ""
	c.selection.Models = nil

	if id == "" {
		c.view.OnSelection(c.selection)
		return
	}
	c.remember(KeyLastProvider, id)

	var models []provider.Model
	var err error
	c.sched.Await(func() {
		models, err = c.api.Models(context.Background(), id)
	}, func() {
		if c.selection.ProviderID != id {
			return
		}
		if err != nil {
			c.appendEntry(KindError, "Error loading models: "+err.Error())
			c.view.OnSelection(c.selection)
			return
		}

		c.selection.Models = models
		last := c.prefs.Get(KeyLastModel)
		switch {
		case last != "" && hasModel(models, last):
			c.SelectModel(last)
		case len(models) > 0:
			c.SelectModel(models[0].ID)
		default:
			c.view.OnSelection(c.selection)
		}
	})
}

// SelectModel chooses a model and remembers it.
func (c *Controller) SelectModel(id string) {
	c.selection.ModelID = id
	if id != "" {
		c.remember(KeyLastModel, id)
	}
	c.view.OnSelection(c.selection)
}

func (c *Controller) remember(key, value string) {
	if err := c.prefs.Set(key, value); err != nil {
		log.Printf("[client] save %s: %v", key, err)
	}
}

// Send validates content and hands it to the transport. Replies arriving
// over HTTP are handled here; channel replies come through the link pump.
func (c *Controller) Send(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if !c.session.Active() {
		return ErrNoSession
	}

	msg := chat.NewChatMessage(content, c.selection.ProviderID, c.selection.ModelID)
	if !msg.Sendable() {
		c.appendEntry(KindError, NoticeSelectionMissing)
		return ErrSelectionRequired
	}

	c.appendEntry(KindUser, content)
	c.session.MessageCount++
	epoch := c.epoch

	var resp *chat.ChatResponse
	var err error
	c.sched.Await(func() {
		_, resp, err = c.tr.Send(context.Background(), msg)
	}, func() {
		if err != nil {
			c.appendEntry(KindError, "Failed to send message: "+err.Error())
			return
		}
		if resp != nil {
			c.handleResponse(epoch, *resp)
		}
	})
	return nil
}

func (c *Controller) handleResponse(epoch uint64, resp chat.ChatResponse) {
	switch resp.Type {
	case chat.TypeError:
		c.appendEntry(KindError, resp.Content)
	case chat.TypeSystem:
		c.appendEntry(KindSystem, resp.Content)
	default:
		c.appendEntry(KindAssistant, resp.Content)
	}

	if resp.SessionID == "" || resp.SessionID == c.session.ID {
		return
	}
	if epoch != c.epoch {
		log.Printf("[client] dropping session id %s from a closed link", resp.SessionID)
		return
	}
	c.session.ID = resp.SessionID
}

func (c *Controller) appendEntry(kind EntryKind, raw string) {
	c.view.OnEntry(c.log.Append(kind, raw))
}

func (c *Controller) setStatus(status LinkStatus) {
	if c.status == status {
		return
	}
	c.status = status
	c.view.OnStatus(status)
}
