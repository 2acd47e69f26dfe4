package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/opencode-chat/internal/client"
)

const localHelp = `Local commands:
  :start              start the backend engine
  :stop               stop the backend engine
  :disconnect         drop the live connection
  :new                start a new session
  :providers          reload providers
  :provider <id>      select a provider (no id clears it)
  :model <id>         select a model
  :status             show connection, session and selection
  :export <file>      write the chat log as HTML
  :quit               exit
Anything else is sent to the backend; /help lists backend commands.`

// localCommand is a parsed ":name args" line.
type localCommand struct {
	name string
	arg  string
}

func parseLocal(input string) (localCommand, bool) {
	if !strings.HasPrefix(input, ":") {
		return localCommand{}, false
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, ":"), " ")
	return localCommand{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

// runInput handles one line of input. It returns false when the client
// should exit.
func runInput(loop *client.Loop, ctrl *client.Controller, input string) bool {
	cmd, ok := parseLocal(input)
	if !ok {
		loop.Post(func() {
			if err := ctrl.Send(input); errors.Is(err, client.ErrNoSession) {
				fmt.Println(errorStyle.Render("[error] ") + "no active session, start the server first")
			}
		})
		return true
	}

	switch cmd.name {
	case "quit", "exit", "q":
		return false
	case "help":
		fmt.Println(localHelp)
	case "start":
		loop.Post(ctrl.StartServer)
	case "stop":
		loop.Post(ctrl.StopServer)
	case "disconnect":
		loop.Post(ctrl.Disconnect)
	case "new":
		loop.Post(ctrl.NewSession)
	case "providers":
		loop.Post(ctrl.LoadProviders)
	case "provider":
		loop.Post(func() { ctrl.SelectProvider(cmd.arg) })
	case "model":
		loop.Post(func() { ctrl.SelectModel(cmd.arg) })
	case "status":
		loop.Call(func() { fmt.Println(describe(ctrl)) })
	case "export":
		if cmd.arg == "" {
			fmt.Println(errorStyle.Render("[error] ") + "usage: :export <file>")
			break
		}
		loop.Call(func() {
			if err := writeExport(cmd.arg, ctrl.Entries()); err != nil {
				fmt.Println(errorStyle.Render("[error] ") + err.Error())
				return
			}
			fmt.Println(statusStyle.Render("exported to " + cmd.arg))
		})
	default:
		fmt.Println(errorStyle.Render("[error] ") + "unknown command :" + cmd.name)
	}
	return true
}

func describe(ctrl *client.Controller) string {
	var b strings.Builder
	fmt.Fprintf(&b, "server:    %s\n", ctrl.Status())
	if ctrl.LinkConnected() {
		b.WriteString("transport: websocket\n")
	} else {
		b.WriteString("transport: http\n")
	}

	session := ctrl.Session()
	if session.Active() {
		fmt.Fprintf(&b, "session:   %s (%d messages)\n", session.ID, session.MessageCount)
	} else {
		b.WriteString("session:   none\n")
	}

	sel := ctrl.Selection()
	fmt.Fprintf(&b, "provider:  %s\n", orDash(sel.ProviderID))
	fmt.Fprintf(&b, "model:     %s", orDash(sel.ModelID))
	if len(sel.Providers) > 0 {
		ids := make([]string, 0, len(sel.Providers))
		for _, p := range sel.Providers {
			ids = append(ids, p.ID)
		}
		fmt.Fprintf(&b, "\nproviders: %s", strings.Join(ids, ", "))
	}
	if len(sel.Models) > 0 {
		ids := make([]string, 0, len(sel.Models))
		for _, m := range sel.Models {
			ids = append(ids, m.ID)
		}
		fmt.Fprintf(&b, "\nmodels:    %s", strings.Join(ids, ", "))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
