package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

const helpText = "Available commands:\n" +
	"- `/shell <command>` execute a shell command\n" +
	"- `/init` initialize codebase analysis\n" +
	"- `/new` start a new session\n" +
	"- `/help` show this help message"

func commandName(content string) string {
	name, _, _ := strings.Cut(content, " ")
	return strings.TrimSpace(name)
}

func (p *Processor) runCommand(ctx context.Context, sessionID, content string) chat.ChatResponse {
	name := commandName(content)
	args := strings.TrimSpace(strings.TrimPrefix(content, name))

	if _, err := p.save(ctx, sessionID, chat.SenderUser, content); err != nil {
		return chat.ErrorResponse("Error: "+err.Error(), sessionID)
	}

	switch name {
	case "/help":
		return p.reply(ctx, sessionID, helpText)
	case "/init":
		return p.reply(ctx, sessionID, "Session initialized for codebase analysis.")
	case "/new":
		return p.reply(ctx, sessionID, "Session closed. The next message starts a new session.")
	case "/shell":
		if args == "" {
			return chat.ErrorResponse("Error: usage: /shell <command>", sessionID)
		}
		output, err := p.shell.Run(ctx, args)
		if err != nil {
			return chat.ErrorResponse("Error executing command: "+err.Error(), sessionID)
		}
		return p.reply(ctx, sessionID, output)
	default:
		resp := chat.SystemResponse(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", name))
		resp.SessionID = sessionID
		return resp
	}
}
