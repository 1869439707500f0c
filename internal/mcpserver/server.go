// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes meeting tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/meetbook/internal/apperr"
	"github.com/starford/meetbook/internal/auth"
	"github.com/starford/meetbook/internal/meetingservice"
)

const formatURI = "meetbook://meeting-format"

// Server wraps the MCP server with meeting tools. Every call runs as a
// single fixed identity.
type Server struct {
	mcp    *server.MCPServer
	svc    *meetingservice.Service
	caller auth.Identity
}

// New creates a new MCP server with all meeting tools registered.
func New(svc *meetingservice.Service, caller auth.Identity) *Server {
	s := &Server{svc: svc, caller: caller}

	s.mcp = server.NewMCPServer(
		"meetbook",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_meetings",
		mcp.WithDescription("List active meetings visible to the server identity, newest first."),
		mcp.WithString("createBy", mcp.Description("Optional creator id; honored for admin identities only")),
	), s.listMeetings)

	s.mcp.AddTool(mcp.NewTool("view_meeting",
		mcp.WithDescription("Read one meeting with its creator name and resolved attendees."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Meeting id (24 hex chars)")),
	), s.viewMeeting)

	s.mcp.AddTool(mcp.NewTool("add_meeting",
		mcp.WithDescription("Create a meeting. Read the contract first via the get_meeting_contract "+
			"tool or the "+formatURI+" resource."),
		mcp.WithString("agenda", mcp.Required(), mcp.Description("What the meeting is about")),
		mcp.WithString("related", mcp.Required(), mcp.Enum("Contact", "Lead"),
			mcp.Description("Which attendee list applies")),
		mcp.WithString("dateTime", mcp.Required(), mcp.Description("Start, e.g. 2026-11-02T09:30")),
		mcp.WithArray("attendes", mcp.WithStringItems(), mcp.Description("Contact ids")),
		mcp.WithArray("attendesLead", mcp.WithStringItems(), mcp.Description("Lead ids")),
		mcp.WithString("location", mcp.Description("Where the meeting takes place")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
	), s.addMeeting)

	s.mcp.AddTool(mcp.NewTool("delete_meeting",
		mcp.WithDescription("Soft delete one meeting."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Meeting id (24 hex chars)")),
	), s.deleteMeeting)

	s.mcp.AddTool(mcp.NewTool("delete_meetings",
		mcp.WithDescription("Soft delete several meetings and report how many changed."),
		mcp.WithArray("ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Meeting ids")),
	), s.deleteMeetings)

	s.mcp.AddTool(mcp.NewTool("get_meeting_contract",
		mcp.WithDescription("Returns the meeting payload contract. "+
			"Call this before creating meetings to ensure correct structure."),
	), s.getMeetingContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Meeting Format Contract",
			mcp.WithResourceDescription("Fields, rules and view shape of meetings."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMeetingFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listMeetings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.svc.List(ctx, s.caller, req.GetString("createBy", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(views)
}

func (s *Server) viewMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(view)
}

func (s *Server) addMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := meetingservice.CreateInput{
		Agenda:       req.GetString("agenda", ""),
		Related:      req.GetString("related", ""),
		DateTime:     req.GetString("dateTime", ""),
		Attendes:     req.GetStringSlice("attendes", nil),
		AttendesLead: req.GetStringSlice("attendesLead", nil),
		Location:     req.GetString("location", ""),
		Notes:        req.GetString("notes", ""),
	}
	view, err := s.svc.Create(ctx, s.caller, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(view)
}

func (s *Server) deleteMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SoftDelete(ctx, s.caller, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) deleteMeetings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := req.RequireStringSlice("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.SoftDeleteMany(ctx, s.caller, ids)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %d meeting(s)", n)), nil
}

func (s *Server) getMeetingContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MeetingFormatContract), nil
}

func (s *Server) readMeetingFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     MeetingFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError renders service errors the way the HTTP API words them.
func toolError(err error) *mcp.CallToolResult {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = fmt.Sprintf("- %s: %s", k, verr.Fields[k])
		}
		return mcp.NewToolResultError("Validation failed\n" + strings.Join(lines, "\n"))
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("Meeting not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
