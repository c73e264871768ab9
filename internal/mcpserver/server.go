// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the AVIVA content tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/contentservice"
	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/parser"
)

// DocumentURI is the resource holding the whole content document.
const DocumentURI = "aviva://document"

// MessageFormatURI is the resource describing the weekly message format.
const MessageFormatURI = "aviva://weekly-message-format"

// Uploads stores media files for the upload_video tool.
type Uploads interface {
	Save(r io.Reader, originalName, contentType string, size int64) (string, error)
	Remove(url string) error
}

// Server wraps the MCP server with the AVIVA content tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *contentservice.Service
	uploads Uploads
}

// New creates a new MCP server with all tools registered. uploads may be
// nil, in which case upload_video is not offered.
func New(svc *contentservice.Service, uploads Uploads, version string) *Server {
	s := &Server{svc: svc, uploads: uploads}

	s.mcp = server.NewMCPServer(
		"AVIVA",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read the whole AVIVA content document as JSON."),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("get_field",
		mcp.WithDescription("Read one content field as JSON."),
		mcp.WithString("field", mcp.Required(),
			mcp.Description("Field slug"),
			mcp.Enum("palavra-semana", "eventos-especiais", "meditacao", "agenda", "contatos", "inscricoes")),
	), s.getField)

	s.mcp.AddTool(mcp.NewTool("update_verse",
		mcp.WithDescription("Replace the verse of the day."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Verse text")),
		mcp.WithString("reference", mcp.Required(), mcp.Description("Bible reference, e.g. João 3:16")),
	), s.updateVerse)

	s.mcp.AddTool(mcp.NewTool("update_weekly_message",
		mcp.WithDescription("Replace the weekly message. The body SHOULD follow the weekly "+
			"message format: read it first via get_message_format or the "+
			MessageFormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Message title")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Message body with section markers")),
	), s.updateWeeklyMessage)

	s.mcp.AddTool(mcp.NewTool("get_message_format",
		mcp.WithDescription("Returns the weekly message format. Call this before update_weekly_message."),
	), s.getMessageFormat)

	s.mcp.AddTool(mcp.NewTool("list_videos",
		mcp.WithDescription("List meditation videos, newest first."),
	), s.listVideos)

	s.mcp.AddTool(mcp.NewTool("list_registrations",
		mcp.WithDescription("List registrations for the special event campaign."),
	), s.listRegistrations)

	if uploads != nil {
		s.mcp.AddTool(mcp.NewTool("upload_video",
			mcp.WithDescription("Store a meditation video or audio file from an http(s) URL or a "+
				"base64 data URI and add it to the meditation list."),
			mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data>")),
			mcp.WithString("title", mcp.Description("Video title")),
			mcp.WithString("duration", mcp.Description("Duration, e.g. 2 min")),
			mcp.WithString("description", mcp.Description("Short description")),
			mcp.WithString("category", mcp.Description("Category")),
		), s.uploadVideo)
	}

	s.mcp.AddResource(
		mcp.NewResource(DocumentURI, "Content Document",
			mcp.WithResourceDescription("The whole AVIVA content document."),
			mcp.WithMIMEType("application/json"),
		),
		s.readDocumentResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(MessageFormatURI, "Weekly Message Format",
			mcp.WithResourceDescription("Section markers recognised in the weekly message body."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMessageFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocument(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, _, err := s.svc.Document(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) getField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, _, err := s.svc.Field(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown field: %s", slug)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (s *Server) updateVerse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := req.RequireString("reference")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, _ := json.Marshal(models.Verse{Text: text, Reference: ref})
	msg, _, err := s.svc.ReplaceField(ctx, contentservice.FieldVerse, raw, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) updateWeeklyMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, _ := json.Marshal(models.WeeklyMessage{Title: title, Body: body})
	msg, _, err := s.svc.ReplaceField(ctx, contentservice.FieldWeeklyMessage, raw, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"message":  msg,
		"sections": parser.Parse(body),
	})
}

func (s *Server) getMessageFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(WeeklyMessageContract), nil
}

func (s *Server) listVideos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, _, err := s.svc.Field(ctx, contentservice.FieldMeditations)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (s *Server) listRegistrations(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	regs, err := s.svc.Registrations(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(regs) == 0 {
		return mcp.NewToolResultText("no registrations"), nil
	}
	return jsonResult(regs)
}

func (s *Server) readDocumentResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, _, err := s.svc.Document(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readMessageFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MessageFormatURI,
			MIMEType: "text/markdown",
			Text:     WeeklyMessageContract,
		},
	}, nil
}
