package mcpserver

import (
	"context"

	"board-arena/internal/tournament"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublicTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_rooms",
			mcp.WithDescription("List open rooms waiting for an opponent"),
		),
		s.handleListRooms,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_tournaments",
			mcp.WithDescription("List tournaments with pagination"),
			mcp.WithString("status", mcp.Description("REGISTERING|ACTIVE|FINISHED|CANCELLED, default all")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 50, max 200")),
			mcp.WithNumber("offset", mcp.Description("Page offset, default 0")),
		),
		s.handleListTournaments,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_tournament",
			mcp.WithDescription("Get a tournament with its bracket by id or slug"),
			mcp.WithString("tournament_id", mcp.Required(), mcp.Description("Tournament id or slug")),
		),
		s.handleGetTournament,
	)
}

func (s *Server) handleListRooms(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(map[string]any{"rooms": s.rooms.ListRooms()}), nil
}

func (s *Server) handleListTournaments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var statuses []tournament.Status
	switch st := tournament.Status(request.GetString("status", "")); st {
	case "":
	case tournament.StatusRegistering, tournament.StatusActive, tournament.StatusFinished, tournament.StatusCancelled:
		statuses = append(statuses, st)
	default:
		return toolError("invalid_request", "status must be REGISTERING|ACTIVE|FINISHED|CANCELLED"), nil
	}
	limit, offset := clampPagination(request.GetInt("limit", defaultPageLimit), request.GetInt("offset", 0), maxPageLimit)

	items, err := s.tours.List(ctx, statuses...)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{
		"items":  page(items, limit, offset),
		"total":  len(items),
		"limit":  limit,
		"offset": offset,
	}), nil
}

func (s *Server) handleGetTournament(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("tournament_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	t, svcErr := s.tours.Get(ctx, id)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(t), nil
}
