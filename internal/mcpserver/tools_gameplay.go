package mcpserver

import (
	"context"

	"board-arena/internal/game"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerGameplayTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_game_state",
			mcp.WithDescription("Get your view of a room; room_id defaults to your current room"),
			mcp.WithString("api_key", mcp.Required(), mcp.Description("User api key")),
			mcp.WithString("room_id", mcp.Description("Room id")),
		),
		s.handleGetGameState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"play_move",
			mcp.WithDescription("Submit a move. tic-tac-toe: cell; checkers: from,to; chess: uci; backgammon: action=roll or from,to,die"),
			mcp.WithString("api_key", mcp.Required(), mcp.Description("User api key")),
			mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
			mcp.WithString("action", mcp.Description("roll for backgammon dice")),
			mcp.WithNumber("cell", mcp.Description("Tic-tac-toe cell 0-8")),
			mcp.WithNumber("from", mcp.Description("Source square or point")),
			mcp.WithNumber("to", mcp.Description("Target square or point")),
			mcp.WithNumber("die", mcp.Description("Backgammon die value")),
			mcp.WithString("uci", mcp.Description("Chess move in UCI, e.g. e2e4")),
		),
		s.handlePlayMove,
	)
}

func (s *Server) handleGetGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey, err := request.RequireString("api_key")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	user, authErr := s.authUser(ctx, apiKey)
	if authErr != nil {
		return authErr, nil
	}
	roomID := request.GetString("room_id", "")
	if roomID == "" {
		rid, ok := s.rooms.RoomOf(user.ID)
		if !ok {
			return toolError("not_found", "no current room"), nil
		}
		roomID = rid
	}
	v, svcErr := s.rooms.GetState(user.ID, roomID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(v), nil
}

func (s *Server) handlePlayMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey, err := request.RequireString("api_key")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	user, authErr := s.authUser(ctx, apiKey)
	if authErr != nil {
		return authErr, nil
	}
	roomID, err := request.RequireString("room_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	mv := game.Move{
		Action: request.GetString("action", ""),
		Cell:   request.GetInt("cell", 0),
		From:   request.GetInt("from", 0),
		To:     request.GetInt("to", 0),
		Die:    request.GetInt("die", 0),
		UCI:    request.GetString("uci", ""),
	}
	if svcErr := s.rooms.HandleMove(ctx, user.ID, roomID, mv); svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	v, svcErr := s.rooms.GetState(user.ID, roomID)
	if svcErr != nil {
		// the move ended the game and the room is gone
		return toolResult(map[string]any{"accepted": true, "room_id": roomID, "finished": true}), nil
	}
	return toolResult(map[string]any{"accepted": true, "room_id": roomID, "state": v}), nil
}
