package mcpserver

import (
	"context"

	"board-arena/internal/game"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerMatchmakingTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_room",
			mcp.WithDescription("Open a room and wait for an opponent or a bot"),
			mcp.WithString("api_key", mcp.Required(), mcp.Description("User api key")),
			mcp.WithString("game_type", mcp.Required(), mcp.Description(gameTypeList())),
			mcp.WithNumber("bet", mcp.Description("Stake, default 0")),
		),
		s.handleCreateRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"quick_join",
			mcp.WithDescription("Join an open room with the same game and stake, or open one"),
			mcp.WithString("api_key", mcp.Required(), mcp.Description("User api key")),
			mcp.WithString("game_type", mcp.Required(), mcp.Description(gameTypeList())),
			mcp.WithNumber("bet", mcp.Description("Stake, default 0")),
		),
		s.handleQuickJoin,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"join_room",
			mcp.WithDescription("Join a specific open room"),
			mcp.WithString("api_key", mcp.Required(), mcp.Description("User api key")),
			mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
		),
		s.handleJoinRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"join_tournament",
			mcp.WithDescription("Register for a tournament, paying the entry fee"),
			mcp.WithString("api_key", mcp.Required(), mcp.Description("User api key")),
			mcp.WithString("tournament_id", mcp.Required(), mcp.Description("Tournament id")),
		),
		s.handleJoinTournament,
	)
}

func (s *Server) roomArgs(ctx context.Context, request mcp.CallToolRequest) (game.Player, game.Kind, int64, *mcp.CallToolResult) {
	apiKey, err := request.RequireString("api_key")
	if err != nil {
		return game.Player{}, "", 0, toolError("invalid_request", err.Error())
	}
	user, authErr := s.authUser(ctx, apiKey)
	if authErr != nil {
		return game.Player{}, "", 0, authErr
	}
	raw, err := request.RequireString("game_type")
	if err != nil {
		return game.Player{}, "", 0, toolError("invalid_request", err.Error())
	}
	kind, err := game.ParseKind(raw)
	if err != nil {
		return game.Player{}, "", 0, toolError("invalid_request", "game_type must be "+gameTypeList())
	}
	return user, kind, int64(request.GetInt("bet", 0)), nil
}

func (s *Server) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, kind, bet, errRes := s.roomArgs(ctx, request)
	if errRes != nil {
		return errRes, nil
	}
	sum, err := s.rooms.CreateRoom(ctx, user, kind, bet)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(sum), nil
}

func (s *Server) handleQuickJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, kind, bet, errRes := s.roomArgs(ctx, request)
	if errRes != nil {
		return errRes, nil
	}
	sum, err := s.rooms.QuickJoin(ctx, user, kind, bet)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(sum), nil
}

func (s *Server) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	sum, svcErr := s.rooms.JoinRoom(ctx, user, roomID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(sum), nil
}

func (s *Server) handleJoinTournament(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey, err := request.RequireString("api_key")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	user, authErr := s.authUser(ctx, apiKey)
	if authErr != nil {
		return authErr, nil
	}
	id, err := request.RequireString("tournament_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if svcErr := s.tours.Register(ctx, id, user); svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(map[string]any{"tournament_id": id, "registered": true}), nil
}
