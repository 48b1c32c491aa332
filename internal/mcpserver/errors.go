package mcpserver

import (
	"errors"
	"fmt"

	"board-arena/internal/game"
	"board-arena/internal/session"
	"board-arena/internal/tournament"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapDomainError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case game.IsRuleError(err):
		return toolError("illegal_move", err.Error())
	case errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, session.ErrInvalidBet),
		errors.Is(err, tournament.ErrInvalidMaxPlayers):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, session.ErrInsufficientBalance),
		errors.Is(err, tournament.ErrInsufficientBalance):
		return toolError("insufficient_balance", err.Error())
	case errors.Is(err, session.ErrRoomNotFound),
		errors.Is(err, session.ErrMatchNotFound),
		errors.Is(err, tournament.ErrNotFound):
		return toolError("not_found", err.Error())
	case errors.Is(err, session.ErrRoomFull),
		errors.Is(err, session.ErrRoomNotJoinable),
		errors.Is(err, session.ErrAlreadyInRoom),
		errors.Is(err, session.ErrNotInRoom),
		errors.Is(err, session.ErrGameNotActive),
		errors.Is(err, tournament.ErrNotRegistering),
		errors.Is(err, tournament.ErrTournamentFull),
		errors.Is(err, tournament.ErrAlreadyRegistered):
		return toolError("conflict", err.Error())
	default:
		return toolError("internal_error", err.Error())
	}
}
