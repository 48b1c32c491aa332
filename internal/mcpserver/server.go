package mcpserver

import (
	"context"
	"net/http"
	"strings"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/session"
	"board-arena/internal/store"
	"board-arena/internal/tournament"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Users interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*store.User, error)
}

type Rooms interface {
	ListRooms() []session.RoomSummary
	CreateRoom(ctx context.Context, user game.Player, kind game.Kind, bet int64) (session.RoomSummary, error)
	QuickJoin(ctx context.Context, user game.Player, kind game.Kind, bet int64) (session.RoomSummary, error)
	JoinRoom(ctx context.Context, user game.Player, roomID string) (session.RoomSummary, error)
	HandleMove(ctx context.Context, userID, roomID string, mv game.Move) error
	GetState(userID, roomID string) (viewmodel.PlayerView, error)
	RoomOf(userID string) (string, bool)
}

type Tournaments interface {
	List(ctx context.Context, statuses ...tournament.Status) ([]tournament.Tournament, error)
	Get(ctx context.Context, id string) (*tournament.Tournament, error)
	Register(ctx context.Context, tournamentID string, user game.Player) error
}

// Server exposes the arena to tool-calling agents. Agents play through the
// same session manager as websocket clients but poll for state.
type Server struct {
	users Users
	rooms Rooms
	tours Tournaments

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(users Users, rooms Rooms, tours Tournaments) *Server {
	mcpSrv := server.NewMCPServer(
		"board-arena",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s := &Server{
		users:      users,
		rooms:      rooms,
		tours:      tours,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerPublicTools()
	s.registerMatchmakingTools()
	s.registerGameplayTools()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) authUser(ctx context.Context, apiKey string) (game.Player, *mcp.CallToolResult) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return game.Player{}, toolError("invalid_request", "api_key is required")
	}
	u, err := s.users.GetUserByAPIKey(ctx, apiKey)
	if err != nil {
		return game.Player{}, toolError("unauthorized", "invalid api_key")
	}
	return game.Player{ID: u.ID, Name: u.Name}, nil
}
