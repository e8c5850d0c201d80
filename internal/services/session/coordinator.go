package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/caseboard/caseboard/internal/dependencies/clock"
	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/services/room"
)

// Transport is the real-time layer the coordinator drives. Implemented by
// the websocket hub; faked in tests.
type Transport interface {
	// JoinRoom subscribes a connection to a room's broadcast group
	JoinRoom(connID string, code model.RoomCode)

	// RoomOf returns the room a connection is subscribed to, if any
	RoomOf(connID string) (model.RoomCode, bool)

	// Connections returns the connection ids currently subscribed to a room
	Connections(code model.RoomCode) []string

	// SendToConnection delivers an event to a single connection
	SendToConnection(connID string, event model.Event)

	// BroadcastToRoom delivers an event to every connection in a room except
	// the given one; pass an empty exception to reach the whole room
	BroadcastToRoom(code model.RoomCode, exceptConnID string, event model.Event)
}

// Coordinator is the room session state machine: it reconciles joins and
// reconnects, broadcasts game events respecting the privacy flag, removes
// players on disconnect, and prunes ghost players left behind by lost
// disconnect events. No failure here is fatal; everything degrades to
// "treat as absent / no-op".
type Coordinator struct {
	rooms     *room.Repository
	registry  *Registry
	transport Transport
	clock     clock.Clock
	logger    *slog.Logger

	// Handlers serialize: a room read-modify-write cycle is atomic with
	// respect to other handlers, with the cache write as the commit point.
	mu sync.Mutex
}

// NewCoordinator wires the coordinator to its collaborators
func NewCoordinator(
	rooms *room.Repository,
	registry *Registry,
	transport Transport,
	clk clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		rooms:     rooms,
		registry:  registry,
		transport: transport,
		clock:     clk,
		logger:    logger.With(slog.String("component", "coordinator")),
	}
}

// HandleJoin processes a join_room event: reconnects the player if the
// persistent identity is already in the room, appends a new player
// otherwise, and acknowledges the joiner directly.
func (c *Coordinator) HandleJoin(ctx context.Context, connID string, req model.JoinRoomRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code := model.RoomCode(strings.ToUpper(strings.TrimSpace(req.RoomCode)))

	identity := model.PlayerIdentity{ID: req.UserID, Source: model.IdentityClient}
	if req.UserID == "" {
		// Connection id stands in as identity for clients that supply none;
		// such players can never be matched across reconnects
		identity = model.PlayerIdentity{ID: connID, Source: model.IdentityConnection}
	}

	c.logger.Info("join request",
		slog.String("room", string(code)),
		slog.String("nickname", req.Nickname),
		slog.String("identity", identity.ID),
		slog.String("connection", connID))

	// Clear out ghosts before counting anyone
	c.pruneGhosts(ctx, code)

	now := c.clock.Now()
	rm, ok := c.rooms.Get(ctx, code)
	if !ok {
		rm = model.NewRoom(code, now)
		c.logger.Info("room created", slog.String("room", string(code)))
	}

	if existing := rm.FindByIdentity(identity.ID); existing != nil {
		c.logger.Info("player reconnected",
			slog.String("room", string(code)),
			slog.String("old_connection", existing.ConnectionID),
			slog.String("new_connection", connID))
		existing.ConnectionID = connID
		existing.DisplayName = req.Nickname
		existing.IsPrivate = req.IsSecret
	} else {
		rm.Players = append(rm.Players, model.Player{
			ConnectionID: connID,
			Identity:     identity,
			DisplayName:  req.Nickname,
			RoomCode:     code,
			IsPrivate:    req.IsSecret,
		})
	}

	rm.Status = model.RoomStatusOnline
	rm.LastUpdated = now
	c.rooms.Save(ctx, code, rm)

	c.registry.Bind(connID, Binding{
		RoomCode:    code,
		Identity:    identity,
		DisplayName: req.Nickname,
	})
	c.transport.JoinRoom(connID, code)

	if !req.IsSecret {
		c.transport.BroadcastToRoom(code, connID, model.Event{
			Type: model.EventNotification,
			Payload: model.Notification{
				Message: fmt.Sprintf("%s entrou na sala!", req.Nickname),
				Type:    model.NotificationInfo,
			},
		})
	}

	c.transport.SendToConnection(connID, model.Event{
		Type: model.EventRoomJoined,
		Payload: model.RoomJoined{
			RoomCode:    code,
			PlayerCount: len(rm.Players),
			Mode:        model.ModeFor(req.IsSecret),
			TimerState:  rm.Timer,
		},
	})
}

// HandleGameAction broadcasts a game event to the rest of the sender's room.
// Actions are best-effort UX, not authoritative state: if the room or player
// cannot be resolved the event is logged and dropped.
func (c *Coordinator) HandleGameAction(ctx context.Context, connID string, req model.GameActionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, ok := c.transport.RoomOf(connID)
	if !ok {
		c.logger.Warn("game action from connection not in any room",
			slog.String("connection", connID))
		return
	}

	rm, ok := c.rooms.Get(ctx, code)
	if !ok {
		c.logger.Warn("game action for unknown room",
			slog.String("room", string(code)),
			slog.String("connection", connID))
		return
	}

	player := rm.FindByConnection(connID)
	if player == nil {
		c.logger.Warn("game action from connection with no player entry",
			slog.String("room", string(code)),
			slog.String("connection", connID))
		return
	}

	if player.IsPrivate {
		c.logger.Debug("suppressing private player action",
			slog.String("room", string(code)),
			slog.String("player", player.DisplayName))
		return
	}

	c.transport.BroadcastToRoom(code, connID, model.Event{
		Type: model.EventNotification,
		Payload: model.Notification{
			Message: fmt.Sprintf("%s %s %s", player.DisplayName, req.Action, req.Detail),
			Type:    model.NotificationGameEvent,
		},
	})
}

// HandleTimerToggle starts or pauses the room's shared stopwatch and syncs
// the whole room
func (c *Coordinator) HandleTimerToggle(ctx context.Context, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, rm, ok := c.resolveRoom(ctx, connID)
	if !ok {
		return
	}

	nowMs := c.clock.Now().UnixMilli()
	if rm.Timer.Running {
		if rm.Timer.StartedAt != nil {
			rm.Timer.ElapsedMs += nowMs - *rm.Timer.StartedAt
		}
		rm.Timer.Running = false
		rm.Timer.StartedAt = nil
	} else {
		rm.Timer.Running = true
		rm.Timer.StartedAt = &nowMs
	}

	rm.LastUpdated = c.clock.Now()
	c.rooms.Save(ctx, code, rm)
	c.broadcastTimer(code, rm)
}

// HandleTimerReset zeroes the room's stopwatch and syncs the whole room
func (c *Coordinator) HandleTimerReset(ctx context.Context, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, rm, ok := c.resolveRoom(ctx, connID)
	if !ok {
		return
	}

	rm.Timer = model.Timer{}
	rm.LastUpdated = c.clock.Now()
	c.rooms.Save(ctx, code, rm)
	c.broadcastTimer(code, rm)
}

// HandleDisconnect removes the player bound to a connection. Leave notices
// are broadcast unconditionally: unlike joins and actions they are not
// suppressed for private players.
func (c *Coordinator) HandleDisconnect(ctx context.Context, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	binding, ok := c.registry.Lookup(connID)
	if !ok {
		c.logger.Debug("disconnect from connection with no binding",
			slog.String("connection", connID))
		return
	}
	c.registry.Unbind(connID)

	c.logger.Info("player disconnected",
		slog.String("room", string(binding.RoomCode)),
		slog.String("nickname", binding.DisplayName))

	c.transport.BroadcastToRoom(binding.RoomCode, connID, model.Event{
		Type: model.EventNotification,
		Payload: model.Notification{
			Message: fmt.Sprintf("%s saiu da sala", binding.DisplayName),
			Type:    model.NotificationWarning,
		},
	})

	rm, ok := c.rooms.Get(ctx, binding.RoomCode)
	if !ok {
		return
	}
	rm.RemoveByConnection(connID)
	rm.LastUpdated = c.clock.Now()
	c.rooms.Save(ctx, binding.RoomCode, rm)
}

// pruneGhosts removes players whose connection is no longer subscribed to
// the room. Lost disconnect events (crash, hard network drop, restart)
// otherwise leave entries that block identity matching and inflate counts.
func (c *Coordinator) pruneGhosts(ctx context.Context, code model.RoomCode) {
	rm, ok := c.rooms.Get(ctx, code)
	if !ok || len(rm.Players) == 0 {
		return
	}

	liveConns := c.transport.Connections(code)
	live := make(map[string]bool, len(liveConns))
	for _, id := range liveConns {
		live[id] = true
	}

	dropped := rm.RetainConnections(live)
	if dropped == 0 {
		return
	}

	c.logger.Info("pruned ghost players",
		slog.String("room", string(code)),
		slog.Int("dropped", dropped))

	rm.LastUpdated = c.clock.Now()
	c.rooms.Save(ctx, code, rm)

	// Roster refresh for the survivors. Mode is reported per recipient,
	// derived from that player's own privacy flag.
	for _, connID := range liveConns {
		player := rm.FindByConnection(connID)
		if player == nil {
			continue
		}
		c.transport.SendToConnection(connID, model.Event{
			Type: model.EventRoomJoined,
			Payload: model.RoomJoined{
				RoomCode:    code,
				PlayerCount: len(rm.Players),
				Mode:        model.ModeFor(player.IsPrivate),
				TimerState:  rm.Timer,
			},
		})
	}
}

func (c *Coordinator) resolveRoom(ctx context.Context, connID string) (model.RoomCode, *model.Room, bool) {
	code, ok := c.transport.RoomOf(connID)
	if !ok {
		c.logger.Warn("timer event from connection not in any room",
			slog.String("connection", connID))
		return "", nil, false
	}

	rm, ok := c.rooms.Get(ctx, code)
	if !ok {
		c.logger.Warn("timer event for unknown room",
			slog.String("room", string(code)))
		return "", nil, false
	}

	return code, rm, true
}

func (c *Coordinator) broadcastTimer(code model.RoomCode, rm *model.Room) {
	c.transport.BroadcastToRoom(code, "", model.Event{
		Type:    model.EventTimerSync,
		Payload: rm.Timer,
	})
}
