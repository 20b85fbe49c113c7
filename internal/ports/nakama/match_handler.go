package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"kitchencoop/internal/app"
	"kitchencoop/internal/config"
	"kitchencoop/internal/domain"
	"kitchencoop/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Presences map[string]runtime.Presence // Map UserId -> Presence for targeted messaging
	App       *app.Service                // Kitchen use-cases
	Game      *domain.Game                // Canonical session state
	TickRate  int                         // Match loop ticks per second
	Label     string                      // Last label pushed to Nakama
}

// connectedCount returns how many participants are currently connected.
func (ms *MatchState) connectedCount() int {
	return len(ms.Game.Roster.Connected())
}

// tickDuration is the fixed simulation step of one match loop.
func (ms *MatchState) tickDuration() time.Duration {
	return time.Second / time.Duration(ms.TickRate)
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return newMatchHandler(), nil
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing kitchen match.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	kitchen, err := config.Load(env[EnvKitchenConfig])
	if err != nil {
		logger.Error("MatchInit: Could not load kitchen: %v", err)
		return nil, 0, ""
	}

	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(rand.New(rand.NewSource(time.Now().UnixNano())), logger),
		Game:      kitchen.NewGame(),
		TickRate:  defaultTickRate,
	}
	if val, ok := env[EnvTickRate]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			state.TickRate = i
		}
	}

	label, err := buildLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.Label = label

	logger.Info("MatchInit: Kitchen with %d stations at %d ticks/s.", len(state.Game.Stations), state.TickRate)
	return state, state.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if err := matchState.App.CanJoin(matchState.Game, presence.GetUserId()); err != nil {
		logger.Debug("MatchJoinAttempt: Rejecting %s: %v", presence.GetUserId(), err)
		return state, false, err.Error()
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		events, err := matchState.App.Join(matchState.Game, p.GetUserId(), p.GetUsername())
		if err != nil {
			logger.Warn("MatchJoin: User %s could not join: %v", p.GetUserId(), err)
			continue
		}
		mh.broadcastEvents(matchState, dispatcher, logger, events)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		events, err := matchState.App.Leave(matchState.Game, p.GetUserId())
		if err != nil {
			logger.Warn("MatchLeave: User %s: %v", p.GetUserId(), err)
			continue
		}
		logger.Debug("MatchLeave: User %s disconnected.", p.GetUserId())
		mh.broadcastEvents(matchState, dispatcher, logger, events)
	}

	if matchState.connectedCount() == 0 {
		logger.Info("MatchLeave: Terminating match with no participants.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		mh.handleMessage(matchState, dispatcher, logger, msg)
	}

	events := matchState.App.Tick(matchState.Game, matchState.tickDuration())
	mh.broadcastEvents(matchState, dispatcher, logger, events)
	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) handleMessage(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	cmd, err := wire.DecodeCommand(msg.GetOpCode(), senderID, msg.GetData())
	if err != nil {
		logger.Warn("MatchLoop: Dropping message from %s: %v", senderID, err)
		return
	}
	// Joins and leaves follow Nakama presences, never client messages.
	if cmd.Kind == app.CommandJoin || cmd.Kind == app.CommandLeave {
		logger.Warn("MatchLoop: User %s sent %s as a message, ignoring.", senderID, cmd.Kind)
		return
	}

	events, err := state.App.Handle(state.Game, cmd)
	if err != nil {
		logger.Warn("MatchLoop: User %s %s rejected: %v", senderID, cmd.Kind, err)
	}
	mh.broadcastEvents(state, dispatcher, logger, events)
}

func (mh *matchHandler) broadcastEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, data, err := wire.EncodeEvent(ev)
	if err != nil {
		logger.Error("Failed to encode event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Targeted events must not leak to everyone when the target is gone.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast %v: %v", ev.Kind, err)
	}
}

// buildLabel renders the searchable match label.
func buildLabel(state *MatchState) (string, error) {
	open := state.App.CanJoin(state.Game, "") == nil
	label, err := structpb.NewStruct(map[string]interface{}{
		"game":    LabelGame,
		"phase":   string(state.Game.Session.Phase),
		"open":    open,
		"players": float64(state.connectedCount()),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.Label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.Label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

// MatchSignal answers "snapshot" with the current replicated state as JSON.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != "snapshot" {
		return state, ""
	}
	b, err := json.Marshal(matchState.App.Snapshot(matchState.Game))
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal snapshot: %v", err)
		return state, ""
	}
	return matchState, string(b)
}
