package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/draft"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/service"
	"github.com/Con7105/fantasy-valo/internal/stats"
)

// PointsSource computes event points for PlayerPoints.
type PointsSource interface {
	PerPlayerMapPoints(ctx context.Context, eventID string, filter stats.MatchFilter) (stats.PointsResult, error)
	PointsForPhase(ctx context.Context, eventID string, phase models.Phase) (stats.PointsResult, error)
}

// Server implements fantasy.v1.FantasyService on top of the service registry.
type Server struct {
	registry *service.Registry
	bus      service.Bus
	points   PointsSource
}

// NewServer creates a new gRPC server. points and bus may be nil.
func NewServer(registry *service.Registry, bus service.Bus, points PointsSource) *Server {
	return &Server{registry: registry, bus: bus, points: points}
}

// Register adds the service to g.
func (s *Server) Register(g *grpc.Server) {
	RegisterFantasyServiceServer(g, s)
}

// toStatus maps domain errors to gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, dal.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, dal.ErrConflict):
		code = codes.Aborted
	case errors.Is(err, service.ErrInvalidState):
		code = codes.FailedPrecondition
	case errors.Is(err, service.ErrStoreUnavailable):
		code = codes.Unavailable
	}
	if code == codes.Internal {
		logger.Error("gRPC: request failed", "error", err)
	}
	return status.Error(code, err.Error())
}

func required(req *structpb.Struct, key string) (string, error) {
	v := str(req, key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func (s *Server) GetDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := required(req, "roomId")
	if err != nil {
		return nil, err
	}
	svc, err := s.registry.LoadedDraft(ctx, roomID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(svc.CurrentState())
}

// SubmitPick answers with the outcome and the resulting state; rejections
// and lost races are outcomes, not errors.
func (s *Server) SubmitPick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := required(req, "roomId")
	if err != nil {
		return nil, err
	}
	if !s.registry.Available() {
		return nil, toStatus(service.ErrStoreUnavailable)
	}
	pr := service.PickRequest{Candidate: draft.Candidate{
		PlayerName: str(req, "playerName"),
		TeamName:   str(req, "teamName"),
		Role:       models.Role(str(req, "role")),
	}}
	if p, ok := num(req, "participant"); ok {
		i := int(p)
		pr.Participant = &i
	}

	logger.Info("gRPC: Submitting pick", "room_id", roomID, "player", pr.PlayerName)
	svc, err := s.registry.LoadedDraft(ctx, roomID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := svc.SubmitPick(ctx, pr)
	if out.Kind == draft.OutcomeFailed {
		return nil, toStatus(out.Err)
	}
	return toStruct(map[string]any{"outcome": out, "state": svc.CurrentState()})
}

func (s *Server) GenerateMatchups(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := required(req, "roomId")
	if err != nil {
		return nil, err
	}
	svc, err := s.registry.LoadedDraft(ctx, roomID)
	if err != nil {
		return nil, toStatus(err)
	}
	rounds, err := svc.GenerateMatchups(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrap("rounds", rounds)
}

func (s *Server) CreateLeague(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	l, err := s.registry.CreateLeague(ctx, str(req, "name"), str(req, "eventId"), str(req, "eventName"))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(l)
}

func (s *Server) GetLeague(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	leagueID, err := required(req, "leagueId")
	if err != nil {
		return nil, err
	}
	svc, err := s.registry.LoadedLeague(ctx, leagueID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(svc.CurrentState())
}

func (s *Server) JoinLeague(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	leagueID, err := required(req, "leagueId")
	if err != nil {
		return nil, err
	}
	svc, err := s.registry.LoadedLeague(ctx, leagueID)
	if err != nil {
		return nil, toStatus(err)
	}
	m, err := svc.Join(ctx, str(req, "name"))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(m)
}

func (s *Server) StartDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	leagueID, err := required(req, "leagueId")
	if err != nil {
		return nil, err
	}
	svc, err := s.registry.LoadedLeague(ctx, leagueID)
	if err != nil {
		return nil, toStatus(err)
	}
	room, err := svc.StartDraft(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(room)
}

func (s *Server) ScoreWeek(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	leagueID, err := required(req, "leagueId")
	if err != nil {
		return nil, err
	}
	week, ok := num(req, "week")
	if !ok || week < 1 {
		return nil, status.Error(codes.InvalidArgument, "week must be a positive number")
	}
	svc, err := s.registry.LoadedLeague(ctx, leagueID)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := svc.ScoreWeek(ctx, int(week))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

func (s *Server) PlayerPoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.points == nil {
		return nil, status.Error(codes.Unavailable, "stats provider is not configured")
	}
	eventID, err := required(req, "eventId")
	if err != nil {
		return nil, err
	}

	var res stats.PointsResult
	switch phase := models.Phase(str(req, "phase")); phase {
	case "":
		res, err = s.points.PerPlayerMapPoints(ctx, eventID, nil)
	case models.PhaseOpening, models.PhaseMiddle, models.PhaseDecider:
		res, err = s.points.PointsForPhase(ctx, eventID, phase)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown phase %q", phase)
	}
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return toStruct(map[string]any{
		"eventId":     eventID,
		"finalScores": res.FinalScores(),
		"mapPoints":   res.MapPoints,
	})
}

// WatchChanges streams change events, limited to one room or league when
// the request names an id.
func (s *Server) WatchChanges(req *structpb.Struct, stream grpc.ServerStream) error {
	if s.bus == nil {
		return status.Error(codes.Unavailable, "change notifications are not configured")
	}
	id := str(req, "id")
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	// an empty message tells the client the subscription is live
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return err
	}
	for {
		select {
		case <-stream.Context().Done():
			logger.Debug("gRPC: watch client disconnected")
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if id != "" && e.ID != id {
				continue
			}
			msg, err := toStruct(e)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
