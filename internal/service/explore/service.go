package explore

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oggyb/muzz-match/internal/api"
	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/service/discovery"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// Service implements the Explore gRPC API on top of the swipe, match,
// discovery and chat services. The acting user always comes from the
// authenticated context.
type Service struct {
	appCtx *app.AppContext

	api.UnimplementedExploreServiceServer
}

// NewExploreService creates a new Explore service with dependencies from AppContext.
func NewExploreService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

func caller(ctx context.Context) (uint64, error) {
	id, ok := auth.UserIDFrom(ctx)
	if !ok {
		return 0, svcErr.Map(svcErr.Unauthorized("missing credentials"))
	}
	return id, nil
}

func parseID(field, v string) (uint64, error) {
	id, err := idgen.Parse(strings.TrimSpace(v))
	if err != nil || id == 0 {
		return 0, svcErr.Map(svcErr.Validation("%s must be a decimal id", field))
	}
	return id, nil
}

// fail maps err to a status, logging anything that is not a typed outcome.
func fail(ctx context.Context, op string, err error) error {
	if svcErr.KindOf(err) == svcErr.KindInternal {
		logger.From(ctx).Error(op+" failed", slog.Any("err", err))
	}
	return svcErr.Map(err)
}

// RecordSwipe stores the caller's swipe on the target.
//
// Behavior:
//   - action is case-insensitive (LIKE or DISLIKE).
//   - Repeating the latest action is AlreadyExists.
//   - isMatch is true once the reciprocal LIKE exists; matchId is then set.
//
// Example:
//
//	svc.RecordSwipe(ctx, &api.RecordSwipeRequest{TargetUserID: "42", Action: "like"})
func (s *Service) RecordSwipe(ctx context.Context, req *api.RecordSwipeRequest) (*api.RecordSwipeResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Debug("RecordSwipe called", "user", userID, "target", req.TargetUserID, "action", req.Action)

	targetID, err := parseID("targetUserId", req.TargetUserID)
	if err != nil {
		return nil, err
	}

	res, err := s.appCtx.Swipes.RecordSwipe(ctx, userID, targetID, strings.ToUpper(strings.TrimSpace(req.Action)))
	if err != nil {
		return nil, fail(ctx, "RecordSwipe", err)
	}

	resp := &api.RecordSwipeResponse{IsMatch: res.IsMatch}
	if res.IsMatch {
		resp.MatchID = idgen.Format(res.MatchID)
	}
	return resp, nil
}

// GetSwipeHistory returns every swipe the caller made, oldest first.
func (s *Service) GetSwipeHistory(ctx context.Context, _ *api.GetSwipeHistoryRequest) (*api.GetSwipeHistoryResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	swipes, err := s.appCtx.Swipes.GetSwipeHistory(ctx, userID)
	if err != nil {
		return nil, fail(ctx, "GetSwipeHistory", err)
	}

	resp := &api.GetSwipeHistoryResponse{Swipes: make([]api.Swipe, 0, len(swipes))}
	for _, sw := range swipes {
		resp.Swipes = append(resp.Swipes, toSwipe(sw))
	}
	return resp, nil
}

// GetMatch returns the caller's match with the target, or NotFound.
func (s *Service) GetMatch(ctx context.Context, req *api.GetMatchRequest) (*api.GetMatchResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	targetID, err := parseID("targetUserId", req.TargetUserID)
	if err != nil {
		return nil, err
	}

	m, err := s.appCtx.Matches.GetMatch(ctx, userID, targetID)
	if err != nil {
		return nil, fail(ctx, "GetMatch", err)
	}
	return &api.GetMatchResponse{Match: toMatch(*m)}, nil
}

// GetMatchHistory returns the caller's matches, newest first, each with the
// other party's profile attached.
//
// Behavior:
//   - No matches is NotFound.
//   - Profiles are loaded in one query; a match whose target profile is
//     gone is still returned, without Target.
func (s *Service) GetMatchHistory(ctx context.Context, _ *api.GetMatchHistoryRequest) (*api.GetMatchHistoryResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	matches, err := s.appCtx.Matches.GetMatchHistory(ctx, userID)
	if err != nil {
		return nil, fail(ctx, "GetMatchHistory", err)
	}

	targetIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		targetIDs = append(targetIDs, m.TargetUserID)
	}
	profiles, err := s.appCtx.Users.GetMany(ctx, targetIDs)
	if err != nil {
		return nil, fail(ctx, "GetMatchHistory", err)
	}

	resp := &api.GetMatchHistoryResponse{Matches: make([]api.Match, 0, len(matches))}
	for _, m := range matches {
		out := toMatch(m)
		if u, ok := profiles[m.TargetUserID]; ok {
			p := toProfile(u)
			out.Target = &p
		}
		resp.Matches = append(resp.Matches, out)
	}
	return resp, nil
}

// FindCandidates returns the next page of compatible profiles the caller
// has not swiped on yet.
//
// Behavior:
//   - limit <= 0 uses the configured page size; larger limits are clamped.
//   - nextPageToken is set only when the page is full.
//   - An empty first page is NotFound; an empty later page is not.
//
// Example:
//
//	svc.FindCandidates(ctx, &api.FindCandidatesRequest{Limit: 10, PageToken: prev.NextPageToken})
func (s *Service) FindCandidates(ctx context.Context, req *api.FindCandidatesRequest) (*api.FindCandidatesResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Debug("FindCandidates called", "user", userID, "limit", req.Limit, "token", req.PageToken)

	cursor, err := pagination.DecodeAfter(req.PageToken)
	if err != nil {
		return nil, svcErr.Map(svcErr.Validation("invalid pagination token"))
	}

	page, err := s.appCtx.Discovery.Discover(ctx, userID, int(req.Limit), cursor)
	if err != nil {
		return nil, fail(ctx, "FindCandidates", err)
	}

	next, err := pagination.EncodeAfter(page.NextCursor)
	if err != nil {
		return nil, fail(ctx, "FindCandidates", err)
	}

	resp := &api.FindCandidatesResponse{
		Candidates:    make([]api.Profile, 0, len(page.Candidates)),
		NextPageToken: next,
	}
	for _, u := range page.Candidates {
		resp.Candidates = append(resp.Candidates, toProfile(u))
	}
	return resp, nil
}

// CountLikedYou returns how many users currently like the caller.
// Served from Redis when cached, otherwise counted in the DB.
func (s *Service) CountLikedYou(ctx context.Context, _ *api.CountLikedYouRequest) (*api.CountLikedYouResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.appCtx.Swipes.CountLikedYou(ctx, userID)
	if err != nil {
		return nil, fail(ctx, "CountLikedYou", err)
	}
	return &api.CountLikedYouResponse{Count: uint64(n)}, nil
}

// GetProfile returns a profile; the caller's own when userId is empty.
func (s *Service) GetProfile(ctx context.Context, req *api.GetProfileRequest) (*api.ProfileResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" {
		if userID, err = parseID("userId", req.UserID); err != nil {
			return nil, err
		}
	}

	u, err := s.appCtx.Discovery.GetProfile(ctx, userID)
	if err != nil {
		return nil, fail(ctx, "GetProfile", err)
	}
	return &api.ProfileResponse{Profile: toProfile(*u)}, nil
}

// UpdateProfile applies the supplied fields to the caller's profile.
// Omitted fields are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.ProfileResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	patch := discovery.ProfilePatch{
		Name:             req.Name,
		Age:              req.Age,
		Gender:           req.Gender,
		Bio:              req.Bio,
		City:             req.City,
		Country:          req.Country,
		ProfilePhoto:     req.ProfilePhoto,
		AdditionalPhotos: req.AdditionalPhotos,
	}
	if p := req.Preferences; p != nil {
		patch.Preferences = &db.Preferences{
			MinAge:             p.MinAge,
			MaxAge:             p.MaxAge,
			InterestedInGender: p.InterestedInGender,
			MaxDistance:        p.MaxDistance,
		}
	}

	u, err := s.appCtx.Discovery.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, fail(ctx, "UpdateProfile", err)
	}
	return &api.ProfileResponse{Profile: toProfile(*u)}, nil
}

// ListMessages returns the chat history of one of the caller's matches,
// oldest first.
func (s *Service) ListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	matchID, err := parseID("matchId", req.MatchID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.appCtx.Chat.ListMessages(ctx, userID, matchID)
	if err != nil {
		return nil, fail(ctx, "ListMessages", err)
	}

	resp := &api.ListMessagesResponse{Messages: make([]api.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, api.Message{
			ID:        idgen.Format(m.ID),
			SenderID:  idgen.Format(m.SenderID),
			MatchID:   idgen.Format(m.MatchID),
			Content:   m.Content,
			Timestamp: m.Timestamp.UnixMilli(),
		})
	}
	return resp, nil
}

func toProfile(u db.User) api.Profile {
	p := api.Profile{
		ID:               idgen.Format(u.ID),
		Name:             u.Name,
		Age:              u.Age,
		Gender:           u.Gender,
		Bio:              u.Bio,
		City:             u.City,
		Country:          u.Country,
		ProfilePhoto:     u.ProfilePhoto,
		AdditionalPhotos: u.AdditionalPhotos,
	}
	if pr := u.Preferences(); pr != nil {
		p.Preferences = &api.Preferences{
			MinAge:             pr.MinAge,
			MaxAge:             pr.MaxAge,
			InterestedInGender: pr.InterestedInGender,
			MaxDistance:        pr.MaxDistance,
		}
	}
	return p
}

func toSwipe(s db.Swipe) api.Swipe {
	return api.Swipe{
		ID:           idgen.Format(s.ID),
		UserID:       idgen.Format(s.UserID),
		TargetUserID: idgen.Format(s.TargetUserID),
		Action:       s.Action,
		CreatedAt:    s.CreatedAt.UnixMilli(),
	}
}

func toMatch(m db.Match) api.Match {
	return api.Match{
		ID:           idgen.Format(m.ID),
		UserID:       idgen.Format(m.UserID),
		TargetUserID: idgen.Format(m.TargetUserID),
		CreatedAt:    m.CreatedAt.UnixMilli(),
	}
}
