package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
)

// TeamService manages teams and rosters. The roster ordering (captain
// first, then join time) matters downstream: prize splitting assigns the
// rounding remainder to the first member.
type TeamService struct {
	teamRepo repositories.TeamRepository
	userRepo repositories.UserRepository
}

func NewTeamService(teamRepo repositories.TeamRepository, userRepo repositories.UserRepository) *TeamService {
	return &TeamService{teamRepo: teamRepo, userRepo: userRepo}
}

// Create makes a new team and enrolls the captain as its first member.
func (s *TeamService) Create(ctx context.Context, name string, captainID int) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidationFailed)
	}
	if _, err := s.userRepo.GetByID(ctx, captainID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	team := &models.Team{Name: name, CaptainID: captainID}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
		}
		return nil, err
	}

	captain := &models.TeamMember{TeamID: team.ID, UserID: captainID, IsCaptain: true}
	if err := s.teamRepo.AddMember(ctx, captain); err != nil {
		return nil, fmt.Errorf("failed to enroll captain into team %d: %w", team.ID, err)
	}
	team.Members = []models.TeamMember{*captain}

	return team, nil
}

func (s *TeamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	members, err := s.teamRepo.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return team, nil
}

// AddMember enrolls a user into the team. Only the captain may do this.
func (s *TeamService) AddMember(ctx context.Context, actorID, teamID, userID int) (*models.TeamMember, error) {
	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.CaptainID != actorID {
		return nil, ErrForbiddenOperation
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	for _, m := range team.Members {
		if m.UserID == userID {
			return nil, fmt.Errorf("%w: user %d is already on the team", ErrValidationFailed, userID)
		}
	}

	member := &models.TeamMember{TeamID: teamID, UserID: userID}
	if err := s.teamRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
