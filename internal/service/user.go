package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/blob"
	"github.com/sakif/blog-platform/internal/events"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// Follow results returned to the client.
const (
	FollowStatusFollowed   = "followed"
	FollowStatusUnfollowed = "unfollowed"
)

// UserService serves profiles and the follow graph.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	blobs     blob.Store
	events    events.Publisher
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	blobs blob.Store,
	publisher events.Publisher,
	logger *slog.Logger,
) *UserService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &UserService{
		users:     users,
		passwords: passwords,
		blobs:     blobs,
		events:    publisher,
		logger:    logger,
	}
}

// GetPublicProfile returns what anyone may see about the user.
func (s *UserService) GetPublicProfile(ctx context.Context, id string) (*model.PublicProfile, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// GetSelf returns the caller's own account.
func (s *UserService) GetSelf(ctx context.Context, caller model.Identity) (*model.User, error) {
	if caller.ID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.getUser(ctx, caller.ID)
}

// ProfileUpdate carries the optional fields of a profile edit. Nil pointers and
// nil uploads leave the stored value unchanged.
type ProfileUpdate struct {
	Name        *string
	Bio         *string
	OldPassword string
	NewPassword string
	ProfileImg  *Upload
	CoverImg    *Upload
}

type passwordInput struct {
	NewPassword string `json:"newPassword" validate:"min=8,password"`
}

// UpdateSelf applies a profile edit to the caller's account.
//
// Every field is validated before anything is uploaded or written. Changing the
// password requires the current one, unless the account has none yet (Google
// sign-in), in which case this sets the first password.
func (s *UserService) UpdateSelf(ctx context.Context, caller model.Identity, upd ProfileUpdate) (*model.User, error) {
	user, err := s.GetSelf(ctx, caller)
	if err != nil {
		return nil, err
	}

	var fields []apperror.FieldError

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		switch {
		case name == "":
			fields = append(fields, apperror.FieldError{Field: "name", Message: "name is required"})
		case len([]rune(name)) > MaxNameLength:
			fields = append(fields, apperror.FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)})
		default:
			user.Name = name
		}
	}
	if upd.Bio != nil {
		bio := strings.TrimSpace(*upd.Bio)
		if len([]rune(bio)) > MaxBioLength {
			fields = append(fields, apperror.FieldError{Field: "bio", Message: fmt.Sprintf("bio must be at most %d characters", MaxBioLength)})
		} else {
			user.Bio = bio
		}
	}
	if upd.ProfileImg != nil {
		if fe := upd.ProfileImg.check("profileImg"); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if upd.CoverImg != nil {
		if fe := upd.CoverImg.check("coverImg"); fe != nil {
			fields = append(fields, *fe)
		}
	}

	changePassword := upd.NewPassword != "" || upd.OldPassword != ""
	if changePassword {
		pwFields, err := s.checkPasswordChange(user, upd.OldPassword, upd.NewPassword)
		if err != nil {
			return nil, err
		}
		fields = append(fields, pwFields...)
	}

	if len(fields) > 0 {
		return nil, apperror.ValidationErrors(fields)
	}

	if changePassword {
		hash, err := s.passwords.Hash(upd.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("service/user: %w", err)
		}
		user.PasswordHash = hash
	}
	if upd.ProfileImg != nil {
		if user.ProfileImg, err = storeUpload(ctx, s.blobs, "profiles", upd.ProfileImg); err != nil {
			return nil, err
		}
	}
	if upd.CoverImg != nil {
		if user.CoverImg, err = storeUpload(ctx, s.blobs, "covers", upd.CoverImg); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating %s: %w", user.ID, err)
	}

	s.logger.Info("profile updated",
		slog.String("userID", user.ID),
		slog.Bool("passwordChanged", changePassword),
	)
	return user, nil
}

// checkPasswordChange returns field violations, or an Unauthorized error when
// the current password is wrong.
func (s *UserService) checkPasswordChange(user *model.User, oldPassword, newPassword string) ([]apperror.FieldError, error) {
	if newPassword == "" {
		return []apperror.FieldError{{Field: "newPassword", Message: "newPassword is required"}}, nil
	}

	if user.PasswordHash != "" {
		if oldPassword == "" {
			return []apperror.FieldError{{Field: "oldPassword", Message: "oldPassword is required"}}, nil
		}
		if err := s.passwords.Verify(user.PasswordHash, oldPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return nil, apperror.Unauthorized("current password is incorrect")
			}
			return nil, fmt.Errorf("service/user: %w", err)
		}
		if oldPassword == newPassword {
			return []apperror.FieldError{{Field: "newPassword", Message: "new password must differ from the current one"}}, nil
		}
	}

	if err := validateStruct(passwordInput{NewPassword: newPassword}); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr.Fields, nil
		}
		return nil, err
	}
	return nil, nil
}

// ToggleFollow follows target when the caller does not follow it yet and
// unfollows it otherwise. It returns FollowStatusFollowed or
// FollowStatusUnfollowed.
func (s *UserService) ToggleFollow(ctx context.Context, caller model.Identity, targetID string) (string, error) {
	if caller.ID == "" {
		return "", apperror.Unauthorized("authentication required")
	}
	if caller.ID == targetID {
		return "", apperror.ValidationFailed("id", "you cannot follow yourself")
	}

	following, err := s.users.ToggleFollow(ctx, caller.ID, targetID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("service/user: toggling follow %s→%s: %w", caller.ID, targetID, err)
	}

	if !following {
		s.logger.Info("user unfollowed", slog.String("follower", caller.ID), slog.String("followee", targetID))
		return FollowStatusUnfollowed, nil
	}

	s.logger.Info("user followed", slog.String("follower", caller.ID), slog.String("followee", targetID))
	s.events.Publish(ctx, events.Event{Type: events.UserFollowed, Actor: caller.ID, Target: targetID})
	return FollowStatusFollowed, nil
}

// Followers lists the users following id, in the order they followed.
func (s *UserService) Followers(ctx context.Context, id string) ([]model.UserSummary, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, user.Followers)
}

// Following lists the users id follows, in the order they were followed.
func (s *UserService) Following(ctx context.Context, id string) ([]model.UserSummary, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, user.Following)
}

func (s *UserService) summaries(ctx context.Context, ids []string) ([]model.UserSummary, error) {
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/user: resolving users: %w", err)
	}
	out := make([]model.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

func (s *UserService) getUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: fetching %s: %w", id, err)
	}
	return user, nil
}
