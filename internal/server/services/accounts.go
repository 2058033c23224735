package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/cryptox"
	"github.com/dmitrijs2005/chantube/internal/dbx"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/media"
	"github.com/dmitrijs2005/chantube/internal/server/metrics"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/repomanager"
)

// RegisterInput carries the registration form. AvatarPath and CoverImagePath
// point at locally staged uploads.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput identifies the account by Username or, if empty, by Email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

type LoginResult struct {
	Account *models.Account
	Tokens  *models.TokenPair
}

// AccountService implements the account lifecycle on top of the verifier,
// the token issuer and the media uploader.
type AccountService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	verifier     *CredentialVerifier
	issuer       *TokenIssuer
	uploader     media.Uploader
	log          logging.Logger
	passwordCost int
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, verifier *CredentialVerifier, issuer *TokenIssuer, uploader media.Uploader, log logging.Logger) *AccountService {
	return &AccountService{
		db:           db,
		repomanager:  m,
		verifier:     verifier,
		issuer:       issuer,
		uploader:     uploader,
		log:          log,
		passwordCost: cryptox.DefaultCost,
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	acc, err := s.register(ctx, in)
	metrics.RegistrationsTotal.WithLabelValues(metrics.Status(err)).Inc()
	return acc, err
}

func (s *AccountService) register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	if common.AnyBlank(in.FullName, in.Email, in.Username, in.Password) {
		return nil, common.BadRequest("all fields are required")
	}

	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	username := common.NormalizeIdentifier(in.Username)
	email := common.NormalizeIdentifier(in.Email)
	// login resolves a single identifier against both columns
	if strings.Contains(username, "@") {
		return nil, common.BadRequest("username must not contain @")
	}

	if err := s.ensureAvailable(ctx, s.db, username, email); err != nil {
		return nil, err
	}

	if in.AvatarPath == "" {
		return nil, common.BadRequest("avatar file is required")
	}

	avatar := s.uploader.Upload(ctx, in.AvatarPath)
	if avatar == nil {
		return nil, common.Conflict("avatar file could not be uploaded")
	}

	var coverImage string
	if in.CoverImagePath != "" {
		if res := s.uploader.Upload(ctx, in.CoverImagePath); res != nil {
			coverImage = res.URL
		}
	}

	hash, err := cryptox.HashPasswordWithCost(in.Password, s.passwordCost)
	if err != nil {
		return nil, common.Internal("something went wrong while registering the user", err)
	}

	account := &models.Account{
		Username:   username,
		Email:      email,
		FullName:   strings.TrimSpace(in.FullName),
		Password:   hash,
		Avatar:     avatar.URL,
		CoverImage: coverImage,
	}

	var created *models.Account
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.ensureAvailable(ctx, tx, username, email); err != nil {
			return err
		}
		var err error
		created, err = s.repomanager.Accounts(tx).Create(ctx, account)
		if errors.Is(err, common.ErrorConflict) {
			return common.Conflict("user with email or username already exists")
		}
		return err
	})
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		s.log.Error(ctx, "register failed", "username", username, "error", err)
		return nil, common.Internal("something went wrong while registering the user", err)
	}

	s.log.Info(ctx, "account registered", "account_id", created.ID)
	return created.Public(), nil
}

func checkPasswordLength(password string) error {
	if len(password) > cryptox.MaxPasswordLength {
		return common.BadRequest("password is too long")
	}
	return nil
}

func (s *AccountService) ensureAvailable(ctx context.Context, db dbx.DBTX, username, email string) error {
	_, err := s.repomanager.Accounts(db).FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return common.Conflict("user with email or username already exists")
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return common.Internal("internal server error", err)
	}
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	res, err := s.login(ctx, in)
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.Status(err)).Inc()
	return res, err
}

func (s *AccountService) login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	identifier := in.Username
	if strings.TrimSpace(identifier) == "" {
		identifier = in.Email
	}
	if strings.TrimSpace(identifier) == "" {
		return nil, common.BadRequest("username or email is required")
	}

	acc, err := s.verifier.Verify(ctx, identifier, in.Password)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issuer.Mint(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Account: acc, Tokens: tokens}, nil
}

func (s *AccountService) Logout(ctx context.Context, accountID string) error {
	return s.issuer.Revoke(ctx, accountID)
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	return s.issuer.Rotate(ctx, refreshToken)
}

func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if common.AnyBlank(oldPassword, newPassword) {
		return common.BadRequest("old and new password are required")
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Accounts(s.db)
	acc, err := s.find(ctx, accountID)
	if err != nil {
		return err
	}

	if err := cryptox.ComparePassword(acc.Password, oldPassword); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return common.BadRequest("invalid old password")
		}
		return common.Internal("internal server error", err)
	}

	hash, err := cryptox.HashPasswordWithCost(newPassword, s.passwordCost)
	if err != nil {
		return common.Internal("internal server error", err)
	}
	if err := repo.UpdatePassword(ctx, accountID, hash); err != nil {
		return s.storeError(ctx, "update password", err)
	}
	return nil
}

// Current returns the public projection of the account.
func (s *AccountService) Current(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := s.find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acc.Public(), nil
}

func (s *AccountService) UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.Account, error) {
	if common.AnyBlank(fullName, email) {
		return nil, common.BadRequest("all fields are required")
	}

	email = common.NormalizeIdentifier(email)
	repo := s.repomanager.Accounts(s.db)

	// the unique index only covers email = email, not email = username
	other, err := repo.FindByUsernameOrEmail(ctx, email, email)
	switch {
	case err == nil && other.ID != accountID:
		return nil, common.Conflict("user with email or username already exists")
	case err != nil && !errors.Is(err, common.ErrorNotFound):
		return nil, s.storeError(ctx, "update details", err)
	}

	acc, err := repo.UpdateDetails(ctx, accountID, strings.TrimSpace(fullName), email)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.Conflict("user with email or username already exists")
		}
		return nil, s.storeError(ctx, "update details", err)
	}
	return acc.Public(), nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, accountID, localPath string) (*models.Account, error) {
	if localPath == "" {
		return nil, common.BadRequest("avatar file is missing")
	}
	res := s.uploader.Upload(ctx, localPath)
	if res == nil {
		return nil, common.Conflict("error while uploading avatar")
	}

	acc, err := s.repomanager.Accounts(s.db).UpdateAvatar(ctx, accountID, res.URL)
	if err != nil {
		return nil, s.storeError(ctx, "update avatar", err)
	}
	return acc.Public(), nil
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, accountID, localPath string) (*models.Account, error) {
	if localPath == "" {
		return nil, common.BadRequest("cover image file is missing")
	}
	res := s.uploader.Upload(ctx, localPath)
	if res == nil {
		return nil, common.Conflict("error while uploading cover image")
	}

	acc, err := s.repomanager.Accounts(s.db).UpdateCoverImage(ctx, accountID, res.URL)
	if err != nil {
		return nil, s.storeError(ctx, "update cover image", err)
	}
	return acc.Public(), nil
}

func (s *AccountService) find(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := s.repomanager.Accounts(s.db).FindByID(ctx, accountID)
	if err != nil {
		return nil, s.storeError(ctx, "find account", err)
	}
	return acc, nil
}

func (s *AccountService) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound("user does not exist")
	}
	s.log.Error(ctx, op+" failed", "error", err)
	return common.Internal("internal server error", err)
}
