package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/server/media"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	acc, err := f.svc.Register(context.Background(), RegisterInput{
		FullName:       " Ann Lee ",
		Email:          "Ann@X.com",
		Username:       "Ann",
		Password:       "secret123",
		AvatarPath:     "/tmp/up/avatar.png",
		CoverImagePath: "/tmp/up/cover.jpg",
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, "ann", acc.Username)
	assert.Equal(t, "ann@x.com", acc.Email)
	assert.Equal(t, "Ann Lee", acc.FullName)
	assert.Equal(t, "http://cdn.local/media/avatar.png", acc.Avatar)
	assert.Equal(t, "http://cdn.local/media/cover.jpg", acc.CoverImage)
	assert.Empty(t, acc.Password)
	assert.Empty(t, acc.RefreshToken)

	stored := f.accounts.stored(t, acc.ID)
	assert.NotEqual(t, "secret123", stored.Password, "password must be stored hashed")
	assert.NotEmpty(t, stored.Password)
}

func TestRegister_ResponseNeverCarriesPassword(t *testing.T) {
	f := newFixture(t)
	acc := f.register(t, "ann", "ann@x.com", "secret123")

	b, err := json.Marshal(acc)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret123")
	assert.NotContains(t, string(b), f.accounts.stored(t, acc.ID).Password)
	assert.NotContains(t, string(b), "password")
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ann", "ann@x.com", "secret123")

	for _, in := range []RegisterInput{
		{FullName: "A", Email: "other@x.com", Username: "ANN", Password: "p", AvatarPath: "/tmp/a.png"},
		{FullName: "A", Email: "ann@x.com", Username: "other", Password: "p", AvatarPath: "/tmp/a.png"},
	} {
		_, err := f.svc.Register(context.Background(), in)
		requireAPIError(t, err, common.ErrorConflict, "user with email or username already exists")
	}
	assert.Len(t, f.uploader.uploaded, 1, "duplicates must be rejected before uploading")
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{FullName: "A", Email: "a@x.com", Username: " ", Password: "p"})
	requireAPIError(t, err, common.ErrorBadRequest, "all fields are required")

	_, err = f.svc.Register(context.Background(), RegisterInput{FullName: "A", Email: "a@x.com", Username: "a", Password: "p"})
	requireAPIError(t, err, common.ErrorBadRequest, "avatar file is required")
}

func TestRegister_AvatarUploadFails(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail = true

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "A", Email: "a@x.com", Username: "a", Password: "p", AvatarPath: "/tmp/a.png",
	})
	requireAPIError(t, err, common.ErrorConflict, "avatar file could not be uploaded")
}

type racingUploader struct {
	*fakeUploader
	before func()
}

func (u racingUploader) Upload(ctx context.Context, localPath string) *media.UploadResult {
	u.before()
	return u.fakeUploader.Upload(ctx, localPath)
}

func TestRegister_LostRaceInsideTransaction(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	// another request takes the username between the pre-check and the insert
	f.svc.uploader = racingUploader{fakeUploader: f.uploader, before: func() {
		_, _ = f.accounts.Create(context.Background(), &models.Account{Username: "ann", Email: "first@x.com"})
	}}

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "A", Email: "ann@x.com", Username: "ann", Password: "p", AvatarPath: "/tmp/a.png",
	})
	requireAPIError(t, err, common.ErrorConflict, "user with email or username already exists")
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Equal(t, []string{"/tmp/a.png"}, f.uploader.uploaded, "uploads made before the re-check are not rolled back")
}

func TestRegister_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.accounts.errAll = errors.New("db down")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "A", Email: "a@x.com", Username: "a", Password: "p", AvatarPath: "/tmp/a.png",
	})
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "A", Email: "a@x.com", Username: "a", Password: strings.Repeat("x", 80), AvatarPath: "/tmp/a.png",
	})
	requireAPIError(t, err, common.ErrorBadRequest, "password is too long")
	assert.Empty(t, f.uploader.uploaded)
}

func TestRegister_IdentifiersDoNotCrossColumns(t *testing.T) {
	f := newFixture(t)
	bob := f.register(t, "bob", "bob@x.com", "secret123")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{
		FullName: "Eve", Email: "eve@x.com", Username: "Bob@x.com", Password: "p", AvatarPath: "/tmp/e.png",
	})
	requireAPIError(t, err, common.ErrorBadRequest, "username must not contain @")

	_, err = f.svc.Register(ctx, RegisterInput{
		FullName: "Eve", Email: "bob", Username: "eve", Password: "p", AvatarPath: "/tmp/e.png",
	})
	requireAPIError(t, err, common.ErrorConflict, "user with email or username already exists")

	// a row predating the username rule must not capture bob's email login
	_, err = f.accounts.Create(ctx, &models.Account{Username: "bob@x.com", Email: "eve@x.com"})
	require.NoError(t, err)
	got, err := f.verifier.Verify(ctx, "bob@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
}

func TestLogin_ByUsernameOrEmail(t *testing.T) {
	f := newFixture(t)
	acc := f.register(t, "ann", "ann@x.com", "secret123")

	res, err := f.svc.Login(context.Background(), LoginInput{Username: "ann", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, res.Account.ID)
	assert.Empty(t, res.Account.Password)
	assert.Equal(t, res.Tokens.RefreshToken, f.accounts.stored(t, acc.ID).RefreshToken)

	res2, err := f.svc.Login(context.Background(), LoginInput{Email: "ann@x.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, res2.Tokens.RefreshToken)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ann", "ann@x.com", "secret123")

	_, err := f.svc.Login(context.Background(), LoginInput{Password: "secret123"})
	requireAPIError(t, err, common.ErrorBadRequest, "username or email is required")

	_, err = f.svc.Login(context.Background(), LoginInput{Username: "ann", Password: "bad"})
	requireAPIError(t, err, common.ErrorUnauthorized, "invalid credentials")

	_, err = f.svc.Login(context.Background(), LoginInput{Username: "bob", Password: "secret123"})
	requireAPIError(t, err, common.ErrorNotFound, "user does not exist")
}

func TestLogoutThenRefreshFails(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ann", "ann@x.com", "secret123")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginInput{Username: "ann", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Account.ID))

	_, err = f.svc.Refresh(ctx, rotated.RefreshToken)
	requireAPIError(t, err, common.ErrorUnauthorized, "token expired or already used")
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	acc := f.register(t, "ann", "ann@x.com", "secret123")
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, acc.ID, "wrong", "newpass")
	requireAPIError(t, err, common.ErrorBadRequest, "invalid old password")

	err = f.svc.ChangePassword(ctx, acc.ID, "secret123", " ")
	requireAPIError(t, err, common.ErrorBadRequest, "old and new password are required")

	require.NoError(t, f.svc.ChangePassword(ctx, acc.ID, "secret123", "newpass"))

	_, err = f.verifier.Verify(ctx, "ann", "secret123")
	requireAPIError(t, err, common.ErrorUnauthorized, "invalid credentials")
	_, err = f.verifier.Verify(ctx, "ann", "newpass")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, acc.ID, "newpass", strings.Repeat("x", 80))
	requireAPIError(t, err, common.ErrorBadRequest, "password is too long")
	_, err = f.verifier.Verify(ctx, "ann", "newpass")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, "missing", "a", "b")
	requireAPIError(t, err, common.ErrorNotFound, "user does not exist")
}

func TestCurrent(t *testing.T) {
	f := newFixture(t)
	acc := f.register(t, "ann", "ann@x.com", "secret123")
	_, err := f.issuer.Mint(context.Background(), acc.ID)
	require.NoError(t, err)

	cur, err := f.svc.Current(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", cur.Username)
	assert.Empty(t, cur.Password)
	assert.Empty(t, cur.RefreshToken)

	_, err = f.svc.Current(context.Background(), "missing")
	requireAPIError(t, err, common.ErrorNotFound, "user does not exist")
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ann := f.register(t, "ann", "ann@x.com", "secret123")
	f.register(t, "bob", "bob@x.com", "secret123")
	ctx := context.Background()

	got, err := f.svc.UpdateDetails(ctx, ann.ID, "Ann B", "ANN.B@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann B", got.FullName)
	assert.Equal(t, "ann.b@x.com", got.Email)

	_, err = f.svc.UpdateDetails(ctx, ann.ID, "Ann", "bob@x.com")
	requireAPIError(t, err, common.ErrorConflict, "user with email or username already exists")

	_, err = f.svc.UpdateDetails(ctx, ann.ID, "Ann", "BOB")
	requireAPIError(t, err, common.ErrorConflict, "user with email or username already exists")

	got, err = f.svc.UpdateDetails(ctx, ann.ID, "Ann", "ann.b@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FullName)

	_, err = f.svc.UpdateDetails(ctx, ann.ID, "", "x@x.com")
	requireAPIError(t, err, common.ErrorBadRequest, "all fields are required")
}

func TestUpdateAvatarAndCover(t *testing.T) {
	f := newFixture(t)
	acc := f.register(t, "ann", "ann@x.com", "secret123")
	ctx := context.Background()

	got, err := f.svc.UpdateAvatar(ctx, acc.ID, "/tmp/new.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/media/new.png", got.Avatar)

	got, err = f.svc.UpdateCoverImage(ctx, acc.ID, "/tmp/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/media/cover.png", got.CoverImage)

	_, err = f.svc.UpdateAvatar(ctx, acc.ID, "")
	requireAPIError(t, err, common.ErrorBadRequest, "avatar file is missing")
	_, err = f.svc.UpdateCoverImage(ctx, acc.ID, "")
	requireAPIError(t, err, common.ErrorBadRequest, "cover image file is missing")

	f.uploader.fail = true
	_, err = f.svc.UpdateAvatar(ctx, acc.ID, "/tmp/x.png")
	requireAPIError(t, err, common.ErrorConflict, "error while uploading avatar")
	_, err = f.svc.UpdateCoverImage(ctx, acc.ID, "/tmp/x.png")
	requireAPIError(t, err, common.ErrorConflict, "error while uploading cover image")
}
