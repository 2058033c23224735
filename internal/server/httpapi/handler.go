// Package httpapi exposes the account and channel services over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/filex"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/config"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/dmitrijs2005/chantube/internal/server/services"
	"github.com/gin-gonic/gin"
)

type AccountAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Logout(ctx context.Context, accountID string) error
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	Current(ctx context.Context, accountID string) (*models.Account, error)
	UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.Account, error)
	UpdateAvatar(ctx context.Context, accountID, localPath string) (*models.Account, error)
	UpdateCoverImage(ctx context.Context, accountID, localPath string) (*models.Account, error)
}

type ChannelAPI interface {
	Subscribe(ctx context.Context, subscriberID, channelUsername string) error
	Unsubscribe(ctx context.Context, subscriberID, channelUsername string) error
	Profile(ctx context.Context, viewerID, channelUsername string) (*models.ChannelProfile, error)
}

type Handler struct {
	accounts AccountAPI
	channels ChannelAPI
	config   *config.Config
	log      logging.Logger
}

func NewHandler(accounts AccountAPI, channels ChannelAPI, cfg *config.Config, log logging.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		channels: channels,
		config:   cfg,
		log:      log.With("module", "http"),
	}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
}

type loginResponse struct {
	User         *models.Account `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

// stageUpload saves the multipart file under field into the upload dir and
// returns its path, or "" when the field is absent.
func (h *Handler) stageUpload(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", common.BadRequest("invalid multipart body").WithCause(err)
	}

	name, err := common.MakeRandHexString(16)
	if err != nil {
		return "", common.Internal("internal server error", err)
	}
	path := filepath.Join(h.config.UploadDir, name+strings.ToLower(filepath.Ext(fh.Filename)))

	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", common.Internal("internal server error", err)
	}
	return path, nil
}

func (h *Handler) discard(c *gin.Context, path string) {
	if err := filex.RemoveQuietly(path); err != nil {
		h.log.Warn(c.Request.Context(), "failed to remove staged upload", "path", path, "error", err)
	}
}

func (h *Handler) setTokenCookies(c *gin.Context, pair *models.TokenPair) {
	secure := h.config.CookieSecure
	c.SetCookie(common.AccessTokenCookieName, pair.AccessToken,
		int(h.config.AccessTokenValidityDuration.Seconds()), "/", "", secure, true)
	c.SetCookie(common.RefreshTokenCookieName, pair.RefreshToken,
		int(h.config.RefreshTokenValidityDuration.Seconds()), "/", "", secure, true)
}

func (h *Handler) clearTokenCookies(c *gin.Context) {
	secure := h.config.CookieSecure
	c.SetCookie(common.AccessTokenCookieName, "", -1, "/", "", secure, true)
	c.SetCookie(common.RefreshTokenCookieName, "", -1, "/", "", secure, true)
}

func (h *Handler) Register(c *gin.Context) {
	avatar, err := h.stageUpload(c, "avatar")
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer h.discard(c, avatar)

	cover, err := h.stageUpload(c, "coverImage")
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer h.discard(c, cover)

	acc, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		FullName:       c.PostForm("fullName"),
		Email:          c.PostForm("email"),
		Username:       c.PostForm("username"),
		Password:       c.PostForm("password"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}

	respond(c, http.StatusCreated, acc, "User registered successfully")
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, h.log, common.BadRequest("invalid request body"))
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}

	h.setTokenCookies(c, res.Tokens)
	respond(c, http.StatusOK, loginResponse{
		User:         res.Account,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

func (h *Handler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(common.RefreshTokenCookieName)
	if token == "" {
		var req refreshRequest
		_ = c.ShouldBind(&req)
		token = req.RefreshToken
	}

	pair, err := h.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	h.setTokenCookies(c, pair)
	respond(c, http.StatusOK, pair, "Access token refreshed")
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), currentAccount(c).ID); err != nil {
		fail(c, h.log, err)
		return
	}

	h.clearTokenCookies(c)
	respond(c, http.StatusOK, gin.H{}, "User logged out")
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, h.log, common.BadRequest("invalid request body"))
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), currentAccount(c).ID, req.OldPassword, req.NewPassword); err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

func (h *Handler) CurrentUser(c *gin.Context) {
	respond(c, http.StatusOK, currentAccount(c), "User fetched successfully")
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, h.log, common.BadRequest("invalid request body"))
		return
	}

	acc, err := h.accounts.UpdateDetails(c.Request.Context(), currentAccount(c).ID, req.FullName, req.Email)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, acc, "Account details updated successfully")
}

func (h *Handler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.accounts.UpdateAvatar, "Avatar image updated successfully")
}

func (h *Handler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.accounts.UpdateCoverImage, "Cover image updated successfully")
}

func (h *Handler) updateImage(c *gin.Context, field string,
	update func(ctx context.Context, accountID, localPath string) (*models.Account, error), message string) {

	path, err := h.stageUpload(c, field)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer h.discard(c, path)

	acc, err := update(c.Request.Context(), currentAccount(c).ID, path)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, acc, message)
}

func (h *Handler) ChannelProfile(c *gin.Context) {
	p, err := h.channels.Profile(c.Request.Context(), currentAccount(c).ID, c.Param("username"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, p, "User channel fetched successfully")
}

func (h *Handler) Subscribe(c *gin.Context) {
	if err := h.channels.Subscribe(c.Request.Context(), currentAccount(c).ID, c.Param("username")); err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{}, "Subscribed successfully")
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	if err := h.channels.Unsubscribe(c.Request.Context(), currentAccount(c).ID, c.Param("username")); err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{}, "Unsubscribed successfully")
}
