package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/dbx"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/config"
	"github.com/dmitrijs2005/chantube/internal/server/media"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/subscriptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory account store ---

type memAccounts struct {
	mu     sync.Mutex
	seq    int
	byID   map[string]*models.Account
	errAll error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[string]*models.Account{}}
}

func (m *memAccounts) copyOf(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (m *memAccounts) find(match func(a *models.Account) bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errAll != nil {
		return nil, m.errAll
	}
	for _, a := range m.byID {
		if match(a) {
			return m.copyOf(a), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errAll != nil {
		return nil, m.errAll
	}
	for _, x := range m.byID {
		if x.Username == a.Username || x.Email == a.Email {
			return nil, common.ErrorConflict
		}
	}
	m.seq++
	a.ID = fmt.Sprintf("acc-%d", m.seq)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = m.copyOf(a)
	return a, nil
}

func (m *memAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.ID == id })
}

func (m *memAccounts) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool { return a.Username == username })
}

func (m *memAccounts) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	if a, err := m.find(func(a *models.Account) bool { return a.Email == identifier }); !errors.Is(err, common.ErrorNotFound) {
		return a, err
	}
	return m.find(func(a *models.Account) bool { return a.Username == identifier })
}

func (m *memAccounts) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	return m.find(func(a *models.Account) bool {
		return a.Username == username || a.Username == email || a.Email == username || a.Email == email
	})
}

func (m *memAccounts) update(id string, fn func(a *models.Account) error) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errAll != nil {
		return nil, m.errAll
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now()
	return m.copyOf(a), nil
}

func (m *memAccounts) SetRefreshToken(ctx context.Context, id string, token string) error {
	_, err := m.update(id, func(a *models.Account) error { a.RefreshToken = token; return nil })
	return err
}

func (m *memAccounts) UpdatePassword(ctx context.Context, id string, hash string) error {
	_, err := m.update(id, func(a *models.Account) error { a.Password = hash; return nil })
	return err
}

func (m *memAccounts) UpdateDetails(ctx context.Context, id string, fullName, email string) (*models.Account, error) {
	return m.update(id, func(a *models.Account) error {
		for _, x := range m.byID {
			if x.ID != id && x.Email == email {
				return common.ErrorConflict
			}
		}
		a.FullName = fullName
		a.Email = email
		return nil
	})
}

func (m *memAccounts) UpdateAvatar(ctx context.Context, id string, url string) (*models.Account, error) {
	return m.update(id, func(a *models.Account) error { a.Avatar = url; return nil })
}

func (m *memAccounts) UpdateCoverImage(ctx context.Context, id string, url string) (*models.Account, error) {
	return m.update(id, func(a *models.Account) error { a.CoverImage = url; return nil })
}

func (m *memAccounts) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memAccounts) stored(t *testing.T, id string) models.Account {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	require.True(t, ok, "account %s not stored", id)
	return *a
}

// --- in-memory subscriptions ---

type memSubscriptions struct {
	mu    sync.Mutex
	links map[[2]string]bool
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{links: map[[2]string]bool{}}
}

func (m *memSubscriptions) Create(ctx context.Context, subscriberID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[[2]string{subscriberID, channelID}] = true
	return nil
}

func (m *memSubscriptions) Delete(ctx context.Context, subscriberID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, [2]string{subscriberID, channelID})
	return nil
}

func (m *memSubscriptions) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.links {
		if k[1] == channelID {
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptions) CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.links {
		if k[0] == subscriberID {
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptions) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[[2]string{subscriberID, channelID}], nil
}

// --- repo manager ---

type fakeRepoManager struct {
	a *memAccounts
	s *memSubscriptions
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository           { return m.a }
func (m *fakeRepoManager) Subscriptions(db dbx.DBTX) subscriptions.Repository { return m.s }

// --- uploader ---

type fakeUploader struct {
	mu       sync.Mutex
	fail     bool
	uploaded []string
}

func (u *fakeUploader) Upload(ctx context.Context, localPath string) *media.UploadResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	if localPath == "" || u.fail {
		return nil
	}
	u.uploaded = append(u.uploaded, localPath)
	key := "media/" + filepath.Base(localPath)
	return &media.UploadResult{Key: key, URL: "http://cdn.local/" + key}
}

// --- fixture ---

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	accounts *memAccounts
	subs     *memSubscriptions
	uploader *fakeUploader
	verifier *CredentialVerifier
	issuer   *TokenIssuer
	svc      *AccountService
	channels *ChannelService
}

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: time.Hour,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		mock:     mock,
		accounts: newMemAccounts(),
		subs:     newMemSubscriptions(),
		uploader: &fakeUploader{},
	}
	rm := &fakeRepoManager{a: f.accounts, s: f.subs}
	log := logging.NewNopLogger()

	f.verifier = NewCredentialVerifier(db, rm, log)
	f.issuer = NewTokenIssuer(db, rm, testConfig(), log)
	f.svc = NewAccountService(db, rm, f.verifier, f.issuer, f.uploader, log)
	f.svc.passwordCost = bcrypt.MinCost
	f.channels = NewChannelService(db, rm, log)
	return f
}

// register creates an account through the service and expects one
// transaction.
func (f *fixture) register(t *testing.T, username, email, password string) *models.Account {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	acc, err := f.svc.Register(context.Background(), RegisterInput{
		FullName:   "Full " + username,
		Email:      email,
		Username:   username,
		Password:   password,
		AvatarPath: "/tmp/" + username + ".png",
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
	return acc
}

func requireAPIError(t *testing.T, err error, kind error, message string) {
	t.Helper()
	var apiErr *common.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, kind)
	assert.Equal(t, message, apiErr.Message)
}
