package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

var columns = []string{"id", "username", "email", "full_name", "password", "avatar", "cover_image", "refresh_token", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func annRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(columns).
		AddRow("acc-1", "ann", "ann@x.com", "Ann Lee", "$2a$hash", "http://cdn/a.png", nil, "refresh-1", now, now)
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(username,\s*email,\s*full_name,\s*password,\s*avatar,\s*cover_image\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("ann", "ann@x.com", "Ann Lee", "hash", "http://cdn/a.png", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("acc-1", now, now))

	a := &models.Account{Username: "ann", Email: "ann@x.com", FullName: "Ann Lee", Password: "hash", Avatar: "http://cdn/a.png"}
	got, err := repo.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "acc-1" || got.Username != "ann" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_WithCoverImage(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WithArgs("ann", "ann@x.com", "Ann Lee", "hash", "a", "c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("acc-1", now, now))

	_, err := repo.Create(context.Background(), &models.Account{
		Username: "ann", Email: "ann@x.com", FullName: "Ann Lee", Password: "hash", Avatar: "a", CoverImage: "c",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WillReturnError(uniqueErr("accounts_email_key"))

	_, err := repo.Create(context.Background(), &models.Account{Username: "ann", Email: "ann@x.com"})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Username: "ann"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("acc-1").
		WillReturnRows(annRow(now))

	got, err := repo.FindByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.Username != "ann" || got.Password != "$2a$hash" || got.RefreshToken != "refresh-1" || got.CoverImage != "" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+accounts\s+WHERE\s+id`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+accounts\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("ann").
		WillReturnRows(annRow(time.Now()))

	got, err := repo.FindByUsername(context.Background(), "ann")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if got.ID != "acc-1" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestFindByIdentifier_MatchesUsernameOrEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$1\s+ORDER\s+BY\s+email\s*=\s*\$1\s+DESC\s+LIMIT\s+1$`).
		WithArgs("ann@x.com").
		WillReturnRows(annRow(time.Now()))

	got, err := repo.FindByIdentifier(context.Background(), "ann@x.com")
	if err != nil {
		t.Fatalf("FindByIdentifier error: %v", err)
	}
	if got.Email != "ann@x.com" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestFindByUsernameOrEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+username\s+IN\s+\(\$1,\s*\$2\)\s+OR\s+email\s+IN\s+\(\$1,\s*\$2\)\s+LIMIT\s+1$`).
		WithArgs("bob", "bob@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsernameOrEmail(context.Background(), "bob", "bob@x.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSetRefreshToken_Overwrites(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+refresh_token\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).
		WithArgs("acc-1", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetRefreshToken(context.Background(), "acc-1", "tok"); err != nil {
		t.Fatalf("SetRefreshToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSetRefreshToken_EmptyClears(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+refresh_token`).
		WithArgs("acc-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetRefreshToken(context.Background(), "acc-1", ""); err != nil {
		t.Fatalf("SetRefreshToken error: %v", err)
	}
}

func TestSetRefreshToken_NoRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+refresh_token`).
		WithArgs("ghost", "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRefreshToken(context.Background(), "ghost", "tok")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUpdatePassword_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+password\s*=\s*\$2`).
		WithArgs("acc-1", "newhash").
		WillReturnError(errors.New("db err"))

	err := repo.UpdatePassword(context.Background(), "acc-1", "newhash")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdateDetails_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)UPDATE\s+accounts\s+SET\s+full_name\s*=\s*\$2,\s*email\s*=\s*\$3.*RETURNING\s+id,`).
		WithArgs("acc-1", "Ann B", "annb@x.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("acc-1", "ann", "annb@x.com", "Ann B", "h", "a", "c", nil, now, now))

	got, err := repo.UpdateDetails(context.Background(), "acc-1", "Ann B", "annb@x.com")
	if err != nil {
		t.Fatalf("UpdateDetails error: %v", err)
	}
	if got.FullName != "Ann B" || got.Email != "annb@x.com" || got.CoverImage != "c" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestUpdateDetails_EmailTaken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+accounts\s+SET\s+full_name`).
		WillReturnError(uniqueErr("accounts_email_key"))

	_, err := repo.UpdateDetails(context.Background(), "acc-1", "Ann", "bob@x.com")
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestUpdateAvatar_And_CoverImage(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`UPDATE\s+accounts\s+SET\s+avatar\s*=\s*\$2`).
		WithArgs("acc-1", "http://cdn/new.png").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("acc-1", "ann", "ann@x.com", "Ann", "h", "http://cdn/new.png", nil, nil, now, now))
	mock.ExpectQuery(`UPDATE\s+accounts\s+SET\s+cover_image\s*=\s*\$2`).
		WithArgs("acc-1", "http://cdn/cover.png").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("acc-1", "ann", "ann@x.com", "Ann", "h", "http://cdn/new.png", "http://cdn/cover.png", nil, now, now))

	a, err := repo.UpdateAvatar(context.Background(), "acc-1", "http://cdn/new.png")
	if err != nil || a.Avatar != "http://cdn/new.png" {
		t.Fatalf("UpdateAvatar: %+v, %v", a, err)
	}
	c, err := repo.UpdateCoverImage(context.Background(), "acc-1", "http://cdn/cover.png")
	if err != nil || c.CoverImage != "http://cdn/cover.png" {
		t.Fatalf("UpdateCoverImage: %+v, %v", c, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateAvatar_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+accounts\s+SET\s+avatar`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateAvatar(context.Background(), "ghost", "x")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
