package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"warhorse/internal/database"
)

func openSQLiteStore(t *testing.T) Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("sqlite driver unavailable: %v", err)
	}
	require.NoError(t, database.Migrate(db))
	return NewGormStore(db)
}

func TestGormStoreSQLite(t *testing.T) {
	runStoreSuite(t, openSQLiteStore)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_GetUserByAccountName(t *testing.T) {
	db, mock := setupMockDB(t)
	st := NewGormStore(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT * FROM "users" WHERE account_name_lower = $1 ORDER BY "users"."id" LIMIT $2`)

	tests := []struct {
		name         string
		lookup       string
		mockBehavior func()
		wantID       string
		wantErr      error
	}{
		{
			name:   "found",
			lookup: "Alice",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "account_name", "account_name_lower", "display_name"}).
					AddRow("u-1", "alice", "alice", "Alice A")
				mock.ExpectQuery(query).WithArgs("alice", 1).WillReturnRows(rows)
			},
			wantID: "u-1",
		},
		{
			name:   "not found",
			lookup: "ghost",
			mockBehavior: func() {
				mock.ExpectQuery(query).WithArgs("ghost", 1).WillReturnError(gorm.ErrRecordNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := st.GetUserByAccountName(ctx, tt.lookup)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantID, user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_InsertUserTranslatesUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	st := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_users_account_name_lower"})
	mock.ExpectRollback()

	_, err := st.InsertUser(context.Background(), registration("alice"))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: pgUniqueViolation}), ErrDuplicate)
	assert.ErrorIs(t,
		translateError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})),
		ErrDuplicate)
	assert.ErrorIs(t,
		translateError(errors.New("UNIQUE constraint failed: users.email")),
		ErrDuplicate)

	passthrough := errors.New("connection refused")
	assert.Equal(t, passthrough, translateError(passthrough))
}
