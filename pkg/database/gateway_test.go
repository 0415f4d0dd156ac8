package database

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/pkg/config"
)

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	r := Retry{Attempts: 5, Initial: time.Second, MaxBackoff: 5 * time.Second}
	assert.Equal(t, time.Second, r.Delay(1))
	assert.Equal(t, 2*time.Second, r.Delay(2))
	assert.Equal(t, 4*time.Second, r.Delay(3))
	assert.Equal(t, 5*time.Second, r.Delay(4))
	assert.Equal(t, 5*time.Second, r.Delay(10))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", dsn)
}

func TestPingWithRetryRecovers(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	err = pingWithRetry(context.Background(), sqlx.NewDb(db, "sqlmock"), Retry{Attempts: 3, Initial: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingWithRetryGivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	mock.ExpectPing().WillReturnError(errors.New("down"))

	err = pingWithRetry(context.Background(), sqlx.NewDb(db, "sqlmock"), Retry{Attempts: 2, Initial: time.Millisecond}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestGatewayPingTracksHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	gw := NewGateway(sqlx.NewDb(db, "sqlmock"), zap.NewNop(), time.Minute)
	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.Error(t, gw.Ping(context.Background()))
	assert.False(t, gw.Healthy())

	mock.ExpectPing()
	require.NoError(t, gw.Ping(context.Background()))
	assert.True(t, gw.Healthy())
}

func TestGatewayHealthHook(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	gw := NewGateway(sqlx.NewDb(db, "sqlmock"), zap.NewNop(), time.Minute)
	var seen []bool
	gw.OnHealthChange(func(ok bool) { seen = append(seen, ok) })

	mock.ExpectPing().WillReturnError(errors.New("down"))
	_ = gw.Ping(context.Background())

	assert.Equal(t, []bool{true, false}, seen)
}
