package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_Begin_SetsLockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config\\('lock_timeout'").
		WithArgs("750ms").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	tx, err := NewTransactor(mock, 750*time.Millisecond).Begin(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin_NoLockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()

	_, err = NewTransactor(mock, 0).Begin(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin_RollsBackWhenSettingFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").
		WithArgs("5000ms").
		WillReturnError(errors.New("conn closed"))
	mock.ExpectRollback()

	tx, err := NewTransactor(mock, 5*time.Second).Begin(context.Background())
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.Contains(t, err.Error(), "set lock_timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err = NewTransactor(mock, time.Second).Begin(context.Background())
	assert.Error(t, err)
}

func TestLockTimeoutSetting(t *testing.T) {
	assert.Equal(t, "5000ms", lockTimeoutSetting(5*time.Second))
	assert.Equal(t, "1ms", lockTimeoutSetting(time.Microsecond))
}
