package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	runtimeParamApplicationName = "application_name"
	applicationName             = "shop-auth"

	errUserNotFound    = "user not found"
	errSettingNotFound = "setting not found"
	errUsernameTaken   = "username or email already registered"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedMigrateFmt              = "failed to apply schema: %w"

	errFailedStartTransactionFmt  = "failed to start transaction: %w"
	errFailedCommitTransactionFmt = "failed to commit transaction: %w"
	errFailedLockUsersFmt         = "failed to lock users table: %w"

	errFailedCreateUserFmt       = "failed to create user: %w"
	errFailedGetUserFmt          = "failed to get user: %w"
	errFailedListUsersFmt        = "failed to list users: %w"
	errFailedScanUserFmt         = "failed to scan user: %w"
	errIterateUsersFmt           = "error iterating users: %w"
	errFailedUpdateUserFmt       = "failed to update user: %w"
	errFailedEncodePermissionFmt = "failed to encode permissions: %w"

	errFailedGetSettingFmt    = "failed to get setting: %w"
	errFailedSetSettingFmt    = "failed to set setting: %w"
	errFailedDeleteSettingFmt = "failed to delete setting: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedMigrate              = func(err error) error { return fmt.Errorf(errFailedMigrateFmt, err) }
	errFailedStartTransaction     = func(err error) error { return fmt.Errorf(errFailedStartTransactionFmt, err) }
	errFailedCommitTransaction    = func(err error) error { return fmt.Errorf(errFailedCommitTransactionFmt, err) }
	errFailedLockUsers            = func(err error) error { return fmt.Errorf(errFailedLockUsersFmt, err) }
	errFailedCreateUser           = func(err error) error { return fmt.Errorf(errFailedCreateUserFmt, err) }
	errFailedGetUser              = func(err error) error { return fmt.Errorf(errFailedGetUserFmt, err) }
	errFailedListUsers            = func(err error) error { return fmt.Errorf(errFailedListUsersFmt, err) }
	errFailedScanUser             = func(err error) error { return fmt.Errorf(errFailedScanUserFmt, err) }
	errIterateUsers               = func(err error) error { return fmt.Errorf(errIterateUsersFmt, err) }
	errFailedUpdateUser           = func(err error) error { return fmt.Errorf(errFailedUpdateUserFmt, err) }
	errFailedEncodePermission     = func(err error) error { return fmt.Errorf(errFailedEncodePermissionFmt, err) }
	errFailedGetSetting           = func(err error) error { return fmt.Errorf(errFailedGetSettingFmt, err) }
	errFailedSetSetting           = func(err error) error { return fmt.Errorf(errFailedSetSettingFmt, err) }
	errFailedDeleteSetting        = func(err error) error { return fmt.Errorf(errFailedDeleteSettingFmt, err) }
)
