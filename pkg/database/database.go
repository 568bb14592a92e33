package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/feastly/feastly/config"
	"github.com/feastly/feastly/pkg/database/mongocodec"
)

var (
	// DB is set by Connect when DB_DRIVER names a SQL dialect.
	DB *gorm.DB
	// Mongo is set by ConnectMongo when DB_DRIVER=mongo.
	Mongo *mongo.Database

	mongoClient *mongo.Client
)

// Connect opens the SQL database and configures the connection pool.
func Connect() error {
	db, err := Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open returns a pooled, pinged gorm connection for driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := buildDialector(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: build dialector: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// One writer keeps sqlite from returning SQLITE_BUSY under concurrent CAS updates.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return db, nil
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql, sqlserver)", driver)
	}
}

// ConnectMongo dials MONGO_URI and selects MONGO_DB.
func ConnectMongo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI()).SetRegistry(mongocodec.Registry()))
	if err != nil {
		return fmt.Errorf("database: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("database: mongo ping: %w", err)
	}

	mongoClient = client
	Mongo = client.Database(config.MongoDB())
	return nil
}

// Ping checks whichever store is connected. The in-memory store is always healthy.
func Ping(ctx context.Context) error {
	switch {
	case DB != nil:
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	case mongoClient != nil:
		return mongoClient.Ping(ctx, readpref.Primary())
	default:
		return nil
	}
}

// Close releases every open connection.
func Close(ctx context.Context) error {
	var firstErr error
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			firstErr = sqlDB.Close()
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
