package database

import (
	"database/sql"
	"sync"

	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/internal/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var (
	instance *Datasource
	initErr  error
	once     sync.Once
)

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	ds, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// GetDBConnection opens the process-wide datasource on first use. A failed first attempt is
// remembered and returned to every later caller.
// The lookup cache is attached when redis is configured and reachable.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	once.Do(func() {
		con, err := ConnectDB(configuration.DataSource.Driver, configuration.DataSource.Dns)
		if err != nil {
			initErr = err
			return
		}

		instance = &Datasource{Conn: con}
		if configuration.Redis.Dns == "" {
			return
		}
		c, err := cache.NewCache()
		if err != nil {
			logrus.WithError(err).Warn("lookup cache disabled")
			return
		}
		instance.Cache = c
	})
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

// ConnectDB opens and pings the database. The schema is managed by Migrate.
func ConnectDB(driver, dns string) (*sql.DB, error) {
	if driver == "" {
		driver = config.DEFAULT_DRIVER
	}
	db, err := sql.Open(driver, dns)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		logrus.WithError(err).WithField("driver", driver).Error("database connection failed")
		_ = db.Close()
		return nil, err
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
