package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate"
	migratedb "github.com/golang-migrate/migrate/database"
	"github.com/golang-migrate/migrate/database/mysql"
	"github.com/golang-migrate/migrate/database/sqlite3"
	_ "github.com/golang-migrate/migrate/source/file"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/sisu-network/lib/log"
)

// Database persists the vault registry so that a restarted observer keeps what it has learned.
type Database interface {
	Init() error
	Close() error

	SaveVault(vault *types.Vault)
	DeleteVault(uuid string)
	LoadVaults() ([]*types.Vault, error)
}

type saveVaultRequest struct {
	vault  *types.Vault
	delete string
}

type DefaultDatabase struct {
	cfg     *config.Observer
	db      *sql.DB
	dialect string
	saveCh  chan *saveVaultRequest
}

type dbLogger struct {
}

func (loggger *dbLogger) Printf(format string, v ...interface{}) {
	log.Verbosef(format, v...)
}

func (loggger *dbLogger) Verbose() bool {
	return true
}

func NewDb(cfg *config.Observer) Database {
	return &DefaultDatabase{
		cfg:    cfg,
		saveCh: make(chan *saveVaultRequest, 64),
	}
}

func (d *DefaultDatabase) Connect() error {
	if d.cfg.InMemory {
		database, err := sql.Open("sqlite3", "file::memory:?cache=shared")
		if err != nil {
			return err
		}
		// Every new connection to :memory: would see an empty database.
		database.SetMaxOpenConns(1)

		d.db = database
		d.dialect = "sqlite3"
		log.Info("In-memory db is connected successfully")
		return nil
	}

	host := d.cfg.DbHost
	if host == "" {
		return fmt.Errorf("DB host cannot be empty")
	}

	port := d.cfg.DbPort
	username := d.cfg.DbUsername
	password := d.cfg.DbPassword
	schema := d.cfg.DbSchema

	url := fmt.Sprintf("%s:%s@tcp(%s:%d)/", username, password, host, port)
	database, err := sql.Open("mysql", url)
	if err != nil {
		return err
	}
	_, err = database.Exec("CREATE DATABASE IF NOT EXISTS " + schema)
	if err != nil {
		return err
	}
	database.Close()

	database, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", username, password, host, port, schema))
	if err != nil {
		return err
	}

	d.db = database
	d.dialect = "mysql"
	log.Info("Db is connected successfully")
	return nil
}

func (d *DefaultDatabase) DoMigration() error {
	var driver migratedb.Driver
	var err error

	switch d.dialect {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(d.db, &sqlite3.Config{})
	default:
		driver, err = mysql.WithInstance(d.db, &mysql.Config{})
	}
	if err != nil {
		return err
	}

	dir, err := MigrationsTempDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, d.dialect, driver)
	if err != nil {
		return err
	}

	m.Log = &dbLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (d *DefaultDatabase) Init() error {
	err := d.Connect()
	if err != nil {
		log.Error("Failed to connect to DB. Err =", err)
		return err
	}

	err = d.DoMigration()
	if err != nil {
		return err
	}

	go d.listen()

	return nil
}

func (d *DefaultDatabase) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}

// Listen to requests to save into database.
func (d *DefaultDatabase) listen() {
	for req := range d.saveCh {
		var err error
		if req.vault != nil {
			err = d.doSave(req.vault)
		} else {
			_, err = d.db.Exec("DELETE FROM vaults WHERE uuid = ?", req.delete)
		}

		if err != nil {
			log.Error("Cannot save vault into db, err = ", err)
		}
	}
}

func (d *DefaultDatabase) doSave(v *types.Vault) error {
	var outcome sql.NullString
	if v.Outcome != nil {
		outcome = sql.NullString{String: v.Outcome.String(), Valid: true}
	}

	updatedAt := v.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := d.db.Exec("REPLACE INTO vaults (uuid, chain, contract_address, outcome, funded_requested, funded, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		v.UUID, v.Chain, v.ContractAddress, outcome, boolToInt(v.FundedRequested), boolToInt(v.Funded),
		updatedAt.Unix())

	return err
}

func (d *DefaultDatabase) SaveVault(vault *types.Vault) {
	d.saveCh <- &saveVaultRequest{vault: vault.Copy()}
}

func (d *DefaultDatabase) DeleteVault(uuid string) {
	d.saveCh <- &saveVaultRequest{delete: uuid}
}

// LoadVaults returns every stored vault. An in-flight funded request does not survive a restart so
// FundedRequested always comes back false.
func (d *DefaultDatabase) LoadVaults() ([]*types.Vault, error) {
	rows, err := d.db.Query("SELECT uuid, chain, contract_address, outcome, funded, updated_at FROM vaults")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vaults := make([]*types.Vault, 0)
	for rows.Next() {
		var (
			v         types.Vault
			outcome   sql.NullString
			funded    int
			updatedAt int64
		)

		if err := rows.Scan(&v.UUID, &v.Chain, &v.ContractAddress, &outcome, &funded, &updatedAt); err != nil {
			return nil, err
		}

		if outcome.Valid {
			o, ok := new(big.Int).SetString(outcome.String, 10)
			if !ok {
				log.Errorf("Invalid outcome %s stored for vault %s", outcome.String, v.UUID)
			} else {
				v.Outcome = o
			}
		}
		v.Funded = funded != 0
		v.UpdatedAt = time.Unix(updatedAt, 0)

		vaults = append(vaults, &v)
	}

	return vaults, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
