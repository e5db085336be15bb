package database

import (
	"math/big"
	"testing"
	"time"

	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/stretchr/testify/require"
)

func getTestDb(t *testing.T) *DefaultDatabase {
	cfg := config.Observer{
		InMemory: true,
	}
	dbInstance := NewDb(&cfg).(*DefaultDatabase)
	err := dbInstance.Init()
	require.Nil(t, err)

	// The in-memory db is shared by every connection of the process.
	_, err = dbInstance.db.Exec("DELETE FROM vaults")
	require.Nil(t, err)

	return dbInstance
}

func loadVault(t *testing.T, db Database, uuid string) *types.Vault {
	vaults, err := db.LoadVaults()
	require.Nil(t, err)

	for _, v := range vaults {
		if v.UUID == uuid {
			return v
		}
	}

	return nil
}

func testSaveVaults(t *testing.T, db Database) {
	db.SaveVault(&types.Vault{
		UUID:            "0xabc",
		Chain:           "eth-sepolia",
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		FundedRequested: true,
	})

	require.Eventually(t, func() bool {
		return loadVault(t, db, "0xabc") != nil
	}, time.Second*3, time.Millisecond*20)

	v := loadVault(t, db, "0xabc")
	require.Equal(t, "eth-sepolia", v.Chain)
	require.Nil(t, v.Outcome)
	require.False(t, v.Funded)
	require.False(t, v.FundedRequested)

	db.SaveVault(&types.Vault{
		UUID:            "0xabc",
		Chain:           "eth-sepolia",
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Outcome:         big.NewInt(9268),
		Funded:          true,
	})

	require.Eventually(t, func() bool {
		v := loadVault(t, db, "0xabc")
		return v != nil && v.Funded
	}, time.Second*3, time.Millisecond*20)
	require.Equal(t, big.NewInt(9268), loadVault(t, db, "0xabc").Outcome)

	db.DeleteVault("0xabc")
	require.Eventually(t, func() bool {
		return loadVault(t, db, "0xabc") == nil
	}, time.Second*3, time.Millisecond*20)
}

func TestInMemory_SaveVaults(t *testing.T) {
	db := getTestDb(t)
	testSaveVaults(t, db)
}
