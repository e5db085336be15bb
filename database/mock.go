package database

import "github.com/dlc-link/dlc-observer/types"

type MockDb struct {
	InitFunc        func() error
	CloseFunc       func() error
	SaveVaultFunc   func(vault *types.Vault)
	DeleteVaultFunc func(uuid string)
	LoadVaultsFunc  func() ([]*types.Vault, error)
}

func (mock *MockDb) Init() error {
	if mock.InitFunc != nil {
		return mock.InitFunc()
	}

	return nil
}

func (mock *MockDb) Close() error {
	if mock.CloseFunc != nil {
		return mock.CloseFunc()
	}

	return nil
}

func (mock *MockDb) SaveVault(vault *types.Vault) {
	if mock.SaveVaultFunc != nil {
		mock.SaveVaultFunc(vault)
	}
}

func (mock *MockDb) DeleteVault(uuid string) {
	if mock.DeleteVaultFunc != nil {
		mock.DeleteVaultFunc(uuid)
	}
}

func (mock *MockDb) LoadVaults() ([]*types.Vault, error) {
	if mock.LoadVaultsFunc != nil {
		return mock.LoadVaultsFunc()
	}

	return nil, nil
}
