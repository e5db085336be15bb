package network

import "net/http"

type MockHttp struct {
	DoFunc func(req *http.Request) ([]byte, error)
}

func (m *MockHttp) Do(req *http.Request) ([]byte, error) {
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}

	return nil, nil
}
