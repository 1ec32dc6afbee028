package weather

import "context"

// MockClient returns a fixed temperature.
type MockClient struct {
	Temperature float64
	Err         error
	Calls       []string
}

func NewMockClient(temp float64) *MockClient {
	return &MockClient{Temperature: temp}
}

func (m *MockClient) CurrentTemperature(ctx context.Context, city string) (float64, error) {
	m.Calls = append(m.Calls, city)
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Temperature, nil
}
