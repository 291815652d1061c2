package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "native with credentials",
			cfg:  ClientConfig{Host: "ch", Port: 9000, Database: "fincast", User: "u", Password: "p", DialTimeout: 5 * time.Second},
			want: "clickhouse://u:p@ch:9000/fincast?dial_timeout=5s",
		},
		{
			name: "http with async insert",
			cfg:  ClientConfig{Host: "ch", Port: 8123, Database: "db", UseHTTP: true, AsyncInsert: true, WaitForAsync: true, MaxExecTime: time.Minute},
			want: "http://ch:8123/db?async_insert=1&max_execution_time=60&wait_for_async_insert=1",
		},
		{
			name: "bare",
			cfg:  ClientConfig{Host: "localhost", Port: 9000, Database: "default"},
			want: "clickhouse://localhost:9000/default",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildDSN(tt.cfg))
		})
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
