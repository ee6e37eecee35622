package mysql

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Database
		wantAddr string
	}{
		{"explicit port", config.Database{Host: "db.internal", Username: "root", Password: "secret", Port: 3307, DB: "counts"}, "db.internal:3307"},
		{"default port", config.Database{Host: "localhost", Username: "root", DB: "counts"}, "localhost:3306"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := mysql.ParseDSN(DSN(tt.cfg))
			if err != nil {
				t.Fatalf("ParseDSN failed: %v", err)
			}
			if parsed.Addr != tt.wantAddr {
				t.Errorf("Expected addr %s, got %s", tt.wantAddr, parsed.Addr)
			}
			if parsed.User != tt.cfg.Username || parsed.Passwd != tt.cfg.Password {
				t.Errorf("Credentials not preserved: %s/%s", parsed.User, parsed.Passwd)
			}
			if parsed.DBName != "counts" {
				t.Errorf("Expected db counts, got %s", parsed.DBName)
			}
			if !parsed.ParseTime {
				t.Error("Expected parseTime to be enabled")
			}
			if parsed.Timeout != 5*time.Second {
				t.Errorf("Expected 5s timeout, got %v", parsed.Timeout)
			}
		})
	}
}
