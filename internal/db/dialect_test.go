package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

func setupDialectTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dialect_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Service{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestCaseInsensitiveLikeExpr_SQLite(t *testing.T) {
	t.Parallel()

	conn := setupDialectTestDB(t)
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %s", DialectName(conn))
	}
	if got := CaseInsensitiveLikeExpr(conn, "name"); got != "LOWER(name) LIKE ?" {
		t.Fatalf("unexpected sqlite expression: %q", got)
	}
	if got := NormalizeLikePattern(conn, "%Users%"); got != "%users%" {
		t.Fatalf("expected lowered pattern, got %q", got)
	}
}

func TestCaseInsensitiveLike_MatchesAcrossCase(t *testing.T) {
	t.Parallel()

	conn := setupDialectTestDB(t)
	rows := []models.Service{
		{Name: "Users-API", Protocol: "http", Host: "users.internal", Port: 80},
		{Name: "orders", Protocol: "http", Host: "orders.internal", Port: 80},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("create service: %v", errCreate)
		}
	}

	var matched []models.Service
	errFind := conn.
		Where(CaseInsensitiveLikeExpr(conn, "name"), NormalizeLikePattern(conn, "%USERS%")).
		Find(&matched).Error
	if errFind != nil {
		t.Fatalf("query: %v", errFind)
	}
	if len(matched) != 1 || matched[0].Name != "Users-API" {
		t.Fatalf("expected Users-API as the only match, got %+v", matched)
	}
}
