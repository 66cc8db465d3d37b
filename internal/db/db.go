package db

import (
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/chat"
	"github.com/finadvisor/platform/internal/inquiry"
	"github.com/finadvisor/platform/internal/models"
	"github.com/finadvisor/platform/internal/provider"
)

// Connect opens the database and runs migrations. The DSN picks the
// dialect: "file:" or ":memory:" DSNs open sqlite, anything else mysql.
func Connect(dsn string) *gorm.DB {
	var (
		gdb *gorm.DB
		err error
	)
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		gdb, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	} else {
		gdb, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&chat.Thread{},
		&chat.Message{},
		&provider.Record{},
		&inquiry.Inquiry{},
		&inquiry.ProviderReply{},
		&inquiry.ConsolidatedAnswer{},
		&inquiry.ProviderRating{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	return gdb
}
