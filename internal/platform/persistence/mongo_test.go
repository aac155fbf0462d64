package persistence

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoDB_Accessors(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	// A disconnected client is enough to exercise the accessors; no I/O
	// happens until a query is issued.
	client, _ := mongo.Connect(context.TODO(), options.Client().ApplyURI("mongodb://localhost:27017"))
	database := client.Database("wallet_ledger_audit_test")

	mdb := &MongoDB{
		logger:   logger,
		database: database,
	}
	assert.Equal(t, database, mdb.Database())
	assert.Equal(t, "audit_reports", mdb.Collection("audit_reports").Name())
}
