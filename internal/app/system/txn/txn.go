// Package txn runs multi-document writes in a MongoDB transaction when the
// server supports it.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client. Store calls made
// with the ctx passed to fn join the transaction.
//
// Standalone servers (typical in development) cannot run transactions. In
// that case fn is run once more without a session; callers must therefore
// keep every write inside fn conditional on the state it expects, so the
// sequence stays correct without isolation.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, log, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithout(ctx, log, err, fn)
	}
	return err
}

func runWithout(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Debug("transactions not supported; running without", zap.Error(cause))
	}
	return fn(ctx)
}

// notSupportedCodes are server error codes meaning "no transactions here":
// IllegalOperation (20), NoSuchTransaction on standalone (51) and
// OperationNotSupportedInTransaction (263).
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

var notSupportedWords = []string{
	"transaction",
	"replica set",
	"session",
	"not supported",
	"illegal operation",
}

// IsNotSupported reports whether err indicates that the server cannot run
// transactions. Besides known command codes, a message mentioning at least
// two of the telltale phrases counts.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && notSupportedCodes[ce.Code] {
		return true
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, w := range notSupportedWords {
		if strings.Contains(msg, w) {
			hits++
		}
	}
	return hits >= 2
}
