// Package mongo implements repository.Store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

// Collection name constants.
const (
	colAccounts    = "accounts"
	colTokens      = "access_tokens"
	colGenerations = "generations"
	colPayments    = "payments"
)

var _ repository.Store = (*Store)(nil)

// Store implements repository.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// Migrate creates indexes for every collection.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Drop removes every collection. Intended for tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ==================== Accounts ====================

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.db.Collection(colAccounts).InsertOne(ctx, toAccountModel(a))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailExists
		}
		return fmt.Errorf("mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": id})
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.findAccount(ctx, bson.M{"email": email})
}

func (s *Store) findAccount(ctx context.Context, filter bson.M) (*model.Account, error) {
	var m accountModel
	if err := s.db.Collection(colAccounts).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("mongo: get account: %w", err)
	}
	return fromAccountModel(&m), nil
}

func (s *Store) UpdateAccountProfile(ctx context.Context, id string, update repository.ProfileUpdate) (*model.Account, error) {
	set := bson.M{"updated_at": now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}

	a, err := s.updateAccount(ctx, id, bson.M{"$set": set})
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, repository.ErrEmailExists
	}
	return a, err
}

// DebitCredits applies an atomic $inc and then appends the record. Without a
// replica set there is no multi-document transaction, so a failed insert is
// compensated with the inverse $inc.
func (s *Store) DebitCredits(ctx context.Context, rec *model.GenerationRecord) (*model.Account, error) {
	a, err := s.updateAccount(ctx, rec.AccountID, bson.M{
		"$inc": bson.M{"credit_balance": -rec.OutputLength},
		"$set": bson.M{"updated_at": now()},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Collection(colGenerations).InsertOne(ctx, toGenerationModel(rec)); err != nil {
		if _, undoErr := s.updateAccount(ctx, rec.AccountID, bson.M{
			"$inc": bson.M{"credit_balance": rec.OutputLength},
		}); undoErr != nil {
			return nil, fmt.Errorf("mongo: insert generation: %w (refund failed: %v)", err, undoErr)
		}
		return nil, fmt.Errorf("mongo: insert generation: %w", err)
	}

	return a, nil
}

func (s *Store) ApplyPlanGrant(ctx context.Context, accountID string, plan model.PlanID, credits int64) (*model.Account, error) {
	return s.updateAccount(ctx, accountID, bson.M{"$set": bson.M{
		"plan":           string(plan),
		"credit_balance": credits,
		"credit_ceiling": credits,
		"updated_at":     now(),
	}})
}

// ApplyPayment inserts the payment keyed by order id, then resets the
// account. The insert claims the order; if the account is gone the claim is
// released.
func (s *Store) ApplyPayment(ctx context.Context, p *model.Payment) (*model.Account, error) {
	if _, err := s.db.Collection(colPayments).InsertOne(ctx, toPaymentModel(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrPaymentApplied
		}
		return nil, fmt.Errorf("mongo: insert payment: %w", err)
	}

	a, err := s.ApplyPlanGrant(ctx, p.AccountID, p.PlanID, p.Credits)
	if err != nil {
		if _, delErr := s.db.Collection(colPayments).DeleteOne(ctx, bson.M{"_id": p.OrderID}); delErr != nil {
			return nil, fmt.Errorf("mongo: apply payment: %w (release failed: %v)", err, delErr)
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) updateAccount(ctx context.Context, id string, update bson.M) (*model.Account, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m accountModel
	err := s.db.Collection(colAccounts).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrAccountNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("mongo: update account: %w", err)
	}
	return fromAccountModel(&m), nil
}

// ==================== Access tokens ====================

func (s *Store) CreateAccessToken(ctx context.Context, t *model.AccessToken) error {
	if _, err := s.db.Collection(colTokens).InsertOne(ctx, toTokenModel(t)); err != nil {
		return fmt.Errorf("mongo: create access token: %w", err)
	}
	return nil
}

func (s *Store) GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error) {
	cur, err := s.db.Collection(colTokens).Find(ctx, bson.M{"token_prefix": prefix, "revoked_at": nil})
	if err != nil {
		return nil, fmt.Errorf("mongo: find access tokens: %w", err)
	}

	var models []tokenModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("mongo: decode access tokens: %w", err)
	}

	tokens := make([]*model.AccessToken, len(models))
	for i := range models {
		tokens[i] = fromTokenModel(&models[i])
	}
	return tokens, nil
}

func (s *Store) RevokeAccessToken(ctx context.Context, id string) error {
	res, err := s.db.Collection(colTokens).UpdateOne(ctx,
		bson.M{"_id": id, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("mongo: revoke access token: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrTokenNotFound
	}
	return nil
}

func (s *Store) UpdateAccessTokenLastUsed(ctx context.Context, id string) error {
	_, err := s.db.Collection(colTokens).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_used_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("mongo: update access token last used: %w", err)
	}
	return nil
}

// ==================== Generations ====================

func (s *Store) ListGenerations(ctx context.Context, accountID string, page repository.Page) ([]*model.GenerationRecord, int64, error) {
	col := s.db.Collection(colGenerations)
	filter := bson.M{"account_id": accountID}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count generations: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: list generations: %w", err)
	}

	var models []generationModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, fmt.Errorf("mongo: decode generations: %w", err)
	}

	records := make([]*model.GenerationRecord, 0, len(models))
	for i := range models {
		rec, err := fromGenerationModel(&models[i])
		if err != nil {
			return nil, 0, fmt.Errorf("mongo: generation %s: %w", models[i].ID, err)
		}
		records = append(records, rec)
	}
	return records, total, nil
}

func (s *Store) GetGeneration(ctx context.Context, accountID, id string) (*model.GenerationRecord, error) {
	var m generationModel
	err := s.db.Collection(colGenerations).FindOne(ctx, bson.M{"_id": id, "account_id": accountID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("mongo: get generation: %w", err)
	}
	return fromGenerationModel(&m)
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTokens: {
			{Keys: bson.D{{Key: "token_prefix", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}}},
		},
		colGenerations: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "account_id", Value: 1}}},
		},
	}
}
