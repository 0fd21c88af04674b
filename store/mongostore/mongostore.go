// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package mongostore implements store.Store on MongoDB. Polls live in
// micro_questions keyed by poll id; votes live in micro_poll_responses with
// a unique index on (questionId, voterHash).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
)

const (
	PollCollection = "micro_questions"
	VoteCollection = "micro_poll_responses"
)

type pollDocument struct {
	ID            string    `bson:"_id"`
	Question      string    `bson:"question"`
	OptionYes     string    `bson:"optionYes"`
	OptionNo      string    `bson:"optionNo"`
	Active        bool      `bson:"active"`
	CampaignKey   string    `bson:"campaignKey,omitempty"`
	CampaignLabel string    `bson:"campaignLabel,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
}

type voteDocument struct {
	ID         string    `bson:"_id"`
	QuestionID string    `bson:"questionId"`
	VoterHash  string    `bson:"voterHash"`
	Choice     string    `bson:"choice"`
	Email      string    `bson:"email,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type Storage struct {
	client *mongo.Client
	db     *mongo.Database
	polls  *mongo.Collection
	votes  *mongo.Collection
}

// Open connects to uri and ensures the vote uniqueness index exists
func Open(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "mongostore.Open"

	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := New(client, client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. Call EnsureIndexes before accepting votes.
func New(client *mongo.Client, db *mongo.Database) *Storage {
	return &Storage{
		client: client,
		db:     db,
		polls:  db.Collection(PollCollection),
		votes:  db.Collection(VoteCollection),
	}
}

// EnsureIndexes creates the unique vote index and the listing indexes
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	const op = "mongostore.EnsureIndexes"

	if _, err := s.votes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "questionId", Value: 1}, {Key: "voterHash", Value: 1}},
			Options: options.Index().SetName("uniq_poll_voter").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "questionId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_poll_created"),
		},
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.polls.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_question_created"),
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Drop removes the whole database. Used by tests.
func (s *Storage) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Storage) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Storage) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	const op = "mongostore.GetPoll"

	var doc pollDocument
	err := s.polls.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Poll{}, fmt.Errorf("%s: %w", op, store.ErrPollNotFound)
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toPoll(), nil
}

func (s *Storage) ListPolls(ctx context.Context) ([]models.Poll, error) {
	const op = "mongostore.ListPolls"

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.polls.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []pollDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	polls := make([]models.Poll, 0, len(docs))
	for _, d := range docs {
		polls = append(polls, d.toPoll())
	}
	return polls, nil
}

func (s *Storage) CreatePoll(ctx context.Context, p models.Poll) error {
	const op = "mongostore.CreatePoll"

	doc := pollDocument{
		ID:            p.ID,
		Question:      p.Question,
		OptionYes:     p.OptionYes,
		OptionNo:      p.OptionNo,
		Active:        p.Active,
		CampaignKey:   p.CampaignKey,
		CampaignLabel: p.CampaignLabel,
		CreatedAt:     p.CreatedAt.UTC(),
	}
	if _, err := s.polls.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, store.ErrPollExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) SetPollActive(ctx context.Context, id string, active bool) error {
	const op = "mongostore.SetPollActive"

	res, err := s.polls.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrPollNotFound)
	}
	return nil
}

// InsertVote relies on the uniq_poll_voter index; no read precedes the insert
func (s *Storage) InsertVote(ctx context.Context, v models.VoteRecord) error {
	const op = "mongostore.InsertVote"

	doc := voteDocument{
		ID:         v.ID,
		QuestionID: v.PollID,
		VoterHash:  v.VoterID,
		Choice:     string(v.Choice),
		Email:      v.Email,
		CreatedAt:  v.CreatedAt.UTC(),
	}
	if _, err := s.votes.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, store.ErrDuplicateVote)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) ListVotes(ctx context.Context, pollID string, limit int) ([]models.VoteRecord, error) {
	const op = "mongostore.ListVotes"

	if limit <= 0 {
		limit = store.DefaultResultsLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.votes.Find(ctx, bson.M{"questionId": pollID}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []voteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	votes := make([]models.VoteRecord, 0, len(docs))
	for _, d := range docs {
		votes = append(votes, models.VoteRecord{
			ID:        d.ID,
			PollID:    d.QuestionID,
			VoterID:   d.VoterHash,
			Choice:    models.Choice(d.Choice),
			Email:     d.Email,
			CreatedAt: d.CreatedAt,
		})
	}
	return votes, nil
}

func (s *Storage) CountVotes(ctx context.Context, pollID string) (models.Tally, error) {
	const op = "mongostore.CountVotes"

	counts := make(map[models.Choice]int, 2)
	for _, c := range []models.Choice{models.ChoiceA, models.ChoiceB} {
		n, err := s.votes.CountDocuments(ctx, bson.M{"questionId": pollID, "choice": string(c)})
		if err != nil {
			return models.Tally{}, fmt.Errorf("%s: %w", op, err)
		}
		counts[c] = int(n)
	}
	return models.NewTally(counts[models.ChoiceA], counts[models.ChoiceB]), nil
}

func (d pollDocument) toPoll() models.Poll {
	return models.Poll{
		ID:            d.ID,
		Question:      d.Question,
		OptionYes:     d.OptionYes,
		OptionNo:      d.OptionNo,
		Active:        d.Active,
		CampaignKey:   d.CampaignKey,
		CampaignLabel: d.CampaignLabel,
		CreatedAt:     d.CreatedAt,
	}
}
