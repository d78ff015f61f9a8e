package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tilegate/gethook/player"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const counterCollection = "Counter"

type MongoStore struct {
	client             *mongo.Client
	db                 string
	maxOperatorTimeOut time.Duration

	closeOnce sync.Once
	closeErr  error
}

type entityVersionDoc struct {
	Name    string `bson:"_id"`
	Version int32  `bson:"Version"`
}

type accountDoc struct {
	ID   int    `bson:"_id"`
	Name string `bson:"Name"`
}

func OpenMongo(ctx context.Context, uri string, db string, maxOperatorTimeOut time.Duration) (*MongoStore, error) {
	if uri == "" || db == "" {
		return nil, errors.New("mongo uri and database are required")
	}

	client, err := mongo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, maxOperatorTimeOut)
	defer cancel()
	if err = client.Connect(ctxTimeout); err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err = client.Ping(ctxTimeout, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{client: client, db: db, maxOperatorTimeOut: maxOperatorTimeOut}, nil
}

func (m *MongoStore) collection(name string) *mongo.Collection {
	return m.client.Database(m.db).Collection(name)
}

func (m *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.maxOperatorTimeOut)
}

func (m *MongoStore) EnsureDataStructure(ctx context.Context) error {
	ctxTimeout, cancel := m.withTimeout(ctx)
	defer cancel()

	index := mongo.IndexModel{Keys: bson.D{{Key: "Name", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := m.collection(AccountTable).Indexes().CreateOne(ctxTimeout, index); err != nil {
		return fmt.Errorf("ensure data structure: %w", err)
	}

	if err := m.AddOrUpdateEntityVersion(ctx, EntityVersionTable, 1); err != nil {
		return err
	}
	return m.AddOrUpdateEntityVersion(ctx, AccountTable, 1)
}

func (m *MongoStore) TableExists(ctx context.Context, name string) (bool, error) {
	ctxTimeout, cancel := m.withTimeout(ctx)
	defer cancel()

	names, err := m.client.Database(m.db).ListCollectionNames(ctxTimeout, bson.M{"name": name})
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return len(names) > 0, nil
}

func (m *MongoStore) EntityVersion(ctx context.Context, name string) (uint8, bool, error) {
	ctxTimeout, cancel := m.withTimeout(ctx)
	defer cancel()

	var doc entityVersionDoc
	err := m.collection(EntityVersionTable).FindOne(ctxTimeout, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("entity version %s: %w", name, err)
	}
	return uint8(doc.Version), true, nil
}

func (m *MongoStore) AddOrUpdateEntityVersion(ctx context.Context, name string, version uint8) error {
	if err := checkName(name); err != nil {
		return err
	}

	ctxTimeout, cancel := m.withTimeout(ctx)
	defer cancel()

	// $max only ever raises the stored version
	_, err := m.collection(EntityVersionTable).UpdateOne(ctxTimeout,
		bson.M{"_id": name},
		bson.M{"$max": bson.M{"Version": int32(version)}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update entity version %s: %w", name, err)
	}
	return nil
}

func (m *MongoStore) nextSeq(ctx context.Context, id string) (int, error) {
	var res struct {
		Seq int
	}

	after := options.After
	updateOpts := options.FindOneAndUpdateOptions{ReturnDocument: &after, Upsert: new(bool)}
	*updateOpts.Upsert = true
	err := m.collection(counterCollection).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"Seq": 1}}, &updateOpts).Decode(&res)
	return res.Seq, err
}

func (m *MongoStore) AddAccount(ctx context.Context, name string) (player.Account, error) {
	if err := checkName(name); err != nil {
		return player.Account{}, err
	}

	ctxTimeout, cancel := m.withTimeout(ctx)
	defer cancel()

	id, err := m.nextSeq(ctxTimeout, AccountTable)
	if err != nil {
		return player.Account{}, fmt.Errorf("account id: %w", err)
	}
	if _, err = m.collection(AccountTable).InsertOne(ctxTimeout, accountDoc{ID: id, Name: name}); err != nil {
		return player.Account{}, fmt.Errorf("add account %s: %w", name, err)
	}

	return player.Account{ID: id, Name: name}, nil
}

func (m *MongoStore) FindAccount(ctx context.Context, name string) (player.Account, bool, error) {
	ctxTimeout, cancel := m.withTimeout(ctx)
	defer cancel()

	var doc accountDoc
	err := m.collection(AccountTable).FindOne(ctxTimeout, bson.M{"Name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return player.Account{}, false, nil
	}
	if err != nil {
		return player.Account{}, false, fmt.Errorf("find account %s: %w", name, err)
	}
	return player.Account{ID: doc.ID, Name: doc.Name}, true, nil
}

func (m *MongoStore) Close() error {
	m.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.maxOperatorTimeOut)
		defer cancel()
		m.closeErr = m.client.Disconnect(ctx)
	})
	return m.closeErr
}
