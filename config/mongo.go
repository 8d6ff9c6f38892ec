package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpenMongo connects and pings. The caller owns the client.
func OpenMongo(ctx context.Context, c MongoConfig) (*mongo.Client, error) {
	if c.URI == "" {
		return nil, errors.New("MONGO_URI environment variable is not set")
	}

	opts := mongoClientOptions(c)
	ctx, cancel := context.WithTimeout(ctx, *opts.ConnectTimeout+*opts.ServerSelectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

func mongoClientOptions(c MongoConfig) *options.ClientOptions {
	maxPool := c.MaxPoolSize
	if maxPool == 0 {
		maxPool = 10
	}
	connect, sel := c.ConnectTimeout, c.SelectTimeout
	if connect <= 0 {
		connect = 15 * time.Second
	}
	if sel <= 0 {
		sel = 20 * time.Second
	}
	return options.Client().ApplyURI(c.URI).
		SetAppName("interviewchat").
		SetServerSelectionTimeout(sel).
		SetConnectTimeout(connect).
		SetMaxPoolSize(maxPool).
		SetMinPoolSize(1)
}
