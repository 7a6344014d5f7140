package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/omaraldhaheri/zaina-backend/pkg/config"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

// Client wraps the shared Firestore connection.
type Client struct {
	conn *firestore.Client
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a Firestore client using the provided configuration. Credentials
// come from inline JSON, a file path, or application default credentials, in
// that order.
func New(ctx context.Context, cfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("gcp project id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	conn, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening firestore connection: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "firestore connection established")
	}

	return &Client{conn: conn}, nil
}

// DB returns the underlying Firestore connection.
func (c *Client) DB() *firestore.Client {
	return c.conn
}

// Ping verifies the datasource is reachable with a cheap single-document read.
func (c *Client) Ping(ctx context.Context) error {
	it := c.conn.Collections(ctx)
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return err
	}
	return nil
}

// Close shuts down the client's connections.
func (c *Client) Close() error {
	return c.conn.Close()
}
