// Package registry implements the experiment registry client: listing,
// describing, deleting, exporting and importing simulation experiments held in
// a configuration collection and a history collection.
package registry

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"expdb/internal/logger"
	"expdb/internal/store"
)

// ConfirmFunc asks the user to approve a destructive action. Only a true
// result with a nil error lets the action proceed.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Options names the collections the client operates on.
type Options struct {
	ConfigurationCollection string
	HistoryCollection       string
}

// DefaultOptions returns the collection names the simulation emitter writes.
func DefaultOptions() Options {
	return Options{
		ConfigurationCollection: store.ConfigurationCollection,
		HistoryCollection:       store.HistoryCollection,
	}
}

// Client runs registry operations against an injected database.
type Client struct {
	configuration store.Collection
	history       store.Collection
}

// NewClient creates a client over db. Empty option fields fall back to the defaults.
func NewClient(db store.Database, opts Options) *Client {
	defaults := DefaultOptions()
	if opts.ConfigurationCollection == "" {
		opts.ConfigurationCollection = defaults.ConfigurationCollection
	}
	if opts.HistoryCollection == "" {
		opts.HistoryCollection = defaults.HistoryCollection
	}
	return &Client{
		configuration: db.Collection(opts.ConfigurationCollection),
		history:       db.Collection(opts.HistoryCollection),
	}
}

func byExperiment(id string) store.Document {
	return bson.D{{Key: "experiment_id", Value: id}}
}

// ListIDs returns the distinct experiment ids present in the configuration collection.
func (c *Client) ListIDs(ctx context.Context) ([]string, error) {
	values, err := c.configuration.Distinct(ctx, "experiment_id", nil)
	if err != nil {
		return nil, fmt.Errorf("list experiment ids: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
			continue
		}
		ids = append(ids, fmt.Sprint(v))
	}
	return ids, nil
}

// Exists reports whether any configuration or history record carries id.
func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	for _, coll := range []store.Collection{c.configuration, c.history} {
		_, err := coll.FindOne(ctx, byExperiment(id), "experiment_id")
		if errors.Is(err, store.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("check experiment %s: %w", id, err)
		}
		return true, nil
	}
	return false, nil
}

// Delete removes every configuration and history record of the given ids once
// confirm approves. Ids without records are skipped silently. It returns the
// number of records removed.
func (c *Client) Delete(ctx context.Context, ids []string, confirm ConfirmFunc) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.confirm(ctx, confirm, fmt.Sprintf("Are you sure you want to delete %d experiment(s)?", len(ids))); err != nil {
		return 0, err
	}

	var total int64
	for _, id := range ids {
		n, err := c.deleteMatching(ctx, byExperiment(id))
		total += n
		if err != nil {
			return total, fmt.Errorf("delete experiment %s: %w", id, err)
		}
		logger.Debug("Deleted experiment", "experiment_id", id, "records", n)
	}
	return total, nil
}

// Purge removes every record from both collections once confirm approves.
func (c *Client) Purge(ctx context.Context, confirm ConfirmFunc) (int64, error) {
	if err := c.confirm(ctx, confirm, "Are you sure you want to delete ALL experiments?"); err != nil {
		return 0, err
	}
	n, err := c.deleteMatching(ctx, nil)
	if err != nil {
		return n, fmt.Errorf("purge: %w", err)
	}
	return n, nil
}

// deleteMatching removes history before configuration. A failure between the
// two leaves orphaned configuration records behind.
func (c *Client) deleteMatching(ctx context.Context, filter store.Document) (int64, error) {
	h, err := c.history.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	cfg, err := c.configuration.DeleteMany(ctx, filter)
	if err != nil {
		return h, err
	}
	return h + cfg, nil
}

func (c *Client) confirm(ctx context.Context, confirm ConfirmFunc, message string) error {
	if confirm == nil {
		return ErrNotConfirmed
	}
	ok, err := confirm(ctx, message)
	if err != nil {
		return fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}
